package llm

import (
	"context"
	"math"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"loadstone/internal/config"
)

// OpenAI client implementation
type OpenAI struct {
	client *openai.Client
	cfg    *config.OpenAIConfig
}

func NewOpenAI(cfg *config.OpenAIConfig) (*OpenAI, error) {
	var client *openai.Client

	switch cfg.Provider {
	case "azure":
		client = openai.NewClient(
			azure.WithEndpoint(cfg.APIEndpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	default: // "openai"
		client = openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.APIEndpoint),
		)
	}

	return &OpenAI{
		client: client,
		cfg:    cfg,
	}, nil
}

func (o *OpenAI) NewConversation(systemPrompt string, opts ...Option) Conversation {
	options := Options{
		Model:       o.cfg.Model,
		Temperature: 0,
		MaxTokens:   2000,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &conversation{
		client:   o.client,
		opts:     options,
		system:   systemPrompt,
		preamble: estimateTokens(systemPrompt),
	}
}

type conversation struct {
	client   *openai.Client
	opts     Options
	system   string
	history  []openai.ChatCompletionMessageParamUnion
	preamble float64

	exchanges  int
	cumInput   float64
	cumOutput  float64
	lastInput  float64
	lastOutput float64
}

func (c *conversation) Send(ctx context.Context, message string) (*Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(c.history)+2)
	messages = append(messages, openai.SystemMessage(c.system))
	messages = append(messages, c.history...)
	messages = append(messages, openai.UserMessage(message))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.F(c.opts.Model),
		Messages:    openai.F(messages),
		Temperature: openai.F(c.opts.Temperature),
		MaxTokens:   openai.F(c.opts.MaxTokens),
	})
	if err != nil {
		return nil, err
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	c.history = append(c.history, openai.UserMessage(message))
	c.history = append(c.history, openai.AssistantMessage(content))

	in := float64(resp.Usage.PromptTokens)
	out := float64(resp.Usage.CompletionTokens)
	c.exchanges++
	c.cumInput += in
	c.cumOutput += out
	// The API only reports whole-prompt counts, so the preamble share of
	// the last exchange is subtracted as an estimate.
	c.lastInput = math.Max(0, in-c.preamble)
	c.lastOutput = out

	return &Response{
		Content: content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *conversation) Tokens(scope TokenScope) (float64, float64) {
	if c.exchanges == 0 {
		// No reading exists yet; the ledger normalizes NaN to zero.
		return math.NaN(), math.NaN()
	}
	if scope == ScopeLastExchange {
		return c.lastInput, c.lastOutput
	}
	return c.cumInput, c.cumOutput
}

func (c *conversation) PreambleTokens() float64 {
	return c.preamble
}

// estimateTokens approximates the token cost of text at four characters
// per token, the usual rule of thumb for English prose.
func estimateTokens(s string) float64 {
	return float64((len(s) + 3) / 4)
}

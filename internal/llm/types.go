package llm

import "context"

// Usage reports provider token counts for one exchange.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

type Option func(*Options)

type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Response is the provider-neutral result of one exchange.
type Response struct {
	Content string
	Usage   Usage
}

// TokenScope selects which token reading a Conversation reports.
type TokenScope int

const (
	// ScopeConversation is the running total for the whole conversation,
	// preamble included. Reading it before and after an exchange yields
	// the delta the cumulative ledger consumes.
	ScopeConversation TokenScope = iota
	// ScopeLastExchange is the most recent exchange only, with the
	// preamble share excluded. This is the per-call reporting reading.
	ScopeLastExchange
)

// Conversation is a stateful chat handle: the system preamble is fixed at
// creation and the message history accumulates across Send calls. One
// logical caller drives a Conversation at a time; there is no internal
// locking.
type Conversation interface {
	Send(ctx context.Context, message string) (*Response, error)

	// Tokens reads the conversation's counters for the given scope.
	// Values may be NaN before the first exchange; callers normalize.
	Tokens(scope TokenScope) (input, output float64)

	// PreambleTokens is the (possibly estimated) token cost of the fixed
	// system preamble sent with this conversation.
	PreambleTokens() float64
}

// Provider creates conversations against one LLM backend. Transport,
// auth, and provider-level retries live behind this interface.
type Provider interface {
	NewConversation(systemPrompt string, opts ...Option) Conversation
}

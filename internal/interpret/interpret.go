// Package interpret sequences one interpretation: extraction, prompting,
// LLM invocation, response salvage, token accounting, diagnostics, and
// report rendering. Type-specific behavior is resolved through the
// capability registry at every step; the sequencer itself never changes
// when a family is added.
package interpret

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"loadstone/internal/analysis"
	"loadstone/internal/config"
	"loadstone/internal/ledger"
	"loadstone/internal/llm"
	"loadstone/internal/registry"
	"loadstone/internal/salvage"
	"loadstone/internal/session"
)

// Request carries one interpretation's inputs. Explicit fields override
// the same knob in Settings, which overrides registered defaults.
type Request struct {
	AnalysisType string

	// Model is the fitted model: a family's typed struct, a
	// map[string]any, or raw JSON.
	Model any

	Variables analysis.VariableTable

	// Settings is the optional layered configuration object.
	Settings *config.Settings

	// Explicit per-call overrides (highest precedence).
	ModelID   *string
	WordLimit *int
	Format    *string

	ExtraContext string

	// Session, when non-nil, supplies the conversation; the fixed
	// preamble was already sent with it. The session is mutated in place.
	Session *session.Session
}

// Result is the immutable outcome of one interpretation.
type Result struct {
	AnalysisType string
	Data         *analysis.ExtractedData
	Recovered    *salvage.Result
	Summary      string
	Report       string
	Usage        ledger.CallUsage
	Notices      []string
	Elapsed      time.Duration

	// Plot and ExportMeta are populated only when the family implements
	// the corresponding optional operations; they feed the external
	// plotting and export collaborators.
	Plot       *analysis.PlotData
	ExportMeta map[string]any
}

// Interpreter drives interpretations against one registry and one LLM
// provider. Single-threaded per call: one invocation in flight, no
// internal retries, no timeout of its own beyond what the transport and
// ctx provide.
type Interpreter struct {
	registry *registry.Registry
	provider llm.Provider
	defaults config.Defaults
}

func New(reg *registry.Registry, provider llm.Provider, defaults config.Defaults) *Interpreter {
	return &Interpreter{
		registry: reg,
		provider: provider,
		defaults: defaults,
	}
}

// NewSession creates a long-lived session for one analysis type. The
// system preamble is built once here and rides along with every call on
// the session. The caller owns the session and must Close it.
func (i *Interpreter) NewSession(analysisType string, settings *config.Settings) (*session.Session, error) {
	set, err := i.registry.Resolve(analysisType)
	if err != nil {
		return nil, err
	}
	spOp, err := set.SystemPromptOp(analysisType)
	if err != nil {
		return nil, err
	}

	eff := i.resolve(Request{AnalysisType: analysisType, Settings: settings}, set)
	conv := i.provider.NewConversation(spOp(), eff.llmOptions()...)

	sess := session.New(analysisType, conv)
	slog.Info("session created", "session_id", sess.ID(), "analysis_type", analysisType)
	return sess, nil
}

// Interpret runs the deterministic single-attempt sequence and returns a
// structured result. Extraction, prompt, and capability errors are fatal;
// transport failures surface as *analysis.InvocationError; response
// salvage never fails.
func (i *Interpreter) Interpret(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	slog.Info("starting interpretation", "analysis_type", req.AnalysisType)

	set, err := i.registry.Resolve(req.AnalysisType)
	if err != nil {
		return nil, err
	}
	if req.Session != nil {
		if err := req.Session.CheckType(req.AnalysisType); err != nil {
			return nil, err
		}
	}

	eff := i.resolve(req, set)

	if set.ValidateInput != nil {
		if err := set.ValidateInput(req.Model); err != nil {
			return nil, fmt.Errorf("input validation failed for analysis type %q: %w", req.AnalysisType, err)
		}
	}

	extract, err := set.ExtractOp(req.AnalysisType)
	if err != nil {
		return nil, err
	}
	data, err := extract(req.Model, req.Variables, eff.analysis())
	if err != nil {
		return nil, err
	}

	idsOp, err := set.ComponentIDsOp(req.AnalysisType)
	if err != nil {
		return nil, err
	}
	ids := idsOp(data)

	mainOp, err := set.MainPromptOp(req.AnalysisType)
	if err != nil {
		return nil, err
	}
	prompt := mainOp(data, req.Variables, eff.wordLimit, req.ExtraContext)

	conv, err := i.conversation(req, set)
	if err != nil {
		return nil, err
	}

	before := readTokens(conv, llm.ScopeConversation)
	resp, err := conv.Send(ctx, prompt)
	if err != nil {
		slog.Error("LLM invocation failed", "analysis_type", req.AnalysisType, "error", err)
		return nil, &analysis.InvocationError{Err: err}
	}
	after := readTokens(conv, llm.ScopeConversation)
	delta := ledger.Delta(before, after)
	last := readTokens(conv, llm.ScopeLastExchange)
	usage := ledger.PerCall(last, delta)

	if req.Session != nil {
		req.Session.AddUsage(delta.Input, delta.Output)
		req.Session.RecordPreamble(int64(ledger.Normalize(conv.PreambleTokens())))
		req.Session.CountInterpretation()
	}

	stratOp, err := set.StrategiesOp(req.AnalysisType)
	if err != nil {
		return nil, err
	}
	rec := salvage.Recover(resp.Content, ids, stratOp(), salvage.Options{
		AcceptFraction: eff.acceptFraction,
	})

	notices := wordLimitNotices(rec, eff.wordLimit)
	if fb := rec.FallbackIDs(); len(fb) > 0 {
		slog.Warn("response salvage fell back for some components",
			"analysis_type", req.AnalysisType, "components", fb)
	}

	sumOp, err := set.SummarizeOp(req.AnalysisType)
	if err != nil {
		return nil, err
	}
	summary := sumOp(data, rec)

	repOp, err := set.ReportOp(req.AnalysisType)
	if err != nil {
		return nil, err
	}
	rendered := repOp(data, rec, eff.format)

	res := &Result{
		AnalysisType: req.AnalysisType,
		Data:         data,
		Recovered:    rec,
		Summary:      summary,
		Report:       rendered,
		Usage:        usage,
		Notices:      notices,
		Elapsed:      time.Since(start),
	}

	if set.PlotData != nil {
		plot, err := set.PlotData(data, rec)
		if err != nil {
			slog.Warn("plot data preparation failed", "analysis_type", req.AnalysisType, "error", err)
		} else {
			res.Plot = plot
		}
	}
	if set.ExportMeta != nil {
		res.ExportMeta = set.ExportMeta(data, rec)
	}

	slog.Info("interpretation complete",
		"analysis_type", req.AnalysisType,
		"components", len(ids),
		"fallbacks", len(rec.FallbackIDs()),
		"input_tokens", usage.Input,
		"output_tokens", usage.Output,
		"duration", res.Elapsed)
	return res, nil
}

// conversation returns the session's handle, or builds a one-shot
// conversation whose preamble cost is paid for this call only.
func (i *Interpreter) conversation(req Request, set *registry.CapabilitySet) (llm.Conversation, error) {
	if req.Session != nil {
		if req.Session.Closed() {
			return nil, session.ErrClosed
		}
		return req.Session.Conversation(), nil
	}
	spOp, err := set.SystemPromptOp(req.AnalysisType)
	if err != nil {
		return nil, err
	}
	eff := i.resolve(req, set)
	return i.provider.NewConversation(spOp(), eff.llmOptions()...), nil
}

// readTokens funnels a raw conversation reading through the ledger's
// single normalize point.
func readTokens(conv llm.Conversation, scope llm.TokenScope) ledger.Counts {
	in, out := conv.Tokens(scope)
	return ledger.NormalizeReading(ledger.Reading{Input: in, Output: out})
}

// wordLimitNotices checks interpretations against the advisory word
// limit. Overage is informational, never an error: the limit is prompt
// text, not a wire constraint.
func wordLimitNotices(rec *salvage.Result, wordLimit int) []string {
	if wordLimit <= 0 {
		return nil
	}
	var notices []string
	for _, id := range sortedIDs(rec) {
		e := rec.Entries[id]
		if n := len(strings.Fields(e.Interpretation)); n > wordLimit {
			notices = append(notices, fmt.Sprintf(
				"component %s: interpretation runs %d words, over the advisory limit of %d", id, n, wordLimit))
		}
	}
	return notices
}

func sortedIDs(rec *salvage.Result) []string {
	ids := make([]string, 0, len(rec.Entries))
	for id := range rec.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

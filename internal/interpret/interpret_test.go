package interpret

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadstone/internal/analysis"
	"loadstone/internal/config"
	"loadstone/internal/llm"
	"loadstone/internal/registry"
	"loadstone/internal/report"
	"loadstone/internal/salvage"
	"loadstone/internal/session"
)

// fakeConv replays scripted replies and token readings. Conversation-scope
// readings are NaN before the first exchange, then the scripted cumulative
// pair for the latest call.
type fakeConv struct {
	replies   []string
	convScope [][2]float64
	lastScope [][2]float64
	preamble  float64
	sendErr   error

	calls   int
	prompts []string
}

func (c *fakeConv) Send(_ context.Context, message string) (*llm.Response, error) {
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.prompts = append(c.prompts, message)
	reply := c.replies[c.calls]
	c.calls++
	return &llm.Response{Content: reply}, nil
}

func (c *fakeConv) Tokens(scope llm.TokenScope) (float64, float64) {
	if c.calls == 0 {
		return math.NaN(), math.NaN()
	}
	i := c.calls - 1
	if scope == llm.ScopeConversation {
		return c.convScope[i][0], c.convScope[i][1]
	}
	return c.lastScope[i][0], c.lastScope[i][1]
}

func (c *fakeConv) PreambleTokens() float64 { return c.preamble }

type fakeProvider struct {
	conv      llm.Conversation
	gotSystem string
}

func (p *fakeProvider) NewConversation(systemPrompt string, _ ...llm.Option) llm.Conversation {
	p.gotSystem = systemPrompt
	return p.conv
}

// toySet is a minimal two-component family used to drive the sequencer
// without a real model extraction.
func toySet() *registry.CapabilitySet {
	return &registry.CapabilitySet{
		Extract: func(_ any, _ analysis.VariableTable, _ registry.EffectiveAnalysis) (*analysis.ExtractedData, error) {
			return &analysis.ExtractedData{
				AnalysisType:   "toy",
				Components:     2,
				Variables:      3,
				ComponentNames: []string{"C1", "C2"},
				VariableNames:  []string{"a", "b", "c"},
				Fields:         map[string]any{},
			}, nil
		},
		SystemPrompt: func() string { return "toy system" },
		MainPrompt: func(_ *analysis.ExtractedData, _ analysis.VariableTable, wordLimit int, extraContext string) string {
			return fmt.Sprintf("prompt limit=%d context=%q", wordLimit, extraContext)
		},
		ComponentIDs: func(data *analysis.ExtractedData) []string { return data.ComponentNames },
		DataSection:  func(_ *analysis.ExtractedData, _ report.Format) string { return "" },
		Strategies:   func() []salvage.Strategy { return salvage.DefaultStrategies() },
		Summarize:    func(_ *analysis.ExtractedData, _ *salvage.Result) string { return "toy summary" },
		Report:       func(_ *analysis.ExtractedData, _ *salvage.Result, _ report.Format) string { return "toy report" },
	}
}

const goodReply = `{
	"C1": {"label": "First", "interpretation": "Covers the first thing."},
	"C2": {"label": "Second", "interpretation": "Covers the second thing."}
}`

func newInterpreter(provider llm.Provider, sets map[string]*registry.CapabilitySet) *Interpreter {
	reg := registry.New()
	for id, set := range sets {
		reg.Register(id, set)
	}
	return New(reg, provider, config.BuiltinDefaults())
}

func TestInterpretOneShot(t *testing.T) {
	conv := &fakeConv{
		replies:   []string{goodReply},
		convScope: [][2]float64{{1000, 200}},
		lastScope: [][2]float64{{600, 200}},
		preamble:  400,
	}
	provider := &fakeProvider{conv: conv}
	interp := newInterpreter(provider, map[string]*registry.CapabilitySet{"toy": toySet()})

	res, err := interp.Interpret(context.Background(), Request{AnalysisType: "toy"})
	require.NoError(t, err)

	assert.Equal(t, "toy system", provider.gotSystem)
	assert.Equal(t, "toy", res.AnalysisType)
	assert.Equal(t, "toy summary", res.Summary)
	assert.Equal(t, "toy report", res.Report)
	assert.Empty(t, res.Notices)
	assert.Greater(t, res.Elapsed.Nanoseconds(), int64(0))

	// Per-call usage comes from the last-exchange reading.
	assert.Equal(t, int64(600), res.Usage.Input)
	assert.Equal(t, int64(200), res.Usage.Output)
	assert.False(t, res.Usage.FromDelta)

	require.Contains(t, res.Recovered.Entries, "C1")
	require.Contains(t, res.Recovered.Entries, "C2")
	assert.Equal(t, "First", res.Recovered.Entries["C1"].Label)
	assert.False(t, res.Recovered.Entries["C1"].Fallback())
	assert.Empty(t, res.Recovered.FallbackIDs())
}

func TestInterpretUnregisteredType(t *testing.T) {
	interp := newInterpreter(&fakeProvider{}, nil)

	_, err := interp.Interpret(context.Background(), Request{AnalysisType: "nope"})
	require.Error(t, err)
	var capErr *analysis.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "nope", capErr.AnalysisType)
}

func TestInterpretSendFailure(t *testing.T) {
	transport := errors.New("connection reset")
	conv := &fakeConv{sendErr: transport}
	interp := newInterpreter(&fakeProvider{conv: conv}, map[string]*registry.CapabilitySet{"toy": toySet()})

	_, err := interp.Interpret(context.Background(), Request{AnalysisType: "toy"})
	require.Error(t, err)
	var invErr *analysis.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.ErrorIs(t, err, transport)
}

func TestInterpretMissingSummarize(t *testing.T) {
	set := toySet()
	set.Summarize = nil
	conv := &fakeConv{
		replies:   []string{goodReply},
		convScope: [][2]float64{{100, 50}},
		lastScope: [][2]float64{{100, 50}},
	}
	interp := newInterpreter(&fakeProvider{conv: conv}, map[string]*registry.CapabilitySet{"toy": set})

	_, err := interp.Interpret(context.Background(), Request{AnalysisType: "toy"})
	require.Error(t, err)
	var capErr *analysis.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "summarize", capErr.Operation)
	assert.Contains(t, err.Error(), "summarize")
}

func TestInterpretValidateInputRejects(t *testing.T) {
	set := toySet()
	set.ValidateInput = func(any) error { return errors.New("no loadings") }
	interp := newInterpreter(&fakeProvider{conv: &fakeConv{}}, map[string]*registry.CapabilitySet{"toy": set})

	_, err := interp.Interpret(context.Background(), Request{AnalysisType: "toy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input validation failed")
	assert.Contains(t, err.Error(), "no loadings")
}

func TestInterpretOverrideReachesPrompt(t *testing.T) {
	conv := &fakeConv{
		replies:   []string{goodReply},
		convScope: [][2]float64{{100, 50}},
		lastScope: [][2]float64{{100, 50}},
	}
	interp := newInterpreter(&fakeProvider{conv: conv}, map[string]*registry.CapabilitySet{"toy": toySet()})

	wl := 42
	_, err := interp.Interpret(context.Background(), Request{
		AnalysisType: "toy",
		WordLimit:    &wl,
		ExtraContext: "clinical sample",
	})
	require.NoError(t, err)
	require.Len(t, conv.prompts, 1)
	assert.Equal(t, `prompt limit=42 context="clinical sample"`, conv.prompts[0])
}

func TestInterpretWordLimitNotice(t *testing.T) {
	reply := `{
		"C1": {"label": "First", "interpretation": "one two three four five"},
		"C2": {"label": "Second", "interpretation": "short"}
	}`
	conv := &fakeConv{
		replies:   []string{reply},
		convScope: [][2]float64{{100, 50}},
		lastScope: [][2]float64{{100, 50}},
	}
	interp := newInterpreter(&fakeProvider{conv: conv}, map[string]*registry.CapabilitySet{"toy": toySet()})

	wl := 3
	res, err := interp.Interpret(context.Background(), Request{AnalysisType: "toy", WordLimit: &wl})
	require.NoError(t, err)
	require.Len(t, res.Notices, 1)
	assert.Contains(t, res.Notices[0], "C1")
	assert.Contains(t, res.Notices[0], "advisory limit of 3")
}

func TestInterpretPerCallFallsBackToDelta(t *testing.T) {
	// The last-exchange reading is missing; the clamped conversation delta
	// substitutes, and the usage is flagged.
	conv := &fakeConv{
		replies:   []string{goodReply},
		convScope: [][2]float64{{500, 120}},
		lastScope: [][2]float64{{0, 0}},
	}
	interp := newInterpreter(&fakeProvider{conv: conv}, map[string]*registry.CapabilitySet{"toy": toySet()})

	res, err := interp.Interpret(context.Background(), Request{AnalysisType: "toy"})
	require.NoError(t, err)
	assert.Equal(t, int64(500), res.Usage.Input)
	assert.Equal(t, int64(120), res.Usage.Output)
	assert.True(t, res.Usage.FromDelta)
}

func TestInterpretSessionAccounting(t *testing.T) {
	conv := &fakeConv{
		replies: []string{goodReply, goodReply},
		// Call 2's conversation-scope input moves backwards: the provider
		// stopped charging the cached preamble. The clamp keeps the
		// cumulative counter from going down.
		convScope: [][2]float64{{1000, 200}, {900, 380}},
		lastScope: [][2]float64{{600, 200}, {300, 180}},
		preamble:  400,
	}
	provider := &fakeProvider{conv: conv}
	interp := newInterpreter(provider, map[string]*registry.CapabilitySet{"toy": toySet()})

	sess, err := interp.NewSession("toy", nil)
	require.NoError(t, err)
	defer sess.Close()
	assert.Equal(t, "toy system", provider.gotSystem)
	assert.Equal(t, "toy", sess.AnalysisType())

	res1, err := interp.Interpret(context.Background(), Request{AnalysisType: "toy", Session: sess})
	require.NoError(t, err)
	assert.Equal(t, int64(600), res1.Usage.Input)
	assert.Equal(t, int64(1000), sess.CumulativeInput())
	assert.Equal(t, int64(200), sess.CumulativeOutput())
	assert.Equal(t, int64(400), sess.PreambleTokens())
	assert.Equal(t, 1, sess.Interpretations())

	res2, err := interp.Interpret(context.Background(), Request{AnalysisType: "toy", Session: sess})
	require.NoError(t, err)
	// Input delta clamps to zero; the per-call reading still reports.
	assert.Equal(t, int64(300), res2.Usage.Input)
	assert.Equal(t, int64(180), res2.Usage.Output)
	assert.False(t, res2.Usage.FromDelta)
	assert.Equal(t, int64(1000), sess.CumulativeInput())
	assert.Equal(t, int64(380), sess.CumulativeOutput())
	assert.Equal(t, int64(400), sess.PreambleTokens())
	assert.Equal(t, 2, sess.Interpretations())
}

func TestInterpretSessionTypeMismatch(t *testing.T) {
	conv := &fakeConv{}
	interp := newInterpreter(&fakeProvider{conv: conv}, map[string]*registry.CapabilitySet{
		"toy":   toySet(),
		"other": toySet(),
	})

	sess, err := interp.NewSession("toy", nil)
	require.NoError(t, err)
	defer sess.Close()

	_, err = interp.Interpret(context.Background(), Request{AnalysisType: "other", Session: sess})
	require.Error(t, err)
	var mismatch *analysis.SessionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "toy", mismatch.SessionType)
	assert.Equal(t, "other", mismatch.RequestedType)
}

func TestInterpretClosedSession(t *testing.T) {
	interp := newInterpreter(&fakeProvider{conv: &fakeConv{}}, map[string]*registry.CapabilitySet{"toy": toySet()})

	sess, err := interp.NewSession("toy", nil)
	require.NoError(t, err)
	sess.Close()

	_, err = interp.Interpret(context.Background(), Request{AnalysisType: "toy", Session: sess})
	require.ErrorIs(t, err, session.ErrClosed)
}

package factor

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loadstone/internal/analysis"
	"loadstone/internal/registry"
	"loadstone/internal/report"
	"loadstone/internal/salvage"
)

var testEff = registry.EffectiveAnalysis{LoadingCutoff: 0.3, TopVariables: 7}

func testModel() *Model {
	return &Model{
		Loadings: [][]float64{
			{0.72, 0.05},
			{0.68, -0.10},
			{0.12, 0.81},
			{-0.08, 0.74},
			{0.35, 0.31},
		},
		FactorNames:  []string{"F1", "F2"},
		PropVariance: []float64{0.28, 0.24},
		Rotation:     "oblimin",
		Method:       "minres",
		NObs:         412,
	}
}

func testVars() analysis.VariableTable {
	return analysis.VariableTable{
		{ID: "worry", Description: "I worry about things"},
		{ID: "tense", Description: "I get tense easily"},
		{ID: "social", Description: "I enjoy being around people"},
		{ID: "talk", Description: "I start conversations"},
		{ID: "restless", Description: "I feel restless in groups"},
	}
}

func TestCapabilitiesComplete(t *testing.T) {
	set := Capabilities()
	assert.Empty(t, set.MissingMandatory())
	assert.NotNil(t, set.ValidateInput)
	assert.NotNil(t, set.Example)
	assert.NotNil(t, set.PlotData)
	assert.NotNil(t, set.ExportMeta)
	assert.NotNil(t, set.Defaults)
}

func TestExtractFromTypedModel(t *testing.T) {
	data, err := Extract(testModel(), testVars(), testEff)
	require.NoError(t, err)

	assert.Equal(t, Type, data.AnalysisType)
	assert.Equal(t, 2, data.Components)
	assert.Equal(t, 5, data.Variables)
	assert.Equal(t, []string{"F1", "F2"}, data.ComponentNames)
	// Variable names default to the metadata ids when the model has none.
	assert.Equal(t, []string{"worry", "tense", "social", "talk", "restless"}, data.VariableNames)
	assert.Equal(t, "oblimin", data.Fields["rotation"])
}

func TestExtractFromRawJSON(t *testing.T) {
	raw := json.RawMessage(`{
		"loadings": [[0.7, 0.1], [0.6, 0.2], [0.1, 0.8], [0.2, 0.7], [0.3, 0.3]],
		"rotation": "varimax"
	}`)

	data, err := Extract(raw, testVars(), testEff)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Components)
	// Factor names default to F1..Fk.
	assert.Equal(t, []string{"F1", "F2"}, data.ComponentNames)
}

func TestExtractFromMap(t *testing.T) {
	payload := map[string]any{
		"loadings": [][]float64{{0.7}, {0.6}, {0.5}, {0.4}, {0.3}},
	}
	data, err := Extract(payload, testVars(), testEff)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Components)
}

func TestExtractShapeMismatch(t *testing.T) {
	short := testVars()[:4]

	_, err := Extract(testModel(), short, testEff)
	require.Error(t, err)
	var shapeErr *analysis.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 4, shapeErr.MetadataRows)
	assert.Equal(t, 5, shapeErr.ModelVariables)
	assert.Contains(t, err.Error(), "4")
	assert.Contains(t, err.Error(), "5")
}

func TestExtractRejectsUnusableInput(t *testing.T) {
	_, err := Extract(42, testVars(), testEff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported factor model input")

	_, err = Extract(&Model{}, testVars(), testEff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loadings")

	require.Error(t, ValidateInput(&Model{Loadings: [][]float64{{1}, {1, 2}}}))
	require.NoError(t, ValidateInput(testModel()))
}

func TestMainPromptSectionOrder(t *testing.T) {
	data, err := Extract(testModel(), testVars(), testEff)
	require.NoError(t, err)

	prompt := MainPrompt(data, testVars(), 80, "Survey of undergraduate students.")

	markers := []string{
		"Interpret each factor",               // guidelines
		"Survey of undergraduate students.",   // extra context
		"exploratory factor analysis",         // model info
		"- worry: I worry about things",       // variable descriptions
		"Salient loadings per factor",         // data rendering
		"Respond with a single JSON object",   // output instructions
		`"F1": {"label":`,                     // literal example
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(prompt, m)
		require.GreaterOrEqual(t, idx, 0, "marker %q missing", m)
		assert.Greater(t, idx, last, "marker %q out of order", m)
		last = idx
	}

	assert.Contains(t, prompt, "under 80 words")
}

func TestMainPromptOmitsEmptyContext(t *testing.T) {
	data, err := Extract(testModel(), testVars(), testEff)
	require.NoError(t, err)
	prompt := MainPrompt(data, testVars(), 0, "")
	assert.NotContains(t, prompt, "Additional context")
}

func TestSystemPromptStable(t *testing.T) {
	assert.Equal(t, SystemPrompt(), SystemPrompt())
	assert.Contains(t, SystemPrompt(), "factor")
}

func recovered(ids []string) *salvage.Result {
	res := &salvage.Result{Entries: map[string]salvage.Entry{}}
	for i, id := range ids {
		src := salvage.SourceParsed
		if i == len(ids)-1 {
			src = salvage.SourcePlaceholder
		}
		res.Entries[id] = salvage.Entry{Label: "Label " + id, Interpretation: "Interpretation of " + id, Source: src}
	}
	return res
}

func TestSummarize(t *testing.T) {
	data, err := Extract(testModel(), testVars(), testEff)
	require.NoError(t, err)

	summary := Summarize(data, recovered(data.ComponentNames))
	assert.Contains(t, summary, "2 factors over 5 variables")
	assert.Contains(t, summary, "worry")
	assert.Contains(t, summary, "Low confidence: F2")
}

func TestReportBothModes(t *testing.T) {
	data, err := Extract(testModel(), testVars(), testEff)
	require.NoError(t, err)
	rec := recovered(data.ComponentNames)

	md := Report(data, rec, report.FormatMarkdown)
	assert.Contains(t, md, "# Factor Interpretation")
	assert.Contains(t, md, "## F1: Label F1")
	assert.Contains(t, md, "**[low confidence]**")
	assert.Contains(t, md, "| Variable |")

	text := Report(data, rec, report.FormatText)
	assert.Contains(t, text, "FACTOR INTERPRETATION")
	assert.Contains(t, text, "F1: Label F1")
	assert.NotContains(t, text, "##")
}

func TestPlotDataAndExportMeta(t *testing.T) {
	data, err := Extract(testModel(), testVars(), testEff)
	require.NoError(t, err)
	rec := recovered(data.ComponentNames)

	plot, err := PlotData(data, rec)
	require.NoError(t, err)
	assert.Equal(t, data.ComponentNames, plot.ComponentNames)
	assert.Len(t, plot.Values, 5)

	meta := ExportMeta(data, rec)
	assert.Equal(t, Type, meta["analysis_type"])
	assert.Equal(t, "oblimin", meta["rotation"])
	assert.Equal(t, []string{"F2"}, meta["fallback_ids"])
}

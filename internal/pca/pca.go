// Package pca implements the principal-component-analysis capability
// set. It exists alongside factor to keep the registry honest: a second
// family registered without any orchestrator change.
package pca

import (
	"encoding/json"
	"fmt"
	"strings"

	"loadstone/internal/analysis"
	"loadstone/internal/config"
	"loadstone/internal/registry"
	"loadstone/internal/report"
	"loadstone/internal/salvage"
)

// Type is the analysis-type id this family registers under.
const Type = "pca"

// Register binds the PCA capability set. PCA implements the eight
// mandatory operations plus the Defaults and PlotData optional ones.
func Register(r *registry.Registry) {
	r.Register(Type, &registry.CapabilitySet{
		Extract:      Extract,
		SystemPrompt: SystemPrompt,
		MainPrompt:   MainPrompt,
		ComponentIDs: func(data *analysis.ExtractedData) []string { return data.ComponentNames },
		DataSection:  DataSection,
		Strategies:   func() []salvage.Strategy { return salvage.DefaultStrategies() },
		Summarize:    Summarize,
		Report:       Report,

		PlotData: PlotData,
		Defaults: Defaults,
	})
}

// Defaults: rotated-loading conventions do not apply; PCA surfaces more
// variables per component at a slightly looser cutoff.
func Defaults() config.AnalysisSettings {
	cutoff := 0.25
	top := 10
	return config.AnalysisSettings{
		LoadingCutoff: &cutoff,
		TopVariables:  &top,
	}
}

// Model is the typed fitted-PCA input. Loadings is indexed
// [variable][component]; ExplainedVariance holds per-component variance
// proportions.
type Model struct {
	Loadings          [][]float64 `json:"loadings"`
	VariableNames     []string    `json:"variable_names"`
	ComponentNames    []string    `json:"component_names"`
	ExplainedVariance []float64   `json:"explained_variance"`
	Scaled            bool        `json:"scaled"`
	NObs              int         `json:"n_obs"`
}

// Extract normalizes any accepted fitted-model shape into ExtractedData.
func Extract(model any, vars analysis.VariableTable, eff registry.EffectiveAnalysis) (*analysis.ExtractedData, error) {
	m, err := coerce(model)
	if err != nil {
		return nil, err
	}

	nVars, nComps, ok := analysis.RectangularLoadings(m.Loadings)
	if !ok {
		return nil, fmt.Errorf("PCA model has no usable loadings: supply a non-empty rectangular variables-by-components matrix")
	}
	if err := vars.Validate(nVars); err != nil {
		return nil, err
	}

	variableNames := m.VariableNames
	if len(variableNames) == 0 {
		variableNames = make([]string, nVars)
		for i, v := range vars {
			variableNames[i] = v.ID
		}
	}

	componentNames := m.ComponentNames
	if len(componentNames) == 0 {
		componentNames = make([]string, nComps)
		for j := range componentNames {
			componentNames[j] = fmt.Sprintf("PC%d", j+1)
		}
	}
	if len(componentNames) != nComps {
		return nil, fmt.Errorf("PCA model declares %d component names but the loadings matrix has %d columns", len(componentNames), nComps)
	}

	return &analysis.ExtractedData{
		AnalysisType:   Type,
		Components:     nComps,
		Variables:      nVars,
		VariableNames:  variableNames,
		ComponentNames: componentNames,
		Fields: map[string]any{
			"loadings":           m.Loadings,
			"explained_variance": m.ExplainedVariance,
			"scaled":             m.Scaled,
			"n_obs":              m.NObs,
			"loading_cutoff":     eff.LoadingCutoff,
			"top_variables":      eff.TopVariables,
		},
	}, nil
}

func coerce(model any) (*Model, error) {
	switch m := model.(type) {
	case *Model:
		return m, nil
	case Model:
		return &m, nil
	case json.RawMessage:
		return decode([]byte(m))
	case []byte:
		return decode(m)
	case map[string]any:
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("PCA model payload is not encodable: %w", err)
		}
		return decode(raw)
	default:
		return nil, fmt.Errorf("unsupported PCA model input %T: expected *pca.Model, map[string]any, or raw JSON with a \"loadings\" field", model)
	}
}

func decode(raw []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("PCA model payload is not valid JSON: %w", err)
	}
	return &m, nil
}

var systemPrompt = `You are a statistician interpreting principal component analysis results.
You receive component loadings for named, described variables and explain what each
component represents as a direction of variation in the data.

Rules:
- Ground every interpretation in the variables shown and the sign of their loadings.
- Components are orthogonal directions of variance, not latent constructs; phrase them that way.
- Respond with JSON only, in exactly the format requested. No prose before or after it.`

func SystemPrompt() string { return systemPrompt }

// MainPrompt follows the fixed section order shared by every family.
func MainPrompt(data *analysis.ExtractedData, vars analysis.VariableTable, wordLimit int, extraContext string) string {
	var b strings.Builder

	b.WriteString("Interpret each principal component listed below. For every component, propose a concise\nlabel and an interpretation of the variation it captures.")
	if wordLimit > 0 {
		fmt.Fprintf(&b, "\nKeep each interpretation under %d words.", wordLimit)
	}
	b.WriteString("\n\n")

	if extraContext != "" {
		b.WriteString("Additional context from the analyst:\n")
		b.WriteString(extraContext)
		b.WriteString("\n\n")
	}

	b.WriteString(modelInfo(data))
	b.WriteString("\n\n")

	b.WriteString("Variables:\n")
	for _, v := range vars {
		fmt.Fprintf(&b, "- %s: %s\n", v.ID, v.Description)
	}
	b.WriteString("\n")

	b.WriteString("Salient loadings per component (absolute value, strongest first):\n")
	b.WriteString(promptLoadings(data))
	b.WriteString("\n")

	b.WriteString("Respond with a single JSON object keyed by component name, for example:\n")
	b.WriteString(example(data))
	b.WriteString("\n")

	return b.String()
}

func modelInfo(data *analysis.ExtractedData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model: principal component analysis, %d components over %d variables.",
		data.Components, data.Variables)
	if scaled, _ := data.Fields["scaled"].(bool); scaled {
		b.WriteString(" Variables were standardized.")
	}
	if n, _ := data.Fields["n_obs"].(int); n > 0 {
		fmt.Fprintf(&b, " N = %d observations.", n)
	}
	if ev := explainedVarianceOf(data); len(ev) == data.Components {
		total := 0.0
		for _, v := range ev {
			total += v
		}
		fmt.Fprintf(&b, " Variance explained by retained components: %.1f%%.", total*100)
	}
	return b.String()
}

func promptLoadings(data *analysis.ExtractedData) string {
	loadings := loadingsOf(data)
	cutoff := cutoffOf(data)
	topN := topVariablesOf(data)

	var b strings.Builder
	for j, name := range data.ComponentNames {
		salient := analysis.SalientLoadings(loadings, data.VariableNames, j, cutoff, topN)
		if len(salient) == 0 {
			fmt.Fprintf(&b, "%s: no loadings above |%.2f|\n", name, cutoff)
			continue
		}
		parts := make([]string, len(salient))
		for k, l := range salient {
			parts[k] = fmt.Sprintf("%s (%.2f)", l.Variable, l.Value)
		}
		fmt.Fprintf(&b, "%s: %s\n", name, strings.Join(parts, ", "))
	}
	return b.String()
}

func example(data *analysis.ExtractedData) string {
	id := "PC1"
	if len(data.ComponentNames) > 0 {
		id = data.ComponentNames[0]
	}
	return fmt.Sprintf("{\n  %q: {\"label\": \"Short Name\", \"interpretation\": \"The variation this component captures.\"}\n}\nInclude one entry for every component.", id)
}

// DataSection renders the loadings-plus-variance table.
func DataSection(data *analysis.ExtractedData, f report.Format) string {
	loadings := loadingsOf(data)

	headers := append([]string{"Variable"}, data.ComponentNames...)
	rows := make([][]string, 0, len(data.VariableNames))
	for i, name := range data.VariableNames {
		row := make([]string, 0, len(headers))
		row = append(row, name)
		if i < len(loadings) {
			for _, v := range loadings[i] {
				row = append(row, fmt.Sprintf("%.2f", v))
			}
		}
		rows = append(rows, row)
	}
	if ev := explainedVarianceOf(data); len(ev) == data.Components {
		row := []string{"% variance"}
		for _, v := range ev {
			row = append(row, fmt.Sprintf("%.1f", v*100))
		}
		rows = append(rows, row)
	}

	aligns := make([]bool, len(headers))
	for i := 1; i < len(aligns); i++ {
		aligns[i] = true
	}
	return report.Table(f, headers, rows, aligns)
}

// Summarize builds the PCA diagnostics summary.
func Summarize(data *analysis.ExtractedData, rec *salvage.Result) string {
	loadings := loadingsOf(data)
	cutoff := cutoffOf(data)
	topN := topVariablesOf(data)
	ev := explainedVarianceOf(data)

	var b strings.Builder
	fmt.Fprintf(&b, "%d components over %d variables.\n", data.Components, data.Variables)
	for j, name := range data.ComponentNames {
		entry := rec.Entries[name]
		salient := analysis.SalientLoadings(loadings, data.VariableNames, j, cutoff, topN)
		vars := make([]string, len(salient))
		for k, l := range salient {
			vars[k] = l.Variable
		}
		fmt.Fprintf(&b, "%s (%s): %s", name, entry.Label, strings.Join(vars, ", "))
		if len(ev) > j {
			fmt.Fprintf(&b, "; %.1f%% of variance", ev[j]*100)
		}
		b.WriteString("\n")
	}
	if fb := rec.FallbackIDs(); len(fb) > 0 {
		fmt.Fprintf(&b, "Low confidence: %s could not be read directly from the model response.\n",
			strings.Join(fb, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Report renders the caller-facing PCA report in either mode.
func Report(data *analysis.ExtractedData, rec *salvage.Result, f report.Format) string {
	var b strings.Builder
	b.WriteString(report.Heading(f, 1, "Principal Component Interpretation"))
	b.WriteString("\n\n")
	b.WriteString(modelInfo(data))
	b.WriteString("\n\n")

	for _, name := range data.ComponentNames {
		entry := rec.Entries[name]
		b.WriteString(report.Heading(f, 2, fmt.Sprintf("%s: %s", name, entry.Label)))
		b.WriteString("\n")
		if entry.Fallback() {
			b.WriteString(report.Emphasis(f, "[low confidence]"))
			b.WriteString("\n")
		}
		b.WriteString(entry.Interpretation)
		b.WriteString("\n\n")
	}

	b.WriteString(report.Separator(f))
	b.WriteString("\n")
	b.WriteString(report.Heading(f, 2, "Loadings"))
	b.WriteString("\n")
	b.WriteString(DataSection(data, f))
	b.WriteString("\n")
	return b.String()
}

// PlotData prepares loadings for the external plotting collaborator.
func PlotData(data *analysis.ExtractedData, _ *salvage.Result) (*analysis.PlotData, error) {
	loadings := loadingsOf(data)
	if len(loadings) == 0 {
		return nil, fmt.Errorf("no loadings available to plot")
	}
	return &analysis.PlotData{
		ComponentNames: data.ComponentNames,
		VariableNames:  data.VariableNames,
		Values:         loadings,
	}, nil
}

func loadingsOf(data *analysis.ExtractedData) [][]float64 {
	l, _ := data.Fields["loadings"].([][]float64)
	return l
}

func cutoffOf(data *analysis.ExtractedData) float64 {
	c, ok := data.Fields["loading_cutoff"].(float64)
	if !ok {
		return 0.25
	}
	return c
}

func topVariablesOf(data *analysis.ExtractedData) int {
	n, ok := data.Fields["top_variables"].(int)
	if !ok {
		return 10
	}
	return n
}

func explainedVarianceOf(data *analysis.ExtractedData) []float64 {
	v, _ := data.Fields["explained_variance"].([]float64)
	return v
}

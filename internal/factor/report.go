package factor

import (
	"fmt"
	"strings"

	"loadstone/internal/analysis"
	"loadstone/internal/report"
	"loadstone/internal/salvage"
)

// DataSection renders the full loadings matrix as a table in the
// requested mode.
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

	aligns := make([]bool, len(headers))
	for i := 1; i < len(aligns); i++ {
		aligns[i] = true
	}
	return report.Table(f, headers, rows, aligns)
}

// Summarize builds the diagnostics summary: per-factor dominant
// variables, variance explained, and the low-confidence components the
// salvage pipeline had to fall back on.
func Summarize(data *analysis.ExtractedData, rec *salvage.Result) string {
	loadings := loadingsOf(data)
	cutoff := cutoffOf(data)
	topN := topVariablesOf(data)
	pv := propVarianceOf(data)

	var b strings.Builder
	fmt.Fprintf(&b, "%d factors over %d variables.", data.Components, data.Variables)
	if len(pv) == data.Components {
		total := 0.0
		for _, v := range pv {
			total += v
		}
		fmt.Fprintf(&b, " Variance explained: %.1f%%.", total*100)
	}
	b.WriteString("\n")

	for j, name := range data.ComponentNames {
		entry := rec.Entries[name]
		salient := analysis.SalientLoadings(loadings, data.VariableNames, j, cutoff, topN)
		vars := make([]string, len(salient))
		for k, l := range salient {
			vars[k] = l.Variable
		}
		if len(salient) == 0 {
			fmt.Fprintf(&b, "%s (%s): no variable loads above |%.2f|", name, entry.Label, cutoff)
		} else {
			fmt.Fprintf(&b, "%s (%s): dominated by %s", name, entry.Label, strings.Join(vars, ", "))
		}
		if len(pv) > j {
			fmt.Fprintf(&b, "; %.1f%% of variance", pv[j]*100)
		}
		b.WriteString("\n")
	}

	if fb := rec.FallbackIDs(); len(fb) > 0 {
		fmt.Fprintf(&b, "Low confidence: %s could not be read directly from the model response.\n",
			strings.Join(fb, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Report renders the caller-facing report. Every section supports both
// modes.
func Report(data *analysis.ExtractedData, rec *salvage.Result, f report.Format) string {
	loadings := loadingsOf(data)
	cutoff := cutoffOf(data)
	topN := topVariablesOf(data)

	var b strings.Builder
	b.WriteString(report.Heading(f, 1, "Factor Interpretation"))
	b.WriteString("\n\n")
	b.WriteString(modelInfo(data))
	b.WriteString("\n\n")

	for j, name := range data.ComponentNames {
		entry := rec.Entries[name]

		title := fmt.Sprintf("%s: %s", name, entry.Label)
		b.WriteString(report.Heading(f, 2, title))
		b.WriteString("\n")
		if entry.Fallback() {
			b.WriteString(report.Emphasis(f, "[low confidence]"))
			b.WriteString("\n")
		}
		b.WriteString(entry.Interpretation)
		b.WriteString("\n\n")

		salient := analysis.SalientLoadings(loadings, data.VariableNames, j, cutoff, topN)
		if len(salient) > 0 {
			items := make([]string, len(salient))
			for k, l := range salient {
				items[k] = fmt.Sprintf("%s (%.2f)", l.Variable, l.Value)
			}
			b.WriteString(report.Bullets(f, items))
			b.WriteString("\n\n")
		}
	}

	b.WriteString(report.Separator(f))
	b.WriteString("\n")
	b.WriteString(report.Heading(f, 2, "Loadings"))
	b.WriteString("\n")
	b.WriteString(DataSection(data, f))
	b.WriteString("\n")
	return b.String()
}

// PlotData prepares the loadings for the external plotting collaborator.
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

// ExportMeta prepares descriptive metadata for the external export
// collaborator.
func ExportMeta(data *analysis.ExtractedData, rec *salvage.Result) map[string]any {
	meta := map[string]any{
		"analysis_type": data.AnalysisType,
		"components":    data.Components,
		"variables":     data.Variables,
		"fallback_ids":  rec.FallbackIDs(),
	}
	if rot, _ := data.Fields["rotation"].(string); rot != "" {
		meta["rotation"] = rot
	}
	if method, _ := data.Fields["method"].(string); method != "" {
		meta["method"] = method
	}
	return meta
}

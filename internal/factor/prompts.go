package factor

import (
	"fmt"
	"strings"

	"loadstone/internal/analysis"
)

var systemPrompt = `You are a psychometrician interpreting exploratory factor analysis results.
You receive factor loadings for named, described variables and produce a short substantive
interpretation of each factor: what underlying construct the loading pattern suggests.

Rules:
- Ground every interpretation in the variables that load on the factor and the sign of their loadings.
- A negative loading means the variable runs opposite to the factor; say so when it matters.
- Do not speculate beyond the variables shown. Do not mention factor analysis mechanics.
- Respond with JSON only, in exactly the format requested. No prose before or after it.`

// SystemPrompt returns the fixed EFA persona and rules. Built once per
// call, or once per session.
func SystemPrompt() string {
	return systemPrompt
}

var guidelines = `Interpret each factor listed below. For every factor, propose a concise label
(2-5 words) naming the construct, and an interpretation explaining what the loading
pattern means in terms of the variables' descriptions.`

// MainPrompt assembles the per-call instructions. Section order is fixed:
// guidelines, optional extra context, model info, variable descriptions,
// loading rendering, then the output-format instructions with a literal
// example.
func MainPrompt(data *analysis.ExtractedData, vars analysis.VariableTable, wordLimit int, extraContext string) string {
	var b strings.Builder

	b.WriteString(guidelines)
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

	b.WriteString("Salient loadings per factor (absolute value, strongest first):\n")
	b.WriteString(promptLoadings(data))
	b.WriteString("\n")

	b.WriteString("Respond with a single JSON object keyed by factor name, for example:\n")
	b.WriteString(Example(data))
	b.WriteString("\n")

	return b.String()
}

// ComponentIDs lists the factor names a response must cover, in order.
func ComponentIDs(data *analysis.ExtractedData) []string {
	return data.ComponentNames
}

func modelInfo(data *analysis.ExtractedData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Model: exploratory factor analysis, %d factors over %d variables.",
		data.Components, data.Variables)
	if rot, _ := data.Fields["rotation"].(string); rot != "" {
		fmt.Fprintf(&b, " Rotation: %s.", rot)
	}
	if method, _ := data.Fields["method"].(string); method != "" {
		fmt.Fprintf(&b, " Extraction method: %s.", method)
	}
	if n, _ := data.Fields["n_obs"].(int); n > 0 {
		fmt.Fprintf(&b, " N = %d observations.", n)
	}
	if pv := propVarianceOf(data); len(pv) == len(data.ComponentNames) {
		total := 0.0
		for _, v := range pv {
			total += v
		}
		fmt.Fprintf(&b, " Variance explained: %.1f%%.", total*100)
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

// Example renders the literal output example embedded in the prompt: the
// expected JSON shape keyed by the actual factor names.
func Example(data *analysis.ExtractedData) string {
	ids := data.ComponentNames
	if len(ids) == 0 {
		ids = []string{"F1"}
	}
	shown := ids
	if len(shown) > 2 {
		shown = shown[:2]
	}
	var b strings.Builder
	b.WriteString("{\n")
	for i, id := range shown {
		fmt.Fprintf(&b, "  %q: {\"label\": \"Short Construct Name\", \"interpretation\": \"What this factor captures and why.\"}", id)
		if i < len(shown)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	if len(ids) > len(shown) {
		fmt.Fprintf(&b, "\nInclude one entry for every factor, %s through %s.", ids[0], ids[len(ids)-1])
	}
	return b.String()
}

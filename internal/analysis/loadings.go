package analysis

import (
	"math"
	"sort"
)

// SalientLoadings returns the loadings of one component that clear the
// absolute-value cutoff, strongest first, capped at topN. A topN of zero
// or less means no cap.
func SalientLoadings(loadings [][]float64, variableNames []string, component int, cutoff float64, topN int) []Loading {
	var out []Loading
	for i, row := range loadings {
		if component >= len(row) {
			continue
		}
		v := row[component]
		if math.IsNaN(v) || math.Abs(v) < cutoff {
			continue
		}
		name := ""
		if i < len(variableNames) {
			name = variableNames[i]
		}
		out = append(out, Loading{Variable: name, Value: v})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return math.Abs(out[a].Value) > math.Abs(out[b].Value)
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// RectangularLoadings checks that a loadings matrix is non-empty and that
// every row has the same number of columns, returning the dimensions.
func RectangularLoadings(loadings [][]float64) (rows, cols int, ok bool) {
	if len(loadings) == 0 || len(loadings[0]) == 0 {
		return 0, 0, false
	}
	cols = len(loadings[0])
	for _, row := range loadings {
		if len(row) != cols {
			return 0, 0, false
		}
	}
	return len(loadings), cols, true
}

package factor

import (
	"encoding/json"
	"fmt"

	"loadstone/internal/analysis"
	"loadstone/internal/registry"
)

// Model is the typed fitted-EFA input. Loadings is indexed
// [variable][factor].
type Model struct {
	Loadings      [][]float64 `json:"loadings"`
	VariableNames []string    `json:"variable_names"`
	FactorNames   []string    `json:"factor_names"`
	Uniquenesses  []float64   `json:"uniquenesses"`
	PropVariance  []float64   `json:"prop_variance"`
	Rotation      string      `json:"rotation"`
	Method        string      `json:"method"`
	NObs          int         `json:"n_obs"`
}

// Extract normalizes any accepted fitted-model shape into ExtractedData.
// Accepted shapes: *Model, Model, map[string]any, json.RawMessage/[]byte.
func Extract(model any, vars analysis.VariableTable, eff registry.EffectiveAnalysis) (*analysis.ExtractedData, error) {
	m, err := coerce(model)
	if err != nil {
		return nil, err
	}

	nVars, nFactors, ok := analysis.RectangularLoadings(m.Loadings)
	if !ok {
		return nil, fmt.Errorf("factor model has no usable loadings: supply a non-empty rectangular variables-by-factors matrix")
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
	if len(variableNames) != nVars {
		return nil, &analysis.ShapeError{
			MetadataRows:   len(variableNames),
			ModelVariables: nVars,
			Detail:         "variable_names length does not match the loadings matrix",
		}
	}

	factorNames := m.FactorNames
	if len(factorNames) == 0 {
		factorNames = make([]string, nFactors)
		for j := range factorNames {
			factorNames[j] = fmt.Sprintf("F%d", j+1)
		}
	}
	if len(factorNames) != nFactors {
		return nil, fmt.Errorf("factor model declares %d factor names but the loadings matrix has %d columns", len(factorNames), nFactors)
	}

	return &analysis.ExtractedData{
		AnalysisType:   Type,
		Components:     nFactors,
		Variables:      nVars,
		VariableNames:  variableNames,
		ComponentNames: factorNames,
		Fields: map[string]any{
			"loadings":       m.Loadings,
			"uniquenesses":   m.Uniquenesses,
			"prop_variance":  m.PropVariance,
			"rotation":       m.Rotation,
			"method":         m.Method,
			"n_obs":          m.NObs,
			"loading_cutoff": eff.LoadingCutoff,
			"top_variables":  eff.TopVariables,
		},
	}, nil
}

// ValidateInput is the optional pre-extraction check: the input must be a
// shape coerce understands and must contain a loadings matrix at all.
func ValidateInput(model any) error {
	m, err := coerce(model)
	if err != nil {
		return err
	}
	if _, _, ok := analysis.RectangularLoadings(m.Loadings); !ok {
		return fmt.Errorf("factor model has no usable loadings: supply a non-empty rectangular variables-by-factors matrix")
	}
	return nil
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
			return nil, fmt.Errorf("factor model payload is not encodable: %w", err)
		}
		return decode(raw)
	default:
		return nil, fmt.Errorf("unsupported factor model input %T: expected *factor.Model, map[string]any, or raw JSON with a \"loadings\" field", model)
	}
}

func decode(raw []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("factor model payload is not valid JSON: %w", err)
	}
	return &m, nil
}

// Field accessors used by the prompt and report builders; extraction
// guarantees the types.

func loadingsOf(data *analysis.ExtractedData) [][]float64 {
	l, _ := data.Fields["loadings"].([][]float64)
	return l
}

func cutoffOf(data *analysis.ExtractedData) float64 {
	c, ok := data.Fields["loading_cutoff"].(float64)
	if !ok {
		return 0.3
	}
	return c
}

func topVariablesOf(data *analysis.ExtractedData) int {
	n, ok := data.Fields["top_variables"].(int)
	if !ok {
		return 7
	}
	return n
}

func propVarianceOf(data *analysis.ExtractedData) []float64 {
	v, _ := data.Fields["prop_variance"].([]float64)
	return v
}

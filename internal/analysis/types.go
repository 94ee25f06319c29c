// Package analysis holds the data model shared by every analysis family:
// the normalized extraction output, the variable-metadata table, and the
// error taxonomy callers are expected to match on.
package analysis

import "strconv"

// ExtractedData is the normalized output of a family's extraction step.
// Whatever shape the fitted model arrived in, extraction reduces it to
// these five universal fields plus family-specific entries in Fields.
// Treat a produced ExtractedData as immutable.
type ExtractedData struct {
	AnalysisType   string
	Components     int
	Variables      int
	VariableNames  []string
	ComponentNames []string

	// Fields carries family-specific data (loadings, variance shares,
	// rotation method, ...). Keys are family-defined.
	Fields map[string]any
}

// Variable is one row of the caller-supplied metadata table.
type Variable struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// VariableTable is the caller-supplied metadata table: one row per model
// variable, identifier plus human-readable description.
type VariableTable []Variable

// Validate checks the table against the fitted model's variable count.
func (t VariableTable) Validate(modelVariables int) error {
	if len(t) != modelVariables {
		return &ShapeError{MetadataRows: len(t), ModelVariables: modelVariables}
	}
	for i, v := range t {
		if v.ID == "" {
			return &ShapeError{
				MetadataRows:   len(t),
				ModelVariables: modelVariables,
				Detail:         "metadata row " + strconv.Itoa(i) + " has an empty identifier",
			}
		}
	}
	return nil
}

// Description returns the description for a variable id, or the id itself
// when the table has no row for it.
func (t VariableTable) Description(id string) string {
	for _, v := range t {
		if v.ID == id {
			return v.Description
		}
	}
	return id
}

// Loading pairs a variable with its loading on one component.
type Loading struct {
	Variable string
	Value    float64
}

// PlotData is the payload handed to an external plotting collaborator.
// loadstone only prepares it; rendering is out of scope.
type PlotData struct {
	ComponentNames []string
	VariableNames  []string
	// Values is indexed [variable][component].
	Values [][]float64
}


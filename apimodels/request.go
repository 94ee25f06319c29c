package apimodels

import "encoding/json"

type InterpretRequest struct {
	// AnalysisType selects the registered capability set (e.g. "efa").
	AnalysisType string `json:"analysisType"`

	// Model is the fitted-model payload; its shape is family-specific
	// and decoded by the family's extractor.
	Model json.RawMessage `json:"model"`

	// Variables is the metadata table: one row per model variable.
	Variables []VariableInfo `json:"variables"`

	// Optional parameters layered under any explicit arguments.
	Options InterpretOptions `json:"options,omitempty"`
}

type VariableInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type InterpretOptions struct {
	// Model specifies which LLM model to use (e.g. "gpt-4o-mini")
	Model string `json:"model,omitempty"`

	// WordLimit is the advisory per-component interpretation length.
	WordLimit int `json:"wordLimit,omitempty"`

	// Temperature controls randomness (0.0-1.0)
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens limits the LLM response length
	MaxTokens int64 `json:"maxTokens,omitempty"`

	// Format selects report rendering: "text" (default) or "markdown".
	Format string `json:"format,omitempty"`

	// ExtraContext is analyst-supplied background embedded in the prompt.
	ExtraContext string `json:"extraContext,omitempty"`

	// LoadingCutoff overrides the salient-loading threshold.
	LoadingCutoff float64 `json:"loadingCutoff,omitempty"`

	// TopVariables overrides how many variables are surfaced per component.
	TopVariables int `json:"topVariables,omitempty"`

	// AcceptFraction overrides the response-validation threshold.
	AcceptFraction float64 `json:"acceptFraction,omitempty"`
}

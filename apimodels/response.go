package apimodels

type InterpretResponse struct {
	AnalysisType string `json:"analysisType"`

	// Components maps component id to its recovered interpretation;
	// callers never see raw LLM text.
	Components map[string]ComponentInterpretation `json:"components"`

	// Summary is the diagnostics summary.
	Summary string `json:"summary"`

	// Report is the rendered report in the requested format.
	Report string `json:"report"`

	// Notices carries informational findings such as word-limit overage.
	Notices []string `json:"notices,omitempty"`

	Metadata InterpretMetadata `json:"metadata"`
}

type ComponentInterpretation struct {
	Label          string `json:"label"`
	Interpretation string `json:"interpretation"`

	// Fallback marks low-confidence entries that were pattern-extracted
	// or placeholder-filled rather than parsed from the response.
	Fallback bool `json:"fallback,omitempty"`
}

type InterpretMetadata struct {
	// Time taken for the interpretation
	Duration string `json:"duration"`

	// Per-call token accounting, preamble excluded
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`

	// UsageFromDelta marks per-call counts substituted from the
	// conversation delta.
	UsageFromDelta bool `json:"usageFromDelta,omitempty"`

	Components int `json:"components"`
	Fallbacks  int `json:"fallbacks"`
}

type TypesResponse struct {
	Types []string `json:"types"`
}

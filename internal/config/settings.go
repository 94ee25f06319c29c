package config

// Settings is the layered per-request configuration object. Every field is
// a pointer so that "not supplied" is distinguishable from a zero value;
// unset fields fall through to the interpreter's registered defaults.
type Settings struct {
	LLM      LLMSettings      `json:"llm" mapstructure:"llm"`
	Analysis AnalysisSettings `json:"analysis" mapstructure:"analysis"`
	Output   OutputSettings   `json:"output" mapstructure:"output"`
}

type LLMSettings struct {
	Model       *string  `json:"model,omitempty" mapstructure:"model"`
	WordLimit   *int     `json:"word_limit,omitempty" mapstructure:"word_limit"`
	Temperature *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   *int64   `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

type AnalysisSettings struct {
	// LoadingCutoff is the minimum absolute loading considered salient.
	LoadingCutoff *float64 `json:"loading_cutoff,omitempty" mapstructure:"loading_cutoff"`
	// TopVariables caps how many salient variables are shown per component.
	TopVariables *int `json:"top_variables,omitempty" mapstructure:"top_variables"`
	// AcceptFraction is the validate-tier acceptance threshold: the
	// fraction of expected component ids that must be present in a
	// parsed response for it to be accepted without pattern extraction.
	AcceptFraction *float64 `json:"accept_fraction,omitempty" mapstructure:"accept_fraction"`
}

type OutputSettings struct {
	// Format selects report rendering: "text" or "markdown".
	Format  *string `json:"format,omitempty" mapstructure:"format"`
	Verbose *bool   `json:"verbose,omitempty" mapstructure:"verbose"`
}

// Defaults is the bottom layer of the precedence chain, registered once at
// startup (built-ins, optionally overridden by a defaults file).
type Defaults struct {
	Model          string  `mapstructure:"model"`
	WordLimit      int     `mapstructure:"word_limit"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int64   `mapstructure:"max_tokens"`
	LoadingCutoff  float64 `mapstructure:"loading_cutoff"`
	TopVariables   int     `mapstructure:"top_variables"`
	AcceptFraction float64 `mapstructure:"accept_fraction"`
	Format         string  `mapstructure:"format"`
	Verbose        bool    `mapstructure:"verbose"`
}

// BuiltinDefaults returns the compiled-in bottom layer.
func BuiltinDefaults() Defaults {
	return Defaults{
		Model:          "gpt-4o-mini",
		WordLimit:      100,
		Temperature:    0,
		MaxTokens:      2000,
		LoadingCutoff:  0.3,
		TopVariables:   7,
		AcceptFraction: 0.5,
		Format:         "text",
		Verbose:        false,
	}
}

// Pick resolves one configuration value through the shared precedence
// chain: explicit argument, then the field of a supplied settings object,
// then the registered default. This is the only merge function; every
// knob in the system resolves through it.
func Pick[T any](explicit, configured *T, fallback T) T {
	if explicit != nil {
		return *explicit
	}
	if configured != nil {
		return *configured
	}
	return fallback
}

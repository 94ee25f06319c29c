package registry

import (
	"loadstone/internal/analysis"
	"loadstone/internal/config"
	"loadstone/internal/report"
	"loadstone/internal/salvage"
)

// EffectiveAnalysis is the fully resolved analysis knobs handed to
// family operations (never pointers; precedence was already applied).
type EffectiveAnalysis struct {
	LoadingCutoff float64
	TopVariables  int
}

// Operation handle signatures. Each family supplies implementations of
// the mandatory eight and any of the optional five.
type (
	// ExtractFunc normalizes a fitted model (typed struct, map, or raw
	// JSON) into ExtractedData, validating the metadata table.
	ExtractFunc func(model any, vars analysis.VariableTable, eff EffectiveAnalysis) (*analysis.ExtractedData, error)

	// SystemPromptFunc builds the fixed persona-and-rules preamble.
	SystemPromptFunc func() string

	// MainPromptFunc builds the per-call instructions: guidelines, extra
	// context, model info, variable descriptions, data rendering, and the
	// output-format instructions, in that order.
	MainPromptFunc func(data *analysis.ExtractedData, vars analysis.VariableTable, wordLimit int, extraContext string) string

	// ComponentIDsFunc lists the component ids an LLM response is
	// expected to cover, in order.
	ComponentIDsFunc func(data *analysis.ExtractedData) []string

	// DataSectionFunc renders the family's primary data for reports.
	DataSectionFunc func(data *analysis.ExtractedData, f report.Format) string

	// StrategiesFunc supplies the pattern-extraction chain for this
	// family, strictest first.
	StrategiesFunc func() []salvage.Strategy

	// SummarizeFunc builds the diagnostics summary.
	SummarizeFunc func(data *analysis.ExtractedData, rec *salvage.Result) string

	// ReportFunc renders the final report in the requested mode.
	ReportFunc func(data *analysis.ExtractedData, rec *salvage.Result, f report.Format) string

	// Optional operations.
	ValidateInputFunc func(model any) error
	ExampleFunc       func(data *analysis.ExtractedData) string
	PlotDataFunc      func(data *analysis.ExtractedData, rec *salvage.Result) (*analysis.PlotData, error)
	ExportMetaFunc    func(data *analysis.ExtractedData, rec *salvage.Result) map[string]any
	DefaultsFunc      func() config.AnalysisSettings
)

// CapabilitySet bundles the operation handles for one analysis family:
// eight mandatory, up to five optional. Nil mandatory handles are legal
// at registration and fail only when invoked.
type CapabilitySet struct {
	Extract      ExtractFunc
	SystemPrompt SystemPromptFunc
	MainPrompt   MainPromptFunc
	ComponentIDs ComponentIDsFunc
	DataSection  DataSectionFunc
	Strategies   StrategiesFunc
	Summarize    SummarizeFunc
	Report       ReportFunc

	ValidateInput ValidateInputFunc
	Example       ExampleFunc
	PlotData      PlotDataFunc
	ExportMeta    ExportMetaFunc
	Defaults      DefaultsFunc
}

func missing(analysisType, op string) error {
	return &analysis.CapabilityError{AnalysisType: analysisType, Operation: op}
}

// The mandatory-operation accessors return the handle or a
// CapabilityError naming the specific missing operation.

func (s *CapabilitySet) ExtractOp(analysisType string) (ExtractFunc, error) {
	if s.Extract == nil {
		return nil, missing(analysisType, "extract")
	}
	return s.Extract, nil
}

func (s *CapabilitySet) SystemPromptOp(analysisType string) (SystemPromptFunc, error) {
	if s.SystemPrompt == nil {
		return nil, missing(analysisType, "system_prompt")
	}
	return s.SystemPrompt, nil
}

func (s *CapabilitySet) MainPromptOp(analysisType string) (MainPromptFunc, error) {
	if s.MainPrompt == nil {
		return nil, missing(analysisType, "main_prompt")
	}
	return s.MainPrompt, nil
}

func (s *CapabilitySet) ComponentIDsOp(analysisType string) (ComponentIDsFunc, error) {
	if s.ComponentIDs == nil {
		return nil, missing(analysisType, "component_ids")
	}
	return s.ComponentIDs, nil
}

func (s *CapabilitySet) DataSectionOp(analysisType string) (DataSectionFunc, error) {
	if s.DataSection == nil {
		return nil, missing(analysisType, "data_section")
	}
	return s.DataSection, nil
}

func (s *CapabilitySet) StrategiesOp(analysisType string) (StrategiesFunc, error) {
	if s.Strategies == nil {
		return nil, missing(analysisType, "strategies")
	}
	return s.Strategies, nil
}

func (s *CapabilitySet) SummarizeOp(analysisType string) (SummarizeFunc, error) {
	if s.Summarize == nil {
		return nil, missing(analysisType, "summarize")
	}
	return s.Summarize, nil
}

func (s *CapabilitySet) ReportOp(analysisType string) (ReportFunc, error) {
	if s.Report == nil {
		return nil, missing(analysisType, "report")
	}
	return s.Report, nil
}

// MissingMandatory names the mandatory operations a set was registered
// without. Diagnostic only; resolution never calls it.
func (s *CapabilitySet) MissingMandatory() []string {
	var out []string
	if s.Extract == nil {
		out = append(out, "extract")
	}
	if s.SystemPrompt == nil {
		out = append(out, "system_prompt")
	}
	if s.MainPrompt == nil {
		out = append(out, "main_prompt")
	}
	if s.ComponentIDs == nil {
		out = append(out, "component_ids")
	}
	if s.DataSection == nil {
		out = append(out, "data_section")
	}
	if s.Strategies == nil {
		out = append(out, "strategies")
	}
	if s.Summarize == nil {
		out = append(out, "summarize")
	}
	if s.Report == nil {
		out = append(out, "report")
	}
	return out
}

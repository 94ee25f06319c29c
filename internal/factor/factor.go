// Package factor implements the exploratory-factor-analysis capability
// set: extraction from fitted EFA output, the prompt pair, and the
// diagnostics and report builders. Registering this package's set is all
// it takes to make the orchestrator speak EFA.
package factor

import (
	"loadstone/internal/config"
	"loadstone/internal/registry"
	"loadstone/internal/salvage"
)

// Type is the analysis-type id this family registers under.
const Type = "efa"

// Register binds the EFA capability set.
func Register(r *registry.Registry) {
	r.Register(Type, Capabilities())
}

// Capabilities returns the full EFA operation set: all eight mandatory
// operations and all five optional ones.
func Capabilities() *registry.CapabilitySet {
	return &registry.CapabilitySet{
		Extract:      Extract,
		SystemPrompt: SystemPrompt,
		MainPrompt:   MainPrompt,
		ComponentIDs: ComponentIDs,
		DataSection:  DataSection,
		Strategies:   func() []salvage.Strategy { return salvage.DefaultStrategies() },
		Summarize:    Summarize,
		Report:       Report,

		ValidateInput: ValidateInput,
		Example:       Example,
		PlotData:      PlotData,
		ExportMeta:    ExportMeta,
		Defaults:      Defaults,
	}
}

// Defaults supplies EFA's analysis-knob layer: salient loadings start at
// |0.30| and at most seven variables are surfaced per factor.
func Defaults() config.AnalysisSettings {
	cutoff := 0.3
	top := 7
	return config.AnalysisSettings{
		LoadingCutoff: &cutoff,
		TopVariables:  &top,
	}
}

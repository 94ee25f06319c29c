package interpret

import (
	"loadstone/internal/config"
	"loadstone/internal/llm"
	"loadstone/internal/registry"
	"loadstone/internal/report"
)

// effective holds every knob after precedence resolution: explicit
// argument, then settings-object field, then family defaults, then the
// registered global defaults.
type effective struct {
	modelID        string
	wordLimit      int
	temperature    float64
	maxTokens      int64
	loadingCutoff  float64
	topVariables   int
	acceptFraction float64
	format         report.Format
	verbose        bool
}

func (i *Interpreter) resolve(req Request, set *registry.CapabilitySet) effective {
	s := req.Settings
	if s == nil {
		s = &config.Settings{}
	}

	// Family-supplied analysis defaults sit between the settings object
	// and the global defaults.
	famCutoff := i.defaults.LoadingCutoff
	famTop := i.defaults.TopVariables
	famAccept := i.defaults.AcceptFraction
	if set != nil && set.Defaults != nil {
		fam := set.Defaults()
		famCutoff = config.Pick(nil, fam.LoadingCutoff, famCutoff)
		famTop = config.Pick(nil, fam.TopVariables, famTop)
		famAccept = config.Pick(nil, fam.AcceptFraction, famAccept)
	}

	formatFlag := config.Pick(req.Format, s.Output.Format, i.defaults.Format)

	return effective{
		modelID:        config.Pick(req.ModelID, s.LLM.Model, i.defaults.Model),
		wordLimit:      config.Pick(req.WordLimit, s.LLM.WordLimit, i.defaults.WordLimit),
		temperature:    config.Pick(nil, s.LLM.Temperature, i.defaults.Temperature),
		maxTokens:      config.Pick(nil, s.LLM.MaxTokens, i.defaults.MaxTokens),
		loadingCutoff:  config.Pick(nil, s.Analysis.LoadingCutoff, famCutoff),
		topVariables:   config.Pick(nil, s.Analysis.TopVariables, famTop),
		acceptFraction: config.Pick(nil, s.Analysis.AcceptFraction, famAccept),
		format:         report.ParseFormat(formatFlag),
		verbose:        config.Pick(nil, s.Output.Verbose, i.defaults.Verbose),
	}
}

func (e effective) analysis() registry.EffectiveAnalysis {
	return registry.EffectiveAnalysis{
		LoadingCutoff: e.loadingCutoff,
		TopVariables:  e.topVariables,
	}
}

func (e effective) llmOptions() []llm.Option {
	return []llm.Option{func(o *llm.Options) {
		o.Model = e.modelID
		o.Temperature = e.temperature
		o.MaxTokens = e.maxTokens
	}}
}

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"loadstone/apimodels"
	"loadstone/internal/analysis"
	"loadstone/internal/config"
	"loadstone/internal/interpret"
)

func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	var req apimodels.InterpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.AnalysisType == "" {
		http.Error(w, "analysisType is required", http.StatusBadRequest)
		return
	}
	if len(req.Model) == 0 {
		http.Error(w, "model payload is required", http.StatusBadRequest)
		return
	}

	slog.Debug("Received interpret request", "analysis_type", req.AnalysisType)

	result, err := s.interpreter.Interpret(r.Context(), toRequest(req))
	if err != nil {
		slog.Error("Interpret request failed", "analysis_type", req.AnalysisType, "error", err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, toResponse(result))
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, apimodels.TypesResponse{Types: s.registry.Types()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func toRequest(req apimodels.InterpretRequest) interpret.Request {
	vars := make(analysis.VariableTable, len(req.Variables))
	for i, v := range req.Variables {
		vars[i] = analysis.Variable{ID: v.ID, Description: v.Description}
	}

	settings := &config.Settings{}
	opt := req.Options
	if opt.Model != "" {
		settings.LLM.Model = &opt.Model
	}
	if opt.WordLimit != 0 {
		settings.LLM.WordLimit = &opt.WordLimit
	}
	if opt.Temperature != 0 {
		settings.LLM.Temperature = &opt.Temperature
	}
	if opt.MaxTokens != 0 {
		settings.LLM.MaxTokens = &opt.MaxTokens
	}
	if opt.Format != "" {
		settings.Output.Format = &opt.Format
	}
	if opt.LoadingCutoff != 0 {
		settings.Analysis.LoadingCutoff = &opt.LoadingCutoff
	}
	if opt.TopVariables != 0 {
		settings.Analysis.TopVariables = &opt.TopVariables
	}
	if opt.AcceptFraction != 0 {
		settings.Analysis.AcceptFraction = &opt.AcceptFraction
	}

	return interpret.Request{
		AnalysisType: req.AnalysisType,
		Model:        req.Model,
		Variables:    vars,
		Settings:     settings,
		ExtraContext: opt.ExtraContext,
	}
}

func toResponse(res *interpret.Result) apimodels.InterpretResponse {
	components := make(map[string]apimodels.ComponentInterpretation, len(res.Recovered.Entries))
	for id, e := range res.Recovered.Entries {
		components[id] = apimodels.ComponentInterpretation{
			Label:          e.Label,
			Interpretation: e.Interpretation,
			Fallback:       e.Fallback(),
		}
	}

	return apimodels.InterpretResponse{
		AnalysisType: res.AnalysisType,
		Components:   components,
		Summary:      res.Summary,
		Report:       res.Report,
		Notices:      res.Notices,
		Metadata: apimodels.InterpretMetadata{
			Duration:       res.Elapsed.String(),
			InputTokens:    res.Usage.Input,
			OutputTokens:   res.Usage.Output,
			UsageFromDelta: res.Usage.FromDelta,
			Components:     len(res.Recovered.Entries),
			Fallbacks:      len(res.Recovered.FallbackIDs()),
		},
	}
}

// statusFor maps the error taxonomy onto HTTP statuses: caller errors are
// 400s, transport failures are 502, everything else 500.
func statusFor(err error) int {
	var capErr *analysis.CapabilityError
	var shapeErr *analysis.ShapeError
	var mismatchErr *analysis.SessionMismatchError
	var invErr *analysis.InvocationError
	switch {
	case errors.As(err, &capErr), errors.As(err, &shapeErr), errors.As(err, &mismatchErr):
		return http.StatusBadRequest
	case errors.As(err, &invErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

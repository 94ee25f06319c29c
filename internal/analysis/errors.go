package analysis

import "fmt"

// CapabilityError reports an analysis type that is not registered, or a
// registered type missing one of its operations. Caller error, not retryable.
type CapabilityError struct {
	AnalysisType string
	// Operation is empty when the whole type is unregistered.
	Operation string
}

func (e *CapabilityError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("analysis type %q is not registered; register a capability set for it before interpreting", e.AnalysisType)
	}
	return fmt.Sprintf("analysis type %q does not implement the %q operation; its capability set was registered without it", e.AnalysisType, e.Operation)
}

// Is matches any other CapabilityError for the same type and operation.
func (e *CapabilityError) Is(target error) bool {
	t, ok := target.(*CapabilityError)
	if !ok {
		return false
	}
	return e.AnalysisType == t.AnalysisType && e.Operation == t.Operation
}

// ShapeError reports a structural mismatch between the variable-metadata
// table and the fitted model. Caller error, not retryable.
type ShapeError struct {
	MetadataRows   int
	ModelVariables int
	Detail         string
}

func (e *ShapeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("variable metadata does not match the model: %s (metadata has %d rows, model has %d variables)",
			e.Detail, e.MetadataRows, e.ModelVariables)
	}
	return fmt.Sprintf("variable metadata has %d rows but the model has %d variables; supply one metadata row per model variable",
		e.MetadataRows, e.ModelVariables)
}

// SessionMismatchError reports a session reused for a different analysis
// type than the one it was created for. Caller error, not retryable.
type SessionMismatchError struct {
	SessionType   string
	RequestedType string
}

func (e *SessionMismatchError) Error() string {
	return fmt.Sprintf("session was created for analysis type %q and cannot interpret type %q; create a separate session per type",
		e.SessionType, e.RequestedType)
}

// InvocationError wraps a transport or provider failure from the LLM call.
// It is surfaced verbatim and never retried here; retry policy belongs to
// the caller.
type InvocationError struct {
	Err error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("LLM invocation failed: %v", e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Package session provides the long-lived conversation handle that
// amortizes the one-time system-preamble cost across repeated
// interpretations. A session is created and discarded explicitly by the
// caller and mutated in place by the orchestrator; one logical caller
// drives a session serially, with no internal locking.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"loadstone/internal/analysis"
	"loadstone/internal/llm"
)

// ErrClosed is returned when a closed session is handed back to the
// orchestrator.
var ErrClosed = errors.New("session is closed; create a new session")

// Session owns one conversation and its cumulative accounting.
type Session struct {
	id           string
	analysisType string
	conv         llm.Conversation
	createdAt    time.Time

	cumInput  int64
	cumOutput int64

	preambleTokens   int64
	preambleRecorded bool

	interpretations int
	closed          bool
}

// New creates a session bound to one analysis type and one conversation.
func New(analysisType string, conv llm.Conversation) *Session {
	return &Session{
		id:           uuid.NewString(),
		analysisType: analysisType,
		conv:         conv,
		createdAt:    time.Now(),
	}
}

func (s *Session) ID() string                     { return s.id }
func (s *Session) AnalysisType() string           { return s.analysisType }
func (s *Session) Conversation() llm.Conversation { return s.conv }
func (s *Session) CreatedAt() time.Time           { return s.createdAt }
func (s *Session) Closed() bool                   { return s.closed }

// CheckType enforces the immutable declared analysis type.
func (s *Session) CheckType(requested string) error {
	if s.closed {
		return ErrClosed
	}
	if requested != s.analysisType {
		return &analysis.SessionMismatchError{
			SessionType:   s.analysisType,
			RequestedType: requested,
		}
	}
	return nil
}

// AddUsage advances the cumulative counters. Counters are monotonically
// non-decreasing: negative movements are ignored rather than applied.
func (s *Session) AddUsage(input, output int64) {
	if input > 0 {
		s.cumInput += input
	}
	if output > 0 {
		s.cumOutput += output
	}
}

// RecordPreamble stores the one-time preamble cost. Only the first call
// takes effect; the cost is never re-added on later interpretations.
func (s *Session) RecordPreamble(tokens int64) {
	if s.preambleRecorded {
		return
	}
	s.preambleRecorded = true
	if tokens > 0 {
		s.preambleTokens = tokens
	}
}

// CountInterpretation bumps the interpretation counter.
func (s *Session) CountInterpretation() {
	s.interpretations++
}

func (s *Session) CumulativeInput() int64  { return s.cumInput }
func (s *Session) CumulativeOutput() int64 { return s.cumOutput }
func (s *Session) PreambleTokens() int64   { return s.preambleTokens }
func (s *Session) Interpretations() int    { return s.interpretations }

// Close marks the session unusable. There is no implicit teardown
// anywhere else; lifetime is entirely caller-controlled.
func (s *Session) Close() {
	s.closed = true
	s.conv = nil
}

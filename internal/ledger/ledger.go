// Package ledger implements token accounting over raw provider readings.
// Two readings exist per call: the conversation-scope snapshot (preamble
// included) feeds cumulative counters via a clamped delta, and the
// last-exchange reading (preamble excluded) feeds per-call reporting.
package ledger

import "math"

// Reading is a raw two-direction token snapshot as reported by a
// conversation handle. Values may be NaN when no reading exists.
type Reading struct {
	Input  float64
	Output float64
}

// Counts is a normalized token pair.
type Counts struct {
	Input  int64
	Output int64
}

// CallUsage is the per-call accounting attached to one interpretation.
type CallUsage struct {
	Input  int64
	Output int64
	// FromDelta marks that the per-call reading was zero and the clamped
	// conversation delta was substituted for that direction.
	FromDelta bool
}

// Normalize maps NaN (the missing/null sentinel) to zero and leaves every
// other value untouched. Idempotent; this is the single place such
// coercion occurs.
func Normalize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// NormalizeReading applies Normalize to both directions and truncates to
// whole tokens.
func NormalizeReading(r Reading) Counts {
	return Counts{
		Input:  int64(Normalize(r.Input)),
		Output: int64(Normalize(r.Output)),
	}
}

// Delta computes the call-over-call counter movement, clamped at zero per
// direction. Providers may cache the preamble on repeat calls, which can
// make a naive after-minus-before negative; a negative movement is never
// charged to cumulative counters.
func Delta(before, after Counts) Counts {
	return Counts{
		Input:  clamp(after.Input - before.Input),
		Output: clamp(after.Output - before.Output),
	}
}

// PerCall produces the reported usage for one call from the last-exchange
// reading, substituting the clamped delta for any direction where the
// reading is zero but the delta is positive.
func PerCall(last, delta Counts) CallUsage {
	u := CallUsage{Input: last.Input, Output: last.Output}
	if u.Input == 0 && delta.Input > 0 {
		u.Input = delta.Input
		u.FromDelta = true
	}
	if u.Output == 0 && delta.Output > 0 {
		u.Output = delta.Output
		u.FromDelta = true
	}
	return u
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

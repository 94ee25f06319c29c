// Package salvage turns raw LLM text into a fully-keyed component
// interpretation mapping. It is a tiered pipeline: structured parse,
// validation against the expected component ids, ordered pattern-matching
// strategies, and finally placeholders. It never fails: a degraded result
// beats a retried, billed round-trip.
package salvage

import (
	"encoding/json"
	"sort"
	"strings"
)

// DefaultAcceptFraction is the validate-tier acceptance threshold used
// when the caller does not configure one.
const DefaultAcceptFraction = 0.5

// PlaceholderMessage is the fixed interpretation text of the final
// fallback tier.
const PlaceholderMessage = "Unable to interpret this component from the model response."

// Source records which tier produced an entry.
type Source string

const (
	// SourceParsed entries came through the structured parse verbatim.
	SourceParsed Source = "parsed"
	// SourcePattern entries were recovered by a matcher strategy.
	SourcePattern Source = "pattern"
	// SourcePlaceholder entries are the final-tier fixed placeholders.
	SourcePlaceholder Source = "placeholder"
)

// Entry is one component's recovered interpretation.
type Entry struct {
	Label          string
	Interpretation string
	Source         Source
}

// Fallback reports whether the entry was produced by a fallback tier and
// should be flagged as low-confidence downstream.
func (e Entry) Fallback() bool { return e.Source != SourceParsed }

// Result is the pipeline output: one entry per expected component id,
// always.
type Result struct {
	Entries map[string]Entry
}

// FallbackIDs returns the ids of low-confidence entries, sorted.
func (r *Result) FallbackIDs() []string {
	var ids []string
	for id, e := range r.Entries {
		if e.Fallback() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Options tunes the pipeline.
type Options struct {
	// AcceptFraction is the fraction of expected ids that must survive
	// the parse for the validate tier to accept. Zero means the default.
	AcceptFraction float64
}

// Recover runs the full pipeline over one response string. The returned
// result's key set always equals the expected id set; Recover never
// reports an error.
func Recover(text string, expected []string, strategies []Strategy, opts Options) *Result {
	fraction := opts.AcceptFraction
	if fraction <= 0 {
		fraction = DefaultAcceptFraction
	}

	res := &Result{Entries: make(map[string]Entry, len(expected))}
	if len(expected) == 0 {
		return res
	}

	if parsed, ok := parseAndValidate(text, expected, fraction); ok {
		for id, e := range parsed {
			res.Entries[id] = e
		}
		fillPlaceholders(res, expected)
		return res
	}

	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	for _, strat := range strategies {
		missing := missingIDs(res, expected)
		if len(missing) == 0 {
			break
		}
		partial := strat(text, missing)
		for _, id := range missing {
			e, ok := partial[id]
			if !ok || e.Interpretation == "" {
				continue
			}
			e.Source = SourcePattern
			if e.Label == "" {
				e.Label = id
			}
			res.Entries[id] = e
		}
	}

	fillPlaceholders(res, expected)
	return res
}

// Placeholder returns the final-tier entry for one component id. Calling
// it twice for the same id yields identical text.
func Placeholder(id string) Entry {
	return Entry{
		Label:          id,
		Interpretation: PlaceholderMessage,
		Source:         SourcePlaceholder,
	}
}

func fillPlaceholders(res *Result, expected []string) {
	for _, id := range expected {
		if _, ok := res.Entries[id]; !ok {
			res.Entries[id] = Placeholder(id)
		}
	}
}

func missingIDs(res *Result, expected []string) []string {
	var out []string
	for _, id := range expected {
		if _, ok := res.Entries[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// parseAndValidate is tiers one and two: structured decode after cleanup,
// then the threshold and shape checks. A present-but-malformed expected
// entry fails validation outright.
func parseAndValidate(text string, expected []string, fraction float64) (map[string]Entry, bool) {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, false
	}

	entries := make(map[string]Entry)
	present := 0
	for _, id := range expected {
		v, ok := raw[id]
		if !ok {
			continue
		}
		present++
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		label, ok := m["label"].(string)
		if !ok {
			return nil, false
		}
		interp, ok := m["interpretation"].(string)
		if !ok {
			return nil, false
		}
		entries[id] = Entry{Label: label, Interpretation: interp, Source: SourceParsed}
	}

	if float64(present)/float64(len(expected)) < fraction {
		return nil, false
	}
	return entries, true
}

// Clean strips surrounding prose and code fences from a response so the
// structured decode gets its best shot: a fenced block wins, otherwise
// the outermost brace-delimited span.
func Clean(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		// Drop an optional language tag on the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			first := strings.TrimSpace(rest[:nl])
			if first == "json" || first == "" {
				rest = rest[nl+1:]
			}
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		text = rest
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return strings.TrimSpace(text[start : end+1])
	}
	return text
}

package salvage

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Strategy is one matcher tried by the pattern-extraction tier. Pure:
// same text and ids always yield the same partial mapping. Strategies are
// tried in order of decreasing strictness and the first one that yields
// an entry for a given id wins for that id.
type Strategy func(text string, expected []string) map[string]Entry

// DefaultStrategies returns the built-in chain, strictest first: a full
// JSON key/value pair, a bare string value, and markdown-heading text.
func DefaultStrategies() []Strategy {
	return []Strategy{KeyValuePairs, BareValues, MarkdownHeadings}
}

// KeyValuePairs recovers entries from intact JSON fragments of the form
// "id": {"label": ..., "interpretation": ...} inside otherwise unusable
// text.
func KeyValuePairs(text string, expected []string) map[string]Entry {
	out := make(map[string]Entry)
	for _, id := range expected {
		re := regexp.MustCompile(`"` + regexp.QuoteMeta(id) + `"\s*:\s*\{([^{}]*)\}`)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		label := jsonStringField(m[1], "label")
		interp := jsonStringField(m[1], "interpretation")
		if interp == "" {
			continue
		}
		out[id] = Entry{Label: label, Interpretation: interp}
	}
	return out
}

// BareValues recovers entries where the id maps to a bare string rather
// than an object: "id": "text", or an unquoted id: text line.
func BareValues(text string, expected []string) map[string]Entry {
	out := make(map[string]Entry)
	for _, id := range expected {
		re := regexp.MustCompile(`"?` + regexp.QuoteMeta(id) + `"?\s*:\s*"?([^"{}\n][^"\n]*)`)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		interp := trimCapture(m[1])
		if interp == "" {
			continue
		}
		out[id] = Entry{Label: id, Interpretation: interp}
	}
	return out
}

// MarkdownHeadings recovers entries written as markdown: **id**: text, or
// an #-style heading naming the id followed by a paragraph.
func MarkdownHeadings(text string, expected []string) map[string]Entry {
	out := make(map[string]Entry)
	for _, id := range expected {
		q := regexp.QuoteMeta(id)

		bold := regexp.MustCompile(`\*\*` + q + `\*\*\s*[:\-]?\s*(.+)`)
		if m := bold.FindStringSubmatch(text); m != nil {
			if interp := trimCapture(m[1]); interp != "" {
				out[id] = Entry{Label: id, Interpretation: interp}
				continue
			}
		}

		heading := regexp.MustCompile(`(?m)^#{1,6}\s*` + q + `\b[^\n]*\n+([^\n#][^\n]*)`)
		if m := heading.FindStringSubmatch(text); m != nil {
			if interp := trimCapture(m[1]); interp != "" {
				out[id] = Entry{Label: id, Interpretation: interp}
			}
		}
	}
	return out
}

// jsonStringField pulls one string-typed field out of the inside of a
// JSON object fragment, decoding escapes when they are well formed.
func jsonStringField(fragment, field string) string {
	re := regexp.MustCompile(`"` + field + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	m := re.FindStringSubmatch(fragment)
	if m == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &s); err != nil {
		return m[1]
	}
	return s
}

func trimCapture(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, `",}`)
	s = strings.Trim(s, "* ")
	return strings.TrimSpace(s)
}

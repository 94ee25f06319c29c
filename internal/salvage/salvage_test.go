package salvage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverParsesCleanResponse(t *testing.T) {
	text := `{"F1": {"label": "Anxiety", "interpretation": "Worry-related variables load strongly."},
	          "F2": {"label": "Sociability", "interpretation": "Social-contact variables dominate."}}`

	res := Recover(text, []string{"F1", "F2"}, nil, Options{})

	require.Len(t, res.Entries, 2)
	assert.Equal(t, "Anxiety", res.Entries["F1"].Label)
	assert.Equal(t, SourceParsed, res.Entries["F1"].Source)
	assert.False(t, res.Entries["F2"].Fallback())
	assert.Empty(t, res.FallbackIDs())
}

func TestRecoverStripsCodeFences(t *testing.T) {
	text := "Here is the interpretation you asked for:\n```json\n" +
		`{"F1": {"label": "X", "interpretation": "Y"}}` + "\n```\nLet me know if you need more."

	res := Recover(text, []string{"F1"}, nil, Options{})
	assert.Equal(t, SourceParsed, res.Entries["F1"].Source)
	assert.Equal(t, "Y", res.Entries["F1"].Interpretation)
}

// Half of the expected ids present and well-formed passes the validate
// tier; the absent id gets a placeholder.
func TestRecoverAcceptsAtThreshold(t *testing.T) {
	text := `{"C1": {"label": "X", "interpretation": "Y"}}`

	res := Recover(text, []string{"C1", "C2"}, nil, Options{AcceptFraction: 0.5})

	assert.Equal(t, "X", res.Entries["C1"].Label)
	assert.Equal(t, "Y", res.Entries["C1"].Interpretation)
	assert.Equal(t, SourceParsed, res.Entries["C1"].Source)

	assert.Equal(t, SourcePlaceholder, res.Entries["C2"].Source)
	assert.Equal(t, PlaceholderMessage, res.Entries["C2"].Interpretation)
	assert.True(t, res.Entries["C2"].Fallback())
}

// One id fewer than the threshold falls through to pattern extraction:
// the well-formed fragment is still recovered, but as a pattern match.
func TestRecoverBelowThresholdFallsThrough(t *testing.T) {
	text := `{"C1": {"label": "X", "interpretation": "Y"}}`

	res := Recover(text, []string{"C1", "C2", "C3", "C4"}, nil, Options{AcceptFraction: 0.5})

	require.Len(t, res.Entries, 4)
	assert.Equal(t, SourcePattern, res.Entries["C1"].Source)
	assert.Equal(t, "Y", res.Entries["C1"].Interpretation)
	for _, id := range []string{"C2", "C3", "C4"} {
		assert.Equal(t, SourcePlaceholder, res.Entries[id].Source, id)
	}
}

func TestRecoverMalformedPresentEntryFailsValidation(t *testing.T) {
	// C1 present but its value is a bare string, so the validate tier
	// rejects the parse even though the threshold is met.
	text := `{"C1": "just a string", "C2": {"label": "L", "interpretation": "I"}}`

	res := Recover(text, []string{"C1", "C2"}, nil, Options{})

	assert.Equal(t, SourcePattern, res.Entries["C1"].Source)
	assert.Equal(t, "just a string", res.Entries["C1"].Interpretation)
	assert.Equal(t, SourcePattern, res.Entries["C2"].Source)
}

func TestRecoverMarkdownHeading(t *testing.T) {
	text := "I could not produce JSON, but here goes.\n\n**C1**: some text"

	res := Recover(text, []string{"C1"}, nil, Options{})

	assert.Equal(t, SourcePattern, res.Entries["C1"].Source)
	assert.Equal(t, "some text", res.Entries["C1"].Interpretation)
}

func TestRecoverHashHeading(t *testing.T) {
	text := "## C1 Resilience\nVariables about bouncing back load here.\n\n## C2\nNothing useful."

	res := Recover(text, []string{"C1", "C2"}, nil, Options{})
	assert.Equal(t, "Variables about bouncing back load here.", res.Entries["C1"].Interpretation)
	assert.Equal(t, "Nothing useful.", res.Entries["C2"].Interpretation)
}

// The pipeline always terminates with a fully-keyed mapping, no matter
// how malformed the input is.
func TestRecoverAlwaysFullyKeyed(t *testing.T) {
	expected := []string{"F1", "F2", "F3"}
	inputs := []string{
		"",
		"complete nonsense with no structure at all",
		`{"broken": json`,
		`[1, 2, 3]`,
		"```json\nnot even json\n```",
		`{"F9": {"label": "wrong id", "interpretation": "irrelevant"}}`,
	}
	for _, text := range inputs {
		res := Recover(text, expected, nil, Options{})
		require.Len(t, res.Entries, len(expected), "input %q", text)
		for _, id := range expected {
			e, ok := res.Entries[id]
			require.True(t, ok, "input %q missing %s", text, id)
			assert.NotEmpty(t, e.Interpretation)
		}
	}
}

func TestPlaceholderIdempotent(t *testing.T) {
	a := Placeholder("F1")
	b := Placeholder("F1")
	assert.Equal(t, a, b)

	first := Recover("garbage", []string{"F1", "F2"}, nil, Options{})
	second := Recover("garbage", []string{"F1", "F2"}, nil, Options{})
	assert.Equal(t, first.Entries, second.Entries)
}

func TestRecoverNoExpectedIDs(t *testing.T) {
	res := Recover("anything", nil, nil, Options{})
	assert.Empty(t, res.Entries)
}

func TestCleanPrefersFencedBlock(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, Clean("prose before\n```json\n{\"a\": 1}\n```\nprose after"))
	assert.Equal(t, `{"a": 1}`, Clean("Sure! Here it is: {\"a\": 1} — hope that helps."))
	assert.Equal(t, "no structure here", Clean("  no structure here  "))
}

func TestFirstMatchWinsPerID(t *testing.T) {
	// C1 appears both as an intact JSON fragment and as a markdown
	// heading; the stricter key/value strategy must win.
	text := "**C1**: loose version\n" + `... "C1": {"label": "Strict", "interpretation": "strict version"} ...`

	// Force the pattern tier with an id that is never present.
	res := Recover(text, []string{"C1", "C9"}, nil, Options{AcceptFraction: 1.0})

	assert.Equal(t, "Strict", res.Entries["C1"].Label)
	assert.Equal(t, "strict version", res.Entries["C1"].Interpretation)
	assert.Equal(t, SourcePlaceholder, res.Entries["C9"].Source)
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/runtree"
)

func parse(t *testing.T, text string, spans ...domain.Span) domain.ParseResult {
	t.Helper()
	result := domain.BuildParseResult(spans, text, true)
	require.NotNil(t, result.Spans)
	return result
}

// TestProjector_WrapsSpans tests basic projection onto a surface
func TestProjector_WrapsSpans(t *testing.T) {
	text := "golden hour light"
	surface := runtree.New(text)
	result := parse(t, text, domain.Span{ID: "s1", Start: 0, End: 11, Category: "lighting"})
	fp := domain.Fingerprint(true, result)

	p := NewProjector()
	assert.True(t, p.Project(surface, result, true, fp))
	assert.Equal(t, "s1", surface.SpanIDAt(3))
	assert.Equal(t, "", surface.SpanIDAt(12))
}

// TestProjector_SkipsUnchangedFingerprint tests zero mutations on identical re-projection
func TestProjector_SkipsUnchangedFingerprint(t *testing.T) {
	text := "golden hour light"
	surface := runtree.New(text)
	result := parse(t, text, domain.Span{ID: "s1", Start: 0, End: 11, Category: "lighting"})
	fp := domain.Fingerprint(true, result)

	p := NewProjector()
	require.True(t, p.Project(surface, result, true, fp))
	assert.False(t, p.Project(surface, result, true, fp))
}

// TestProjector_DisabledIsNoOp tests disabled projection never touches the surface
func TestProjector_DisabledIsNoOp(t *testing.T) {
	text := "golden hour light"
	surface := runtree.New(text)
	result := parse(t, text, domain.Span{ID: "s1", Start: 0, End: 11})

	p := NewProjector()
	assert.False(t, p.Project(surface, result, false, domain.Fingerprint(false, result)))
	assert.Empty(t, surface.SpanIDs())
}

// TestProjector_PreservesCaretAndSelection tests projection keeps editing state
func TestProjector_PreservesCaretAndSelection(t *testing.T) {
	text := "golden hour light"
	surface := runtree.New(text)
	surface.SetCaret(13)
	surface.SetSelection(12, 17)
	result := parse(t, text, domain.Span{ID: "s1", Start: 0, End: 11, Category: "lighting"})

	p := NewProjector()
	require.True(t, p.Project(surface, result, true, domain.Fingerprint(true, result)))

	assert.Equal(t, 13, surface.Caret())
	start, end, ok := surface.Selection()
	require.True(t, ok)
	assert.Equal(t, 12, start)
	assert.Equal(t, 17, end)
	assert.Equal(t, text, surface.Text())
}

// TestProjector_SkipsDivergedSurface tests no projection when surface text moved on
func TestProjector_SkipsDivergedSurface(t *testing.T) {
	result := parse(t, "golden hour light", domain.Span{ID: "s1", Start: 0, End: 11})
	surface := runtree.New("golden hour lights everywhere")

	p := NewProjector()
	assert.False(t, p.Project(surface, result, true, domain.Fingerprint(true, result)))
	assert.Empty(t, surface.SpanIDs())
}

// TestProjector_SkipsStaleSpans tests stale-quote spans render as plain text
func TestProjector_SkipsStaleSpans(t *testing.T) {
	text := "golden hour light"
	result := domain.BuildParseResult([]domain.Span{
		{ID: "ok", Start: 0, End: 6, Quote: "golden"},
		{ID: "stale", Start: 7, End: 11, Quote: "dusk"},
	}, text, true)
	surface := runtree.New(text)

	p := NewProjector()
	require.True(t, p.Project(surface, result, true, domain.Fingerprint(true, result)))

	assert.Equal(t, []string{"ok"}, surface.SpanIDs())
}

// TestProjector_LaterArrayOrderWins tests overlapping spans resolve to the later span
func TestProjector_LaterArrayOrderWins(t *testing.T) {
	text := "warm golden hour glow"
	result := parse(t, text,
		domain.Span{ID: "outer", Start: 0, End: 21, Category: "mood"},
		domain.Span{ID: "inner", Start: 5, End: 16, Category: "lighting"},
	)
	surface := runtree.New(text)

	p := NewProjector()
	require.True(t, p.Project(surface, result, true, domain.Fingerprint(true, result)))

	assert.Equal(t, "inner", surface.SpanIDAt(8))
	assert.Equal(t, "outer", surface.SpanIDAt(1))
}

// TestProjector_ReprojectsAfterChange tests a new fingerprint triggers re-projection
func TestProjector_ReprojectsAfterChange(t *testing.T) {
	text := "golden hour light"
	surface := runtree.New(text)
	p := NewProjector()

	first := parse(t, text, domain.Span{ID: "s1", Start: 0, End: 6})
	require.True(t, p.Project(surface, first, true, domain.Fingerprint(true, first)))

	second := parse(t, text, domain.Span{ID: "s2", Start: 7, End: 11})
	require.True(t, p.Project(surface, second, true, domain.Fingerprint(true, second)))

	assert.Equal(t, []string{"s2"}, surface.SpanIDs())
}

package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
)

// TestLabeler_Deterministic tests identical input yields identical spans
func TestLabeler_Deterministic(t *testing.T) {
	l := New()
	req := driven.LabelRequest{Text: "a cinematic portrait during golden hour"}

	first, err := l.Label(context.Background(), req)
	require.NoError(t, err)
	second, err := l.Label(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Spans, second.Spans)
	assert.Equal(t, first.Signature, second.Signature)
	assert.Equal(t, 2, l.Calls())
}

// TestLabeler_FindsVocabulary tests phrase detection with correct offsets
func TestLabeler_FindsVocabulary(t *testing.T) {
	l := New()
	text := "a cinematic portrait during golden hour"

	res, err := l.Label(context.Background(), driven.LabelRequest{Text: text})
	require.NoError(t, err)

	byCategory := map[string]domain.Span{}
	for _, s := range res.Spans {
		byCategory[s.Category] = s
		assert.Equal(t, text[s.Start:s.End], s.Quote)
	}
	assert.Contains(t, byCategory, "lighting")
	assert.Contains(t, byCategory, "style")
	assert.Contains(t, byCategory, "subject")
	assert.Equal(t, "golden hour", byCategory["lighting"].Quote)
}

// TestLabeler_MinConfidence tests the confidence filter
func TestLabeler_MinConfidence(t *testing.T) {
	l := New()
	text := "a moody cinematic portrait"

	res, err := l.Label(context.Background(), driven.LabelRequest{Text: text, MinConfidence: 0.8})
	require.NoError(t, err)

	for _, s := range res.Spans {
		assert.GreaterOrEqual(t, s.Confidence, 0.8)
	}
}

// TestLabeler_MaxSpans tests the span cap
func TestLabeler_MaxSpans(t *testing.T) {
	l := New()
	text := "neon noir portrait, moody golden hour skyline, cinematic film grain"

	res, err := l.Label(context.Background(), driven.LabelRequest{Text: text, MaxSpans: 2})
	require.NoError(t, err)
	assert.Len(t, res.Spans, 2)
}

// TestLabeler_HonoursPinnedSpans tests pinned content is re-emitted verbatim
func TestLabeler_HonoursPinnedSpans(t *testing.T) {
	l := New()
	text := "warm glow over the harbour at golden hour"
	req := driven.LabelRequest{
		Text: text,
		Policy: domain.LabelPolicy{PinnedSpans: []domain.LockedSpan{
			{Quote: "golden hour", Category: "time-of-day"},
		}},
	}

	res, err := l.Label(context.Background(), req)
	require.NoError(t, err)

	var pinned *domain.Span
	for i := range res.Spans {
		if res.Spans[i].Quote == "golden hour" {
			pinned = &res.Spans[i]
		}
	}
	require.NotNil(t, pinned)
	assert.Equal(t, "time-of-day", pinned.Category)
	assert.Equal(t, "policy", pinned.Source)
}

// TestLabeler_PinnedSpanExemptFromMaxSpans tests the cap never truncates a pin
func TestLabeler_PinnedSpanExemptFromMaxSpans(t *testing.T) {
	l := New()
	text := "neon noir portrait, moody golden hour skyline, cinematic film grain"
	req := driven.LabelRequest{
		Text:     text,
		MaxSpans: 2,
		Policy: domain.LabelPolicy{PinnedSpans: []domain.LockedSpan{
			{Quote: "film grain", Category: "style"},
		}},
	}

	res, err := l.Label(context.Background(), req)
	require.NoError(t, err)

	var pinned *domain.Span
	for i := range res.Spans {
		if res.Spans[i].Source == "policy" {
			pinned = &res.Spans[i]
		}
	}
	require.NotNil(t, pinned)
	assert.Equal(t, "film grain", pinned.Quote)
	// The cap bounds vocabulary spans; the pin rides on top.
	assert.LessOrEqual(t, len(res.Spans), 3)
}

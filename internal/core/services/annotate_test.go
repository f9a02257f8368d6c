package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
)

// TestAnnotator_Annotate tests the one-shot pipeline end to end
func TestAnnotator_Annotate(t *testing.T) {
	labeler := &stubLabeler{fn: func(req driven.LabelRequest) *driven.LabelResult {
		return &driven.LabelResult{
			Spans: []domain.Span{
				{Start: 0, End: 4, Category: "subject"},
				{Start: 50, End: 90, Category: "broken"}, // out of bounds, dropped
			},
			Signature: domain.Signature(req.Text),
		}
	}}
	a := NewAnnotator(labeler, domain.DefaultSettings())

	result, snap, err := a.Annotate(context.Background(), "neon skyline at dusk")
	require.NoError(t, err)

	require.Len(t, result.Spans, 1)
	assert.Equal(t, "neon", result.Spans[0].Quote)
	require.NotNil(t, snap)
	assert.Equal(t, domain.Signature("neon skyline at dusk"), snap.Signature)
	assert.NotEmpty(t, snap.CacheID)
	assert.Equal(t, result.Spans, snap.Spans)
}

// TestAnnotator_NormalisesBeforeLabeling tests NFC normalisation happens first
func TestAnnotator_NormalisesBeforeLabeling(t *testing.T) {
	labeler := &stubLabeler{}
	a := NewAnnotator(labeler, domain.DefaultSettings())

	_, snap, err := a.Annotate(context.Background(), "café scene")
	require.NoError(t, err)

	assert.Equal(t, "café scene", labeler.lastCall().Text)
	assert.Equal(t, domain.Signature("café scene"), snap.Signature)
}

// TestAnnotator_EmptyText tests empty input short-circuits
func TestAnnotator_EmptyText(t *testing.T) {
	labeler := &stubLabeler{}
	a := NewAnnotator(labeler, domain.DefaultSettings())

	result, snap, err := a.Annotate(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, result.Spans)
	assert.Nil(t, snap)
	assert.Equal(t, 0, labeler.callCount())
}

// TestAnnotator_NilLabeler tests the unavailable-backend error
func TestAnnotator_NilLabeler(t *testing.T) {
	a := NewAnnotator(nil, domain.DefaultSettings())

	_, _, err := a.Annotate(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrLabelerUnavailable)
}

// TestAnnotator_BackendError tests error propagation with empty result
func TestAnnotator_BackendError(t *testing.T) {
	labeler := &stubLabeler{err: domain.ErrLabelerUnavailable}
	a := NewAnnotator(labeler, domain.DefaultSettings())

	result, snap, err := a.Annotate(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrLabelerUnavailable)
	assert.Empty(t, result.Spans)
	assert.Nil(t, snap)
}

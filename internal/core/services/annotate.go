package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driving"
	"github.com/custodia-labs/margin-cli/internal/logger"
)

// Ensure Annotator implements the driving port.
var _ driving.Annotator = (*Annotator)(nil)

// Annotator is the one-shot annotation pipeline used by the CLI and the MCP
// server: normalise, sign, label, build. Live surfaces use LabelingClient
// instead, which adds debouncing and caching on top of the same backend.
type Annotator struct {
	labeler  driven.Labeler
	settings domain.Settings
	policy   domain.LabelPolicy
}

// NewAnnotator creates a one-shot annotator.
func NewAnnotator(labeler driven.Labeler, settings domain.Settings) *Annotator {
	settings.ApplyDefaults()
	return &Annotator{labeler: labeler, settings: settings}
}

// SetPolicy pins locked spans for subsequent calls.
func (a *Annotator) SetPolicy(p domain.LabelPolicy) {
	a.policy = p
}

// Annotate normalises and labels text, returning the render-ready parse
// result plus the highlight snapshot recording the labeling.
func (a *Annotator) Annotate(ctx context.Context, text string) (domain.ParseResult, *domain.HighlightSnapshot, error) {
	if a.labeler == nil {
		return domain.ParseResult{Spans: []domain.Span{}}, nil, domain.ErrLabelerUnavailable
	}

	display := domain.Normalise(text)
	if display == "" {
		return domain.ParseResult{Spans: []domain.Span{}, DisplayText: ""}, nil, nil
	}
	sig := domain.Signature(display)

	logger.Section("Annotate")
	logger.Debug("annotate: %d bytes, signature %.12s, provider %s", len(display), sig, a.labeler.ProviderName())

	start := time.Now()
	res, err := a.labeler.Label(ctx, driven.LabelRequest{
		Text:            display,
		Policy:          a.policy,
		MaxSpans:        a.settings.MaxSpans,
		MinConfidence:   a.settings.MinConfidence,
		TemplateVersion: a.settings.TemplateVersion,
	})
	if err != nil {
		return domain.ParseResult{Spans: []domain.Span{}, DisplayText: display}, nil,
			fmt.Errorf("labeling text: %w", err)
	}
	logger.Debug("annotate: %d raw spans in %s", len(res.Spans), time.Since(start).Round(time.Millisecond))

	result := domain.BuildParseResult(res.Spans, display, true)
	snap := &domain.HighlightSnapshot{
		Spans:     result.Spans,
		Meta:      res.Meta,
		Signature: sig,
		CacheID:   uuid.New().String(),
		UpdatedAt: time.Now(),
	}
	return result, snap, nil
}

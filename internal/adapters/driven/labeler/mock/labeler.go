// Package mock provides a deterministic offline labeler.
// It annotates text by rule rather than by model, which makes it suitable
// for tests, demos without credentials, and pipeline debugging: identical
// input always yields identical spans.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
)

// Ensure Labeler implements the interface.
var _ driven.Labeler = (*Labeler)(nil)

// vocabulary maps category names to trigger phrases, checked longest first
// within each category so "golden hour" beats "golden".
var vocabulary = []struct {
	category   string
	confidence float64
	phrases    []string
}{
	{"lighting", 0.92, []string{"golden hour", "blue hour", "neon", "candlelit", "backlit", "soft light", "harsh shadows"}},
	{"style", 0.84, []string{"cinematic", "watercolor", "film grain", "minimalist", "baroque", "noir"}},
	{"subject", 0.77, []string{"portrait", "landscape", "violinist", "skyline", "still life"}},
	{"mood", 0.69, []string{"moody", "serene", "melancholic", "dreamy", "tense"}},
	{"camera", 0.61, []string{"wide angle", "macro", "telephoto", "shallow depth of field", "35mm"}},
}

// Labeler is the deterministic rule-based labeling backend.
type Labeler struct {
	mu    sync.Mutex
	calls int
}

// New creates a mock labeler.
func New() *Labeler {
	return &Labeler{}
}

// Label scans the text for vocabulary phrases and emits one span per
// occurrence. Output is deterministic for identical (text, policy,
// template version) and honours MaxSpans and MinConfidence.
func (l *Labeler) Label(ctx context.Context, req driven.LabelRequest) (*driven.LabelResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()

	lower := strings.ToLower(req.Text)
	var spans []domain.Span
	for _, entry := range vocabulary {
		if req.MinConfidence > 0 && entry.confidence < req.MinConfidence {
			continue
		}
		for _, phrase := range entry.phrases {
			for from := 0; ; {
				idx := strings.Index(lower[from:], phrase)
				if idx < 0 {
					break
				}
				start := from + idx
				end := start + len(phrase)
				spans = append(spans, domain.Span{
					Start:      start,
					End:        end,
					Quote:      req.Text[start:end],
					Category:   entry.category,
					Confidence: entry.confidence,
					Source:     "mock",
				})
				from = end
			}
		}
	}

	// The cap applies to vocabulary spans only, before pins are re-emitted:
	// a pinned span must never be the one truncated away.
	if req.MaxSpans > 0 && len(spans) > req.MaxSpans {
		spans = spans[:req.MaxSpans]
	}

	// Pinned spans survive relabeling: any occurrence matching a lock is
	// re-emitted with its locked category even if vocabulary scoring would
	// have said otherwise.
	spans = applyPolicy(spans, req)

	return &driven.LabelResult{
		Spans:     spans,
		Meta:      map[string]any{"provider": "mock", "templateVersion": req.TemplateVersion},
		Signature: domain.Signature(req.Text),
	}, nil
}

// applyPolicy re-emits locked content found in the text and removes
// conflicting spans over the same range.
func applyPolicy(spans []domain.Span, req driven.LabelRequest) []domain.Span {
	for _, pin := range req.Policy.PinnedSpans {
		if pin.Quote == "" {
			continue
		}
		start := strings.Index(req.Text, pin.Quote)
		if start < 0 {
			continue
		}
		end := start + len(pin.Quote)
		kept := spans[:0]
		for _, s := range spans {
			if s.Start == start && s.End == end {
				continue
			}
			kept = append(kept, s)
		}
		spans = append(kept, domain.Span{
			Start:          start,
			End:            end,
			Quote:          pin.Quote,
			Category:       pin.Category,
			Confidence:     1,
			Source:         "policy",
			IdempotencyKey: pin.IdempotencyKey,
		})
	}
	return spans
}

// Calls returns how many labeling calls were made, for tests.
func (l *Labeler) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// ProviderName returns the backend identifier.
func (l *Labeler) ProviderName() string {
	return domain.ProviderMock
}

// Ping always succeeds; there is nothing to reach.
func (l *Labeler) Ping(context.Context) error {
	return nil
}

// Close releases nothing.
func (l *Labeler) Close() error {
	return nil
}

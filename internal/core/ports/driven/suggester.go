package driven

import (
	"context"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

// Suggester generates replacement suggestions for a selected span.
// This is an external collaborator; only the request shape is owned here.
// When nil, span selection still works but emits no suggestion fetches.
type Suggester interface {
	// Suggest returns candidate replacements for the highlighted text.
	Suggest(ctx context.Context, req SuggestionRequest) ([]Suggestion, error)
}

// SuggestionRequest describes a selected span and its surroundings.
type SuggestionRequest struct {
	// HighlightedText is the selected span's quote.
	HighlightedText string

	// OriginalText is the text the span was originally labeled against.
	OriginalText string

	// DisplayedPrompt is the text currently on screen.
	DisplayedPrompt string

	// Offsets are the span's byte offsets into DisplayedPrompt.
	Offsets SuggestionOffsets

	// Metadata carries span provenance for disambiguation and deduping.
	Metadata SuggestionMetadata

	// Trigger records what user action produced the request.
	Trigger string

	// AllLabeledSpans is the full current span set for context.
	AllLabeledSpans []domain.Span
}

// SuggestionOffsets is the selected range.
type SuggestionOffsets struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SuggestionMetadata identifies the span the request was built from.
type SuggestionMetadata struct {
	Category       string       `json:"category,omitempty"`
	Source         string       `json:"source,omitempty"`
	SpanID         string       `json:"spanId"`
	Confidence     float64      `json:"confidence,omitempty"`
	Quote          string       `json:"quote"`
	LeftCtx        string       `json:"leftCtx,omitempty"`
	RightCtx       string       `json:"rightCtx,omitempty"`
	IdempotencyKey string       `json:"idempotencyKey,omitempty"`
	Span           *domain.Span `json:"span,omitempty"`
}

// Suggestion is a single replacement candidate.
type Suggestion struct {
	// Text is the proposed replacement.
	Text string

	// Rationale explains the proposal, when the backend provides one.
	Rationale string
}

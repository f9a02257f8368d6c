package driven

import (
	"context"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

// Labeler produces semantic spans for a piece of text. It is invoked as an
// opaque async collaborator; the labeling client wraps it with debouncing
// and caching.
//
// Implementations must be idempotent for identical (text, policy, template
// version) and safely callable concurrently: the client de-duplicates, but
// the backend must not assume single-flight.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - Mock (deterministic offline labeler)
type Labeler interface {
	// Label annotates the request text with semantic spans.
	Label(ctx context.Context, req LabelRequest) (*LabelResult, error)

	// ProviderName returns the backend identifier for logging.
	ProviderName() string

	// Ping validates the backend is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// LabelRequest is the input to the labeling backend.
type LabelRequest struct {
	// Text is the NFC-normalised text to annotate.
	Text string

	// Policy constrains the output; pinned spans must be preserved.
	Policy domain.LabelPolicy

	// MaxSpans caps the number of spans returned.
	MaxSpans int

	// MinConfidence filters low-confidence spans.
	MinConfidence float64

	// TemplateVersion pins the labeling prompt template.
	TemplateVersion string

	// CacheKey scopes caching, typically a prompt identifier.
	CacheKey string
}

// LabelResult is the labeling backend's output.
type LabelResult struct {
	// Spans are the raw labeled spans, unvalidated.
	Spans []domain.Span

	// Meta carries opaque backend metadata, nil when absent.
	Meta map[string]any

	// Signature is the content signature of the text the spans were
	// computed against.
	Signature string
}

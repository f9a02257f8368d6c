package driving

import (
	"context"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

// Annotator provides one-shot text annotation to external actors
// (CLI, MCP). Live surfaces use the labeling client directly.
type Annotator interface {
	// Annotate normalises, signs and labels text, returning the
	// render-ready parse result and the snapshot of the labeling.
	Annotate(ctx context.Context, text string) (domain.ParseResult, *domain.HighlightSnapshot, error)
}

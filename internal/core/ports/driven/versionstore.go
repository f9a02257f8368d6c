package driven

import (
	"context"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

// VersionStore persists the append-only version history and highlight
// snapshots. Backed by SQLite for durable storage or memory for tests.
type VersionStore interface {
	// SaveVersion appends or updates a version for a prompt-history entry.
	SaveVersion(ctx context.Context, promptID string, v *domain.Version) error

	// ListVersions returns all versions for a prompt in creation order.
	ListVersions(ctx context.Context, promptID string) ([]domain.Version, error)

	// GetVersion retrieves a version by id.
	GetVersion(ctx context.Context, versionID string) (*domain.Version, error)

	// SaveSnapshot records a labeling result keyed by its text signature.
	// Superseded snapshots are kept for later retrieval, never deleted.
	SaveSnapshot(ctx context.Context, promptID string, snap *domain.HighlightSnapshot) error

	// GetSnapshot retrieves the latest snapshot for a text signature.
	GetSnapshot(ctx context.Context, promptID, signature string) (*domain.HighlightSnapshot, error)
}

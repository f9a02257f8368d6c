package driving

import (
	"context"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

// VersionManager exposes the version/snapshot history to external actors.
type VersionManager interface {
	// CreateVersionIfNeeded appends a new version for the text unless the
	// latest version already carries its signature. Returns the resulting
	// version and whether it was newly created.
	CreateVersionIfNeeded(ctx context.Context, promptText, label string) (*domain.Version, bool, error)

	// SyncHighlights attaches a fresh labeling snapshot to the version whose
	// signature matches the text at attachment time.
	SyncHighlights(ctx context.Context, snap domain.HighlightSnapshot, promptText string) error

	// SelectVersion moves the selection pointer and returns the version so
	// the caller can restore its prompt and highlights.
	SelectVersion(ctx context.Context, versionID string) (*domain.Version, error)

	// List returns all versions in creation order.
	List() []domain.Version

	// Latest returns the most recent version, nil when history is empty.
	Latest() *domain.Version

	// IsDirty reports whether the latest version's text has been edited.
	IsDirty(currentText string) bool
}

// Package memory provides in-memory implementations of driven port
// interfaces, used by tests and by the TUI when no durable store is
// configured.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
)

// Ensure VersionStore implements the interface.
var _ driven.VersionStore = (*VersionStore)(nil)

// snapshotKey scopes snapshots to a prompt and content signature.
type snapshotKey struct {
	promptID  string
	signature string
}

// VersionStore is an in-memory implementation of driven.VersionStore.
type VersionStore struct {
	mu        sync.RWMutex
	versions  map[string][]domain.Version
	snapshots map[snapshotKey]domain.HighlightSnapshot
}

// NewVersionStore creates a new in-memory version store.
func NewVersionStore() *VersionStore {
	return &VersionStore{
		versions:  make(map[string][]domain.Version),
		snapshots: make(map[snapshotKey]domain.HighlightSnapshot),
	}
}

// SaveVersion appends or updates a version for a prompt-history entry.
func (s *VersionStore) SaveVersion(_ context.Context, promptID string, v *domain.Version) error {
	if promptID == "" || v == nil || v.VersionID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.versions[promptID]
	for i := range list {
		if list[i].VersionID == v.VersionID {
			list[i] = *v
			return nil
		}
	}
	s.versions[promptID] = append(list, *v)
	return nil
}

// ListVersions returns all versions for a prompt in creation order.
func (s *VersionStore) ListVersions(_ context.Context, promptID string) ([]domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.versions[promptID]
	result := make([]domain.Version, len(list))
	copy(result, list)
	return result, nil
}

// GetVersion retrieves a version by id.
func (s *VersionStore) GetVersion(_ context.Context, versionID string) (*domain.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.versions {
		for i := range list {
			if list[i].VersionID == versionID {
				v := list[i]
				return &v, nil
			}
		}
	}
	return nil, domain.ErrVersionNotFound
}

// SaveSnapshot records a labeling result keyed by its text signature.
func (s *VersionStore) SaveSnapshot(_ context.Context, promptID string, snap *domain.HighlightSnapshot) error {
	if promptID == "" || snap == nil || snap.Signature == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshotKey{promptID, snap.Signature}] = *snap
	return nil
}

// GetSnapshot retrieves the latest snapshot for a text signature.
func (s *VersionStore) GetSnapshot(_ context.Context, promptID, signature string) (*domain.HighlightSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[snapshotKey{promptID, signature}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &snap, nil
}

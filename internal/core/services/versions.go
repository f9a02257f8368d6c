package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driving"
	"github.com/custodia-labs/margin-cli/internal/logger"
)

// Ensure Versions implements the driving port.
var _ driving.VersionManager = (*Versions)(nil)

// Versions maintains the append-only version history for one prompt entry
// and associates labeling snapshots with the exact text they were computed
// against. Versions are never rewritten in place; the selection pointer
// moves instead.
type Versions struct {
	mu       sync.Mutex
	promptID string
	store    driven.VersionStore
	list     []domain.Version
	selected string

	// editCount tracks edits since the last version, reset on creation
	// and on selection.
	editCount int

	// pending is the latest snapshot that arrived before any version
	// carried its signature, held for the next version creation.
	pending *domain.HighlightSnapshot
}

// NewVersions creates a version manager for a prompt-history entry.
// The store may be nil for a purely in-memory session.
func NewVersions(promptID string, store driven.VersionStore) *Versions {
	return &Versions{promptID: promptID, store: store}
}

// Load restores previously persisted versions from the store.
func (v *Versions) Load(ctx context.Context) error {
	if v.store == nil {
		return nil
	}
	list, err := v.store.ListVersions(ctx, v.promptID)
	if err != nil {
		return fmt.Errorf("loading versions: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.list = list
	if len(list) > 0 {
		v.selected = list[len(list)-1].VersionID
	}
	return nil
}

// CreateVersionIfNeeded appends a new version for the text unless the latest
// version already carries its signature; unedited text never produces
// duplicate versions. The new version captures the pending highlight
// snapshot when one matches, and pending-edit counters reset.
func (v *Versions) CreateVersionIfNeeded(ctx context.Context, promptText, label string) (*domain.Version, bool, error) {
	text := domain.Normalise(promptText)
	sig := domain.Signature(text)

	v.mu.Lock()
	if last := v.latestLocked(); last != nil && last.Signature == sig {
		out := *last
		v.mu.Unlock()
		return &out, false, nil
	}

	if label == "" {
		label = fmt.Sprintf("Version %d", len(v.list)+1)
	}
	ver := domain.Version{
		VersionID: uuid.New().String(),
		Label:     label,
		Signature: sig,
		Prompt:    text,
		Timestamp: time.Now(),
		EditCount: v.editCount,
	}
	if v.pending != nil && v.pending.Signature == sig {
		snap := *v.pending
		ver.Highlights = &snap
	}
	v.list = append(v.list, ver)
	v.selected = ver.VersionID
	v.editCount = 0
	out := ver
	v.mu.Unlock()

	logger.Debug("versions: created %s (%s) sig=%.12s", ver.VersionID, ver.Label, sig)
	if v.store != nil {
		if err := v.store.SaveVersion(ctx, v.promptID, &out); err != nil {
			return &out, true, fmt.Errorf("persisting version: %w", err)
		}
	}
	return &out, true, nil
}

// SyncHighlights records a fresh labeling snapshot. The snapshot attaches to
// the version whose signature matches the text at the moment of attachment;
// when the text has since moved on, the snapshot is still recorded for later
// retrieval but does not overwrite the current version's pointer.
func (v *Versions) SyncHighlights(ctx context.Context, snap domain.HighlightSnapshot, promptText string) error {
	sig := domain.Signature(domain.Normalise(promptText))

	v.mu.Lock()
	var attached *domain.Version
	if snap.Signature == sig {
		for idx := range v.list {
			if v.list[idx].Signature == snap.Signature {
				s := snap
				v.list[idx].Highlights = &s
				attached = &v.list[idx]
				break
			}
		}
	}
	s := snap
	v.pending = &s
	var attachedCopy *domain.Version
	if attached != nil {
		c := *attached
		attachedCopy = &c
	}
	v.mu.Unlock()

	if v.store == nil {
		return nil
	}
	if err := v.store.SaveSnapshot(ctx, v.promptID, &snap); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	if attachedCopy != nil {
		if err := v.store.SaveVersion(ctx, v.promptID, attachedCopy); err != nil {
			return fmt.Errorf("persisting version highlights: %w", err)
		}
	}
	return nil
}

// SelectVersion moves the selection pointer and returns the version so the
// caller can restore its prompt text and highlights without a fresh
// labeling call. This is the only path that moves the display text backward
// in time without going through live user edits. Edit tracking resets.
func (v *Versions) SelectVersion(_ context.Context, versionID string) (*domain.Version, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for idx := range v.list {
		if v.list[idx].VersionID == versionID {
			v.selected = versionID
			v.editCount = 0
			out := v.list[idx]
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrVersionNotFound, versionID)
}

// RecordEdit increments the pending-edit counter.
func (v *Versions) RecordEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editCount++
}

// List returns all versions in creation order.
func (v *Versions) List() []domain.Version {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Version(nil), v.list...)
}

// Latest returns the most recent version, nil when history is empty.
func (v *Versions) Latest() *domain.Version {
	v.mu.Lock()
	defer v.mu.Unlock()
	if last := v.latestLocked(); last != nil {
		out := *last
		return &out
	}
	return nil
}

// Selected returns the currently selected version id.
func (v *Versions) Selected() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// IsDirty reports whether the most recent version's signature no longer
// matches the current text, meaning the text was edited since last save.
func (v *Versions) IsDirty(currentText string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	last := v.latestLocked()
	if last == nil {
		return false
	}
	return last.IsDirtyAgainst(currentText)
}

func (v *Versions) latestLocked() *domain.Version {
	if len(v.list) == 0 {
		return nil
	}
	return &v.list[len(v.list)-1]
}

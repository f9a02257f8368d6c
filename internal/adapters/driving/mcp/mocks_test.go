package mcp

import (
	"context"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

// mockAnnotator is a mock implementation of driving.Annotator.
type mockAnnotator struct {
	result domain.ParseResult
	snap   *domain.HighlightSnapshot
	err    error
}

func (m *mockAnnotator) Annotate(
	_ context.Context,
	_ string,
) (domain.ParseResult, *domain.HighlightSnapshot, error) {
	return m.result, m.snap, m.err
}

// mockVersionManager is a mock implementation of driving.VersionManager.
type mockVersionManager struct {
	versions []domain.Version
	version  *domain.Version
	created  bool
	err      error
}

func (m *mockVersionManager) CreateVersionIfNeeded(
	_ context.Context,
	_, _ string,
) (*domain.Version, bool, error) {
	return m.version, m.created, m.err
}

func (m *mockVersionManager) SyncHighlights(
	_ context.Context,
	_ domain.HighlightSnapshot,
	_ string,
) error {
	return m.err
}

func (m *mockVersionManager) SelectVersion(_ context.Context, _ string) (*domain.Version, error) {
	return m.version, m.err
}

func (m *mockVersionManager) List() []domain.Version {
	return m.versions
}

func (m *mockVersionManager) Latest() *domain.Version {
	if len(m.versions) == 0 {
		return nil
	}
	return &m.versions[len(m.versions)-1]
}

func (m *mockVersionManager) IsDirty(_ string) bool {
	return false
}

package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "margin-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// testVersion builds a version with a snapshot attached.
func testVersion(id, promptText string) *domain.Version {
	sig := domain.Signature(promptText)
	return &domain.Version{
		VersionID: id,
		Label:     "Version " + id,
		Signature: sig,
		Prompt:    promptText,
		Highlights: &domain.HighlightSnapshot{
			Spans: []domain.Span{
				{ID: "s1", Start: 0, End: 4, Quote: promptText[:4], Category: "mood", Confidence: 0.8},
			},
			Signature: sig,
			UpdatedAt: time.Now().UTC().Truncate(time.Second),
		},
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
}

// TestNewStoreCreatesDatabase verifies the database file and schema are
// created under the data directory.
func TestNewStoreCreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.FileExists(t, store.Path())
	assert.Equal(t, "margin.db", filepath.Base(store.Path()))
}

// TestMigrationsAreIdempotent verifies reopening the store does not fail.
func TestMigrationsAreIdempotent(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "margin-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStore(tempDir)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

// TestSaveAndListVersions verifies versions come back in creation order.
func TestSaveAndListVersions(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vs := store.VersionStore()

	require.NoError(t, vs.SaveVersion(ctx, "prompt-1", testVersion("v1", "calm morning fog")))
	require.NoError(t, vs.SaveVersion(ctx, "prompt-1", testVersion("v2", "calm evening fog")))
	require.NoError(t, vs.SaveVersion(ctx, "prompt-2", testVersion("v3", "unrelated")))

	versions, err := vs.ListVersions(ctx, "prompt-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)

	assert.Equal(t, "v1", versions[0].VersionID)
	assert.Equal(t, "v2", versions[1].VersionID)
	assert.Equal(t, "calm morning fog", versions[0].Prompt)
	require.NotNil(t, versions[0].Highlights)
	assert.Equal(t, "calm", versions[0].Highlights.Spans[0].Quote)
}

// TestGetVersion verifies lookup by id and the missing-version sentinel.
func TestGetVersion(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vs := store.VersionStore()

	want := testVersion("v1", "neon skyline at dusk")
	require.NoError(t, vs.SaveVersion(ctx, "prompt-1", want))

	got, err := vs.GetVersion(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, want.Signature, got.Signature)
	assert.Equal(t, want.Prompt, got.Prompt)

	_, err = vs.GetVersion(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

// TestSaveVersionUpdatesInPlace verifies re-saving the same version id
// updates label and highlights without duplicating the row.
func TestSaveVersionUpdatesInPlace(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vs := store.VersionStore()

	v := testVersion("v1", "calm morning fog")
	require.NoError(t, vs.SaveVersion(ctx, "prompt-1", v))

	v.Label = "Renamed"
	require.NoError(t, vs.SaveVersion(ctx, "prompt-1", v))

	versions, err := vs.ListVersions(ctx, "prompt-1")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "Renamed", versions[0].Label)
}

// TestVersionWithoutHighlights verifies a nil snapshot round-trips as nil.
func TestVersionWithoutHighlights(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vs := store.VersionStore()

	v := testVersion("v1", "bare version")
	v.Highlights = nil
	require.NoError(t, vs.SaveVersion(ctx, "prompt-1", v))

	got, err := vs.GetVersion(ctx, "v1")
	require.NoError(t, err)
	assert.Nil(t, got.Highlights)
}

// TestSaveVersionValidation verifies invalid input is rejected.
func TestSaveVersionValidation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vs := store.VersionStore()

	assert.ErrorIs(t, vs.SaveVersion(ctx, "", testVersion("v1", "text")), domain.ErrInvalidInput)
	assert.ErrorIs(t, vs.SaveVersion(ctx, "prompt-1", nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, vs.SaveVersion(ctx, "prompt-1", &domain.Version{}), domain.ErrInvalidInput)
}

// TestSaveAndGetSnapshot verifies snapshots round-trip keyed by signature.
func TestSaveAndGetSnapshot(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vs := store.VersionStore()

	sig := domain.Signature("golden hour in Lisbon")
	snap := &domain.HighlightSnapshot{
		Spans: []domain.Span{
			{ID: "s1", Start: 0, End: 11, Quote: "golden hour", Category: "lighting", Confidence: 0.9},
		},
		Meta:      map[string]any{"provider": "mock"},
		Signature: sig,
		CacheID:   "cache-1",
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, vs.SaveSnapshot(ctx, "prompt-1", snap))

	got, err := vs.GetSnapshot(ctx, "prompt-1", sig)
	require.NoError(t, err)
	assert.Equal(t, sig, got.Signature)
	assert.Equal(t, "cache-1", got.CacheID)
	require.Len(t, got.Spans, 1)
	assert.Equal(t, "golden hour", got.Spans[0].Quote)
	assert.Equal(t, "mock", got.Meta["provider"])
}

// TestGetSnapshotReturnsLatest verifies a re-saved signature supersedes the
// earlier snapshot without deleting it.
func TestGetSnapshotReturnsLatest(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vs := store.VersionStore()

	sig := domain.Signature("same text")
	first := &domain.HighlightSnapshot{Signature: sig, CacheID: "old", Spans: []domain.Span{}}
	second := &domain.HighlightSnapshot{Signature: sig, CacheID: "new", Spans: []domain.Span{}}
	require.NoError(t, vs.SaveSnapshot(ctx, "prompt-1", first))
	require.NoError(t, vs.SaveSnapshot(ctx, "prompt-1", second))

	got, err := vs.GetSnapshot(ctx, "prompt-1", sig)
	require.NoError(t, err)
	assert.Equal(t, "new", got.CacheID)

	var count int
	err = store.db.QueryRow(
		"SELECT COUNT(*) FROM highlight_snapshots WHERE prompt_id = ? AND signature = ?",
		"prompt-1", sig).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// TestGetSnapshotMissing verifies lookup of an unknown signature.
func TestGetSnapshotMissing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.VersionStore().GetSnapshot(context.Background(), "prompt-1", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestSnapshotsAreScopedToPrompt verifies prompt isolation.
func TestSnapshotsAreScopedToPrompt(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vs := store.VersionStore()

	sig := domain.Signature("shared text")
	require.NoError(t, vs.SaveSnapshot(ctx, "prompt-1",
		&domain.HighlightSnapshot{Signature: sig, Spans: []domain.Span{}}))

	_, err := vs.GetSnapshot(ctx, "prompt-2", sig)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

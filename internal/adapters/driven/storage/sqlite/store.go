package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/margin-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is a SQLite-based storage providing durable version history and
// highlight snapshots.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.margin/data/margin.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".margin", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "margin.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// VersionStore returns a VersionStore interface backed by this store.
func (s *Store) VersionStore() driven.VersionStore {
	return &versionStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Version Store ====================

// versionStore implements driven.VersionStore.
type versionStore struct {
	store *Store
}

var _ driven.VersionStore = (*versionStore)(nil)

// SaveVersion appends or updates a version for a prompt-history entry.
func (s *versionStore) SaveVersion(ctx context.Context, promptID string, v *domain.Version) error {
	if promptID == "" || v == nil || v.VersionID == "" {
		return domain.ErrInvalidInput
	}

	highlightsJSON, err := json.Marshal(v.Highlights)
	if err != nil {
		return fmt.Errorf("marshalling highlights: %w", err)
	}

	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO versions (version_id, prompt_id, label, signature, prompt, highlights, edit_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(version_id) DO UPDATE SET
			label = excluded.label,
			highlights = excluded.highlights,
			edit_count = excluded.edit_count
	`, v.VersionID, promptID, v.Label, v.Signature, v.Prompt,
		string(highlightsJSON), v.EditCount, v.Timestamp)

	if err != nil {
		return fmt.Errorf("saving version: %w", err)
	}
	return nil
}

// ListVersions returns all versions for a prompt in creation order.
func (s *versionStore) ListVersions(ctx context.Context, promptID string) ([]domain.Version, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT version_id, label, signature, prompt, highlights, edit_count, created_at
		FROM versions WHERE prompt_id = ?
		ORDER BY seq
	`, promptID)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.Version //nolint:prealloc // size unknown from query
	for rows.Next() {
		v, err := scanVersionRows(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", err)
	}

	return versions, nil
}

// GetVersion retrieves a version by id.
func (s *versionStore) GetVersion(ctx context.Context, versionID string) (*domain.Version, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT version_id, label, signature, prompt, highlights, edit_count, created_at
		FROM versions WHERE version_id = ?
	`, versionID)

	v, err := scanVersion(row)
	if err == domain.ErrNotFound {
		return nil, domain.ErrVersionNotFound
	}
	return v, err
}

// SaveSnapshot records a labeling result keyed by its text signature.
// Superseded snapshots are kept, never deleted.
func (s *versionStore) SaveSnapshot(ctx context.Context, promptID string, snap *domain.HighlightSnapshot) error {
	if promptID == "" || snap == nil || snap.Signature == "" {
		return domain.ErrInvalidInput
	}

	spansJSON, err := json.Marshal(snap.Spans)
	if err != nil {
		return fmt.Errorf("marshalling spans: %w", err)
	}
	metaJSON, err := json.Marshal(snap.Meta)
	if err != nil {
		return fmt.Errorf("marshalling meta: %w", err)
	}

	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO highlight_snapshots (prompt_id, signature, cache_id, spans, meta, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, promptID, snap.Signature, snap.CacheID, string(spansJSON), string(metaJSON), updatedAt)

	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the latest snapshot for a text signature.
func (s *versionStore) GetSnapshot(ctx context.Context, promptID, signature string) (*domain.HighlightSnapshot, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT signature, cache_id, spans, meta, updated_at
		FROM highlight_snapshots
		WHERE prompt_id = ? AND signature = ?
		ORDER BY seq DESC LIMIT 1
	`, promptID, signature)

	var snap domain.HighlightSnapshot
	var cacheID sql.NullString
	var spansJSON string
	var metaJSON sql.NullString
	var updatedAt sql.NullTime
	if err := row.Scan(&snap.Signature, &cacheID, &spansJSON, &metaJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(spansJSON), &snap.Spans); err != nil {
		return nil, fmt.Errorf("unmarshaling spans: %w", err)
	}
	if metaJSON.Valid && metaJSON.String != jsonNull {
		if err := json.Unmarshal([]byte(metaJSON.String), &snap.Meta); err != nil {
			return nil, fmt.Errorf("unmarshaling meta: %w", err)
		}
	}

	snap.CacheID = cacheID.String
	if updatedAt.Valid {
		snap.UpdatedAt = updatedAt.Time
	}

	return &snap, nil
}

// ==================== Helper Functions ====================

// scanVersion scans a single version row.
func scanVersion(row *sql.Row) (*domain.Version, error) {
	var v domain.Version
	var highlightsJSON sql.NullString
	var createdAt sql.NullTime

	if err := row.Scan(&v.VersionID, &v.Label, &v.Signature, &v.Prompt,
		&highlightsJSON, &v.EditCount, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning version: %w", err)
	}

	if err := attachHighlights(&v, highlightsJSON); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		v.Timestamp = createdAt.Time
	}

	return &v, nil
}

// scanVersionRows scans a version from *sql.Rows.
func scanVersionRows(rows *sql.Rows) (*domain.Version, error) {
	var v domain.Version
	var highlightsJSON sql.NullString
	var createdAt sql.NullTime

	if err := rows.Scan(&v.VersionID, &v.Label, &v.Signature, &v.Prompt,
		&highlightsJSON, &v.EditCount, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning version: %w", err)
	}

	if err := attachHighlights(&v, highlightsJSON); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		v.Timestamp = createdAt.Time
	}

	return &v, nil
}

// attachHighlights decodes the highlights column onto the version.
func attachHighlights(v *domain.Version, highlightsJSON sql.NullString) error {
	if !highlightsJSON.Valid || highlightsJSON.String == jsonNull || highlightsJSON.String == "" {
		return nil
	}
	var snap domain.HighlightSnapshot
	if err := json.Unmarshal([]byte(highlightsJSON.String), &snap); err != nil {
		return fmt.Errorf("unmarshalling highlights: %w", err)
	}
	v.Highlights = &snap
	return nil
}

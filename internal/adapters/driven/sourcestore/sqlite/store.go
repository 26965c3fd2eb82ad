// Package sqlite provides a local source registry backed by SQLite.
//
// The registry holds source records and their readiness flag; chunk
// payloads and vectors live in the chunk store. A source stays
// unready until its full chunk sequence has been persisted.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driven"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	normalised_content TEXT NOT NULL,
	content_type TEXT NOT NULL,
	page_count INTEGER NOT NULL DEFAULT 0,
	ready INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
`

// SourceStore is a SQLite-backed implementation of driven.SourceStore.
type SourceStore struct {
	db   *sql.DB
	path string
}

// NewSourceStore creates a source store at the specified data
// directory. If dataDir is empty, defaults to ~/.inklet/data.
func NewSourceStore(dataDir string) (*SourceStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".inklet", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "sources.db")

	// WAL mode for better concurrency between ingestion and retrieval.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SourceStore{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SourceStore) Path() string {
	return s.path
}

// SaveSource stores or replaces a source record.
func (s *SourceStore) SaveSource(ctx context.Context, src *domain.Source) error {
	if src == nil || src.ID == "" {
		return fmt.Errorf("save source: %w", domain.ErrInvalidInput)
	}
	createdAt := src.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sources
			(id, title, content, normalised_content, content_type, page_count, ready, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Title, src.Content, src.NormalisedContent,
		string(src.ContentType), src.PageCount, boolToInt(src.Ready), createdAt,
	)
	if err != nil {
		return fmt.Errorf("save source %s: %w", src.ID, err)
	}
	return nil
}

// GetSource retrieves a source by id.
func (s *SourceStore) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, normalised_content, content_type, page_count, ready, created_at
		FROM sources WHERE id = ?`, id)

	src, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get source %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get source %s: %w", id, err)
	}
	return src, nil
}

// ListSources returns sources ordered newest first.
func (s *SourceStore) ListSources(ctx context.Context, limit, offset int) ([]domain.Source, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, normalised_content, content_type, page_count, ready, created_at
		FROM sources ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		out = append(out, *src)
	}
	return out, rows.Err()
}

// MarkReady flips the readiness flag after the chunk sequence has
// been persisted.
func (s *SourceStore) MarkReady(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sources SET ready = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark ready %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark ready %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteSource removes a source record.
func (s *SourceStore) DeleteSource(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete source %s: %w", id, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SourceStore) Close() error {
	return s.db.Close()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSource(row scanner) (*domain.Source, error) {
	var (
		src         domain.Source
		contentType string
		ready       int
	)
	err := row.Scan(
		&src.ID, &src.Title, &src.Content, &src.NormalisedContent,
		&contentType, &src.PageCount, &ready, &src.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	src.ContentType = domain.ContentType(contentType)
	src.Ready = ready != 0
	return &src, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

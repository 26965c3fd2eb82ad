// Package pgvector provides a chunk store backed by PostgreSQL with
// the pgvector extension.
//
// Chunk payloads and their embeddings live in one table, so a
// similarity search returns everything retrieval needs without a
// secondary lookup. Ties on distance break by an insertion-order
// sequence column for deterministic rankings.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	pgv "github.com/pgvector/pgvector-go"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// Metric selects the pgvector distance operator.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

// DefaultTable is the chunk table name.
const DefaultTable = "inklet_chunks"

var payloadColumns = []string{
	"id", "source_id", "position", "content", "token_count",
	"start_offset", "end_offset", "section", "page", "prev_id", "next_id",
}

// Config holds connection settings for the pgvector store.
type Config struct {
	// DSN is the PostgreSQL connection string (required).
	DSN string

	// Table overrides the chunk table name.
	Table string

	// Dimensions is the embedding vector size (required, must match
	// the embedding service).
	Dimensions int

	// Metric selects cosine (default) or inner-product similarity.
	Metric Metric
}

// ChunkStore is a PostgreSQL/pgvector implementation of
// driven.ChunkStore.
type ChunkStore struct {
	db     *sqlx.DB
	table  string
	metric Metric
}

// NewChunkStore connects to PostgreSQL and ensures the chunk table
// exists. Returns domain.ErrStorageUnavailable when the database
// cannot be reached.
func NewChunkStore(ctx context.Context, cfg Config) (*ChunkStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgvector: DSN is required: %w", domain.ErrInvalidInput)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("pgvector: dimensions are required: %w", domain.ErrInvalidInput)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, storageErr("connect", err)
	}

	s := &ChunkStore{db: db, table: cfg.Table, metric: cfg.Metric}
	if err := s.ensureSchema(ctx, cfg.Dimensions); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *ChunkStore) ensureSchema(ctx context.Context, dimensions int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			seq BIGSERIAL,
			position INT NOT NULL,
			content TEXT NOT NULL,
			token_count INT NOT NULL,
			start_offset INT NOT NULL,
			end_offset INT NOT NULL,
			section TEXT NOT NULL DEFAULT '',
			page INT NOT NULL DEFAULT 0,
			prev_id TEXT NOT NULL DEFAULT '',
			next_id TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table, dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source_id, position)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("ensure schema", err)
		}
	}
	return nil
}

func (s *ChunkStore) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Store persists one source's payloads and embeddings in a single
// transaction, so retrieval never observes a partial sequence.
func (s *ChunkStore) Store(ctx context.Context, chunks []domain.TextChunk, embeddings [][]float32, overwrite bool) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("store: %d chunks but %d embeddings: %w", len(chunks), len(embeddings), domain.ErrInvalidInput)
	}

	payloads := make([]driven.ChunkPayload, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		p := driven.PayloadFromChunk(c)
		if err := p.Validate(); err != nil {
			return err
		}
		payloads[i] = p
		ids[i] = p.ChunkID
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if !overwrite {
		query, args, err := s.builder().
			Select("id").From(s.table).Where(sq.Eq{"id": ids}).Limit(1).ToSql()
		if err != nil {
			return fmt.Errorf("store: build duplicate check: %w", err)
		}
		var existing string
		switch err := tx.GetContext(ctx, &existing, query, args...); {
		case err == nil:
			return fmt.Errorf("store chunk %s: %w", existing, domain.ErrDuplicateChunk)
		case !errors.Is(err, sql.ErrNoRows):
			return storageErr("duplicate check", err)
		}
	}

	insert := s.builder().
		Insert(s.table).
		Columns(append(append([]string{}, payloadColumns...), "embedding")...)
	for i, p := range payloads {
		insert = insert.Values(
			p.ChunkID, p.SourceID, p.Position, p.Content, p.TokenCount,
			p.StartOffset, p.EndOffset, p.Section, p.Page, p.PrevID, p.NextID,
			pgv.NewVector(embeddings[i]),
		)
	}
	if overwrite {
		insert = insert.Suffix(`ON CONFLICT (id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			position = EXCLUDED.position,
			content = EXCLUDED.content,
			token_count = EXCLUDED.token_count,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			section = EXCLUDED.section,
			page = EXCLUDED.page,
			prev_id = EXCLUDED.prev_id,
			next_id = EXCLUDED.next_id,
			embedding = EXCLUDED.embedding`)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("store: build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return storageErr("insert chunks", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// hitRow is a search result row: payload columns plus the distance.
type hitRow struct {
	driven.ChunkPayload
	Distance float64 `db:"distance"`
}

// Search returns the topK nearest chunks ordered by descending
// similarity, ties broken by the seq column.
func (s *ChunkStore) Search(ctx context.Context, query []float32, topK int) ([]driven.ChunkHit, error) {
	return s.search(ctx, "", query, topK)
}

// SearchSource is Search restricted to one source.
func (s *ChunkStore) SearchSource(ctx context.Context, sourceID string, query []float32, topK int) ([]driven.ChunkHit, error) {
	return s.search(ctx, sourceID, query, topK)
}

func (s *ChunkStore) search(ctx context.Context, sourceID string, query []float32, topK int) ([]driven.ChunkHit, error) {
	if topK <= 0 {
		return []driven.ChunkHit{}, nil
	}

	operator := "<=>"
	if s.metric == MetricDot {
		operator = "<#>"
	}

	builder := s.builder().
		Select(payloadColumns...).
		Column(sq.Expr(fmt.Sprintf("(embedding %s ?) AS distance", operator), pgv.NewVector(query))).
		From(s.table).
		OrderBy("distance ASC", "seq ASC").
		Limit(uint64(topK))
	if sourceID != "" {
		builder = builder.Where(sq.Eq{"source_id": sourceID})
	}

	queryString, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("search: build query: %w", err)
	}

	var rows []hitRow
	if err := s.db.SelectContext(ctx, &rows, queryString, args...); err != nil {
		return nil, storageErr("search", err)
	}

	hits := make([]driven.ChunkHit, len(rows))
	for i, row := range rows {
		if err := row.ChunkPayload.Validate(); err != nil {
			return nil, fmt.Errorf("search: stored payload invalid: %w", err)
		}
		hits[i] = driven.ChunkHit{
			Chunk:      driven.ChunkFromPayload(row.ChunkPayload),
			Similarity: similarityFromDistance(s.metric, row.Distance),
		}
	}
	return hits, nil
}

// similarityFromDistance converts the operator's distance into a
// descending-is-better similarity: cosine distance becomes 1-d, the
// negative inner product flips sign.
func similarityFromDistance(metric Metric, distance float64) float64 {
	if metric == MetricDot {
		return -distance
	}
	return 1 - distance
}

// Get retrieves a single chunk payload by id.
func (s *ChunkStore) Get(ctx context.Context, chunkID string) (*domain.TextChunk, error) {
	query, args, err := s.builder().
		Select(payloadColumns...).From(s.table).Where(sq.Eq{"id": chunkID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("get: build query: %w", err)
	}

	var p driven.ChunkPayload
	if err := s.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get chunk %s: %w", chunkID, domain.ErrNotFound)
		}
		return nil, storageErr("get", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("get: stored payload invalid: %w", err)
	}
	chunk := driven.ChunkFromPayload(p)
	return &chunk, nil
}

// FetchNeighbors walks the previous/next links up to radius steps in
// each direction and returns the neighbours ordered by position.
func (s *ChunkStore) FetchNeighbors(ctx context.Context, chunkID string, radius int) ([]domain.TextChunk, error) {
	anchor, err := s.Get(ctx, chunkID)
	if err != nil {
		return nil, err
	}

	var out []domain.TextChunk

	id := anchor.PrevID
	for step := 0; step < radius && id != ""; step++ {
		chunk, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				break
			}
			return nil, err
		}
		out = append([]domain.TextChunk{*chunk}, out...)
		id = chunk.PrevID
	}

	id = anchor.NextID
	for step := 0; step < radius && id != ""; step++ {
		chunk, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				break
			}
			return nil, err
		}
		out = append(out, *chunk)
		id = chunk.NextID
	}

	return out, nil
}

// DeleteSource drops every chunk owned by the source.
func (s *ChunkStore) DeleteSource(ctx context.Context, sourceID string) error {
	query, args, err := s.builder().
		Delete(s.table).Where(sq.Eq{"source_id": sourceID}).ToSql()
	if err != nil {
		return fmt.Errorf("delete source: build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr("delete source", err)
	}
	return nil
}

// Close closes the database connection.
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

// storageErr tags infrastructure failures with the storage sentinel
// while keeping the driver's detail readable.
func storageErr(op string, err error) error {
	return fmt.Errorf("pgvector: %s: %v: %w", op, err, domain.ErrStorageUnavailable)
}

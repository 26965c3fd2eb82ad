package driven

import (
	"context"

	"github.com/inklet-labs/inklet/internal/core/domain"
)

// SourceStore persists source records and their readiness state.
// Backed by SQLite for local metadata storage. Chunk payloads live in
// the ChunkStore; this store only holds the source side of the
// ownership relation.
type SourceStore interface {
	// SaveSource stores or replaces a source record.
	SaveSource(ctx context.Context, src *domain.Source) error

	// GetSource retrieves a source by id.
	GetSource(ctx context.Context, id string) (*domain.Source, error)

	// ListSources returns sources ordered by creation time, newest
	// first, with limit/offset pagination.
	ListSources(ctx context.Context, limit, offset int) ([]domain.Source, error)

	// MarkReady flips the readiness flag once the source's full chunk
	// sequence has been persisted.
	MarkReady(ctx context.Context, id string) error

	// DeleteSource removes a source record. The caller cascades the
	// deletion to the chunk store.
	DeleteSource(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}

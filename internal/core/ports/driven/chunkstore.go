// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"
	"fmt"

	"github.com/inklet-labs/inklet/internal/core/domain"
)

// ChunkStore persists chunk payloads together with their embedding
// vectors and answers similarity queries. Backed by an external
// vector database; the store is the sole owner of embedding storage.
type ChunkStore interface {
	// Store persists the chunk payloads and embeddings for one source.
	// The write is atomic per source: retrieval never observes a
	// partial chunk sequence. Returns domain.ErrDuplicateChunk when a
	// chunk id already exists and overwrite is false, and
	// domain.ErrStorageUnavailable when the store cannot be reached.
	Store(ctx context.Context, chunks []domain.TextChunk, embeddings [][]float32, overwrite bool) error

	// Search returns up to topK chunks with raw similarity scores,
	// ordered by descending similarity. Ties break by insertion order,
	// earliest-stored chunk first, for determinism. An empty result is
	// a valid outcome, not an error.
	Search(ctx context.Context, query []float32, topK int) ([]ChunkHit, error)

	// SearchSource is Search restricted to a single source.
	SearchSource(ctx context.Context, sourceID string, query []float32, topK int) ([]ChunkHit, error)

	// Get retrieves a single chunk by id.
	Get(ctx context.Context, chunkID string) (*domain.TextChunk, error)

	// FetchNeighbors returns up to radius chunks before and after the
	// given chunk in its source's sequence, following the previous and
	// next links. Results are ordered by position.
	FetchNeighbors(ctx context.Context, chunkID string, radius int) ([]domain.TextChunk, error)

	// DeleteSource removes all chunks and vectors for a source.
	DeleteSource(ctx context.Context, sourceID string) error

	// Close releases resources.
	Close() error
}

// ChunkHit is a similarity search result.
type ChunkHit struct {
	// Chunk is the matched chunk, rebuilt from the stored payload.
	Chunk domain.TextChunk

	// Similarity is the raw similarity score, cosine or dot-product
	// as configured by the embedding collaborator.
	Similarity float64
}

// ChunkPayload is the explicit record shape shuttled to and from the
// vector store. Every adapter validates it at the boundary before a
// store or fetch; nothing dynamically typed crosses into the engine.
type ChunkPayload struct {
	ChunkID     string `json:"chunk_id" db:"id"`
	SourceID    string `json:"source_id" db:"source_id"`
	Position    int    `json:"position" db:"position"`
	Content     string `json:"content" db:"content"`
	TokenCount  int    `json:"token_count" db:"token_count"`
	StartOffset int    `json:"start_offset" db:"start_offset"`
	EndOffset   int    `json:"end_offset" db:"end_offset"`
	Section     string `json:"section_title,omitempty" db:"section"`
	Page        int    `json:"page_number,omitempty" db:"page"`
	PrevID      string `json:"previous_chunk_id,omitempty" db:"prev_id"`
	NextID      string `json:"next_chunk_id,omitempty" db:"next_id"`
}

// Validate checks structural invariants before the payload crosses
// the store boundary.
func (p ChunkPayload) Validate() error {
	switch {
	case p.ChunkID == "":
		return fmt.Errorf("chunk payload: missing chunk id: %w", domain.ErrInvalidInput)
	case p.SourceID == "":
		return fmt.Errorf("chunk payload %s: missing source id: %w", p.ChunkID, domain.ErrInvalidInput)
	case p.Position < 0:
		return fmt.Errorf("chunk payload %s: negative position: %w", p.ChunkID, domain.ErrInvalidInput)
	case p.StartOffset < 0 || p.EndOffset < p.StartOffset:
		return fmt.Errorf("chunk payload %s: bad offsets [%d,%d): %w", p.ChunkID, p.StartOffset, p.EndOffset, domain.ErrInvalidInput)
	case p.TokenCount <= 0:
		return fmt.Errorf("chunk payload %s: non-positive token count: %w", p.ChunkID, domain.ErrInvalidInput)
	}
	return nil
}

// PayloadFromChunk maps a domain chunk to its wire payload.
func PayloadFromChunk(c domain.TextChunk) ChunkPayload {
	return ChunkPayload{
		ChunkID:     c.ID,
		SourceID:    c.SourceID,
		Position:    c.Position,
		Content:     c.Content,
		TokenCount:  c.TokenCount,
		StartOffset: c.StartOffset,
		EndOffset:   c.EndOffset,
		Section:     c.Section,
		Page:        c.Page,
		PrevID:      c.PrevID,
		NextID:      c.NextID,
	}
}

// ChunkFromPayload maps a wire payload back to a domain chunk.
func ChunkFromPayload(p ChunkPayload) domain.TextChunk {
	return domain.TextChunk{
		ID:          p.ChunkID,
		SourceID:    p.SourceID,
		Position:    p.Position,
		Content:     p.Content,
		TokenCount:  p.TokenCount,
		StartOffset: p.StartOffset,
		EndOffset:   p.EndOffset,
		Section:     p.Section,
		Page:        p.Page,
		PrevID:      p.PrevID,
		NextID:      p.NextID,
	}
}

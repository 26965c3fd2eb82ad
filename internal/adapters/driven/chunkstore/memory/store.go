// Package memory provides an in-memory chunk store for tests and
// single-process use. It mirrors the pgvector adapter's semantics,
// including insertion-order tie-breaks.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// Metric selects how similarity is scored, matching whatever the
// embedding collaborator was trained with.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

type stored struct {
	payload   driven.ChunkPayload
	embedding []float32
	seq       int
}

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu      sync.RWMutex
	metric  Metric
	chunks  map[string]stored
	nextSeq int
}

// NewChunkStore creates an empty in-memory chunk store.
func NewChunkStore(metric Metric) *ChunkStore {
	if metric == "" {
		metric = MetricCosine
	}
	return &ChunkStore{
		metric: metric,
		chunks: make(map[string]stored),
	}
}

// Store persists payloads and embeddings for one source atomically:
// either every chunk commits or none do.
func (s *ChunkStore) Store(_ context.Context, chunks []domain.TextChunk, embeddings [][]float32, overwrite bool) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("store: %d chunks but %d embeddings: %w", len(chunks), len(embeddings), domain.ErrInvalidInput)
	}

	payloads := make([]driven.ChunkPayload, len(chunks))
	for i, c := range chunks {
		p := driven.PayloadFromChunk(c)
		if err := p.Validate(); err != nil {
			return err
		}
		payloads[i] = p
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !overwrite {
		for _, p := range payloads {
			if _, exists := s.chunks[p.ChunkID]; exists {
				return fmt.Errorf("store chunk %s: %w", p.ChunkID, domain.ErrDuplicateChunk)
			}
		}
	}

	for i, p := range payloads {
		entry := stored{payload: p, embedding: embeddings[i], seq: s.nextSeq}
		if prev, exists := s.chunks[p.ChunkID]; exists {
			entry.seq = prev.seq // overwrite keeps the original insertion order
		} else {
			s.nextSeq++
		}
		s.chunks[p.ChunkID] = entry
	}
	return nil
}

// Search returns the topK most similar chunks, ties broken by
// insertion order.
func (s *ChunkStore) Search(ctx context.Context, query []float32, topK int) ([]driven.ChunkHit, error) {
	return s.search(ctx, "", query, topK)
}

// SearchSource is Search restricted to one source.
func (s *ChunkStore) SearchSource(ctx context.Context, sourceID string, query []float32, topK int) ([]driven.ChunkHit, error) {
	return s.search(ctx, sourceID, query, topK)
}

func (s *ChunkStore) search(_ context.Context, sourceID string, query []float32, topK int) ([]driven.ChunkHit, error) {
	if topK <= 0 {
		return []driven.ChunkHit{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry stored
		score float64
	}
	candidates := make([]scored, 0, len(s.chunks))
	for _, entry := range s.chunks {
		if sourceID != "" && entry.payload.SourceID != sourceID {
			continue
		}
		candidates = append(candidates, scored{entry: entry, score: s.score(query, entry.embedding)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.seq < candidates[j].entry.seq
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	hits := make([]driven.ChunkHit, len(candidates))
	for i, c := range candidates {
		hits[i] = driven.ChunkHit{
			Chunk:      driven.ChunkFromPayload(c.entry.payload),
			Similarity: c.score,
		}
	}
	return hits, nil
}

// Get retrieves a single chunk by id.
func (s *ChunkStore) Get(_ context.Context, chunkID string) (*domain.TextChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.chunks[chunkID]
	if !ok {
		return nil, fmt.Errorf("get chunk %s: %w", chunkID, domain.ErrNotFound)
	}
	chunk := driven.ChunkFromPayload(entry.payload)
	return &chunk, nil
}

// FetchNeighbors walks the previous/next links up to radius steps in
// each direction and returns the neighbours ordered by position.
func (s *ChunkStore) FetchNeighbors(_ context.Context, chunkID string, radius int) ([]domain.TextChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anchor, ok := s.chunks[chunkID]
	if !ok {
		return nil, fmt.Errorf("fetch neighbours of %s: %w", chunkID, domain.ErrNotFound)
	}

	var out []domain.TextChunk

	id := anchor.payload.PrevID
	for step := 0; step < radius && id != ""; step++ {
		entry, ok := s.chunks[id]
		if !ok {
			break
		}
		out = append([]domain.TextChunk{driven.ChunkFromPayload(entry.payload)}, out...)
		id = entry.payload.PrevID
	}

	id = anchor.payload.NextID
	for step := 0; step < radius && id != ""; step++ {
		entry, ok := s.chunks[id]
		if !ok {
			break
		}
		out = append(out, driven.ChunkFromPayload(entry.payload))
		id = entry.payload.NextID
	}

	return out, nil
}

// DeleteSource drops every chunk owned by the source.
func (s *ChunkStore) DeleteSource(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.chunks {
		if entry.payload.SourceID == sourceID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Close releases resources. A no-op for the in-memory store.
func (s *ChunkStore) Close() error {
	return nil
}

// Len returns the number of stored chunks. Useful for tests.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// score computes similarity under the configured metric.
func (s *ChunkStore) score(a, b []float32) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if s.metric == MetricDot {
		return dot
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

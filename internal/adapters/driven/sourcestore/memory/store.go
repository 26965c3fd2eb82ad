// Package memory provides an in-memory source registry for tests and
// single-process use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driven"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore is an in-memory implementation of driven.SourceStore.
type SourceStore struct {
	mu      sync.RWMutex
	sources map[string]domain.Source
}

// NewSourceStore creates an empty in-memory source store.
func NewSourceStore() *SourceStore {
	return &SourceStore{sources: make(map[string]domain.Source)}
}

// SaveSource stores or replaces a source record.
func (s *SourceStore) SaveSource(_ context.Context, src *domain.Source) error {
	if src == nil || src.ID == "" {
		return fmt.Errorf("save source: %w", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record := *src
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.sources[record.ID] = record
	return nil
}

// GetSource retrieves a source by id.
func (s *SourceStore) GetSource(_ context.Context, id string) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[id]
	if !ok {
		return nil, fmt.Errorf("get source %s: %w", id, domain.ErrNotFound)
	}
	return &src, nil
}

// ListSources returns sources ordered newest first.
func (s *SourceStore) ListSources(_ context.Context, limit, offset int) ([]domain.Source, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	out := make([]domain.Source, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if offset >= len(out) {
		return []domain.Source{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkReady flips the readiness flag.
func (s *SourceStore) MarkReady(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("mark ready %s: %w", id, domain.ErrNotFound)
	}
	src.Ready = true
	s.sources[id] = src
	return nil
}

// DeleteSource removes a source record.
func (s *SourceStore) DeleteSource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
	return nil
}

// Close releases resources. A no-op for the in-memory store.
func (s *SourceStore) Close() error {
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driven"
	"github.com/inklet-labs/inklet/internal/core/ports/driving"
	"github.com/inklet-labs/inklet/internal/logger"
	"github.com/inklet-labs/inklet/internal/textproc/chunker"
	"github.com/inklet-labs/inklet/internal/textproc/normaliser"
	"github.com/inklet-labs/inklet/internal/textproc/sections"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestConfig bundles the pipeline stage configurations. Explicit
// structs passed into the constructor; no process-wide state.
type IngestConfig struct {
	Normaliser normaliser.Config
	Sections   sections.Config
	Chunker    chunker.Config
}

// IngestService drives the per-source pipeline: normalise, detect
// sections, chunk, embed, persist. Stages within one source run
// strictly sequentially (chunk linking needs the full sequence);
// independent sources may be ingested concurrently.
type IngestService struct {
	sourceStore driven.SourceStore
	chunkStore  driven.ChunkStore
	embedder    driven.EmbeddingService
	cfg         IngestConfig

	// guard enforces at most one chunking pass per source id.
	guardMu sync.Mutex
	guard   map[string]struct{}
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	sourceStore driven.SourceStore,
	chunkStore driven.ChunkStore,
	embedder driven.EmbeddingService,
	cfg IngestConfig,
) *IngestService {
	return &IngestService{
		sourceStore: sourceStore,
		chunkStore:  chunkStore,
		embedder:    embedder,
		cfg:         cfg,
		guard:       make(map[string]struct{}),
	}
}

// Ingest processes one source end to end. The source record is saved
// unready first; the readiness flag flips only after the full chunk
// sequence and its vectors have been persisted.
func (s *IngestService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.Source, error) {
	logger.Section("Ingestion")

	id := req.SourceID
	reingest := id != ""
	if id == "" {
		id = uuid.New().String()
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = domain.ContentTypeNote
	}

	if !s.acquire(id) {
		return nil, fmt.Errorf("ingest %s: %w", id, domain.ErrIngestInProgress)
	}
	defer s.release(id)

	if s.embedder == nil {
		return nil, fmt.Errorf("ingest %s: %w", id, domain.ErrEmbeddingUnavailable)
	}

	norm, err := normaliser.Normalise(req.Content, req.Pages, s.cfg.Normaliser)
	if err != nil {
		// Empty sources are a no-op, not a failure; nothing is stored.
		return nil, fmt.Errorf("ingest %s: normalise: %w", id, err)
	}
	logger.Debug("Ingest %s: normalised to %d chars, %d artifacts removed", id, len(norm.Text), len(norm.Removed))

	sects := sections.Detect(norm.Text, s.cfg.Sections)
	logger.Debug("Ingest %s: %d sections detected", id, len(sects)-1)

	chunks, err := chunker.Split(id, norm.Text, sects, norm.Pages, s.cfg.Chunker)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: chunk: %w", id, err)
	}

	texts := lo.Map(chunks, func(c domain.TextChunk, _ int) string { return c.Content })
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, stageErr("ingest", id, "embed", err)
	}

	src := &domain.Source{
		ID:                id,
		Title:             norm.Title,
		Content:           req.Content,
		NormalisedContent: norm.Text,
		ContentType:       contentType,
		PageCount:         len(norm.Pages),
		Ready:             false,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.sourceStore.SaveSource(ctx, src); err != nil {
		return nil, stageErr("ingest", id, "save source", err)
	}

	// Re-ingestion replaces the previous chunk sequence wholesale:
	// chunk ids are fresh, so leftovers must not survive.
	if reingest {
		if err := s.chunkStore.DeleteSource(ctx, id); err != nil {
			return nil, stageErr("ingest", id, "clear previous chunks", err)
		}
	}
	if err := s.chunkStore.Store(ctx, chunks, embeddings, reingest); err != nil {
		return nil, stageErr("ingest", id, "store chunks", err)
	}

	if err := s.sourceStore.MarkReady(ctx, id); err != nil {
		return nil, stageErr("ingest", id, "mark ready", err)
	}
	src.Ready = true

	logger.Info("Ingest %s: stored %d chunks", id, len(chunks))
	return src, nil
}

// Delete removes a source and cascades to its chunks and vectors.
func (s *IngestService) Delete(ctx context.Context, sourceID string) error {
	if !s.acquire(sourceID) {
		return fmt.Errorf("delete %s: %w", sourceID, domain.ErrIngestInProgress)
	}
	defer s.release(sourceID)

	// Drop the record first so retrieval stops seeing the source,
	// then cascade to the chunk store.
	if err := s.sourceStore.DeleteSource(ctx, sourceID); err != nil {
		return stageErr("delete", sourceID, "source record", err)
	}
	if err := s.chunkStore.DeleteSource(ctx, sourceID); err != nil {
		return stageErr("delete", sourceID, "chunks", err)
	}
	logger.Info("Deleted source %s", sourceID)
	return nil
}

// Get retrieves a stored source record.
func (s *IngestService) Get(ctx context.Context, sourceID string) (*domain.Source, error) {
	return s.sourceStore.GetSource(ctx, sourceID)
}

// List returns stored sources with pagination.
func (s *IngestService) List(ctx context.Context, limit, offset int) ([]domain.Source, error) {
	return s.sourceStore.ListSources(ctx, limit, offset)
}

func (s *IngestService) acquire(id string) bool {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	if _, busy := s.guard[id]; busy {
		return false
	}
	s.guard[id] = struct{}{}
	return true
}

func (s *IngestService) release(id string) {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	delete(s.guard, id)
}

// stageErr wraps a stage failure with enough context to render a
// user-facing message. Deadline expiry surfaces as the timeout
// condition; retries belong to the collaborator layer.
func stageErr(op, sourceID, stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %s: %w", op, sourceID, stage, domain.ErrTimeout)
	}
	return fmt.Errorf("%s %s: %s: %w", op, sourceID, stage, err)
}

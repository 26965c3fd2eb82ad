package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chunkmem "github.com/inklet-labs/inklet/internal/adapters/driven/chunkstore/memory"
	sourcemem "github.com/inklet-labs/inklet/internal/adapters/driven/sourcestore/memory"
	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driving"
	"github.com/inklet-labs/inklet/internal/textproc/chunker"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	embedding []float32
	embedErr  error
	dims      int
	calls     int
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.vector()
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 3
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

func (m *mockEmbeddingService) vector() []float32 {
	if m.embedding != nil {
		return m.embedding
	}
	return []float32{0.1, 0.2, 0.3}
}

// --- Test helpers ---

// smallChunks keeps test sources short while still producing several
// chunks per source.
func smallChunks() IngestConfig {
	return IngestConfig{
		Chunker: chunker.Config{TargetTokens: 20, OverlapTokens: 5, MinTokens: 10},
	}
}

func setupIngest(t *testing.T) (*IngestService, *chunkmem.ChunkStore, *sourcemem.SourceStore) {
	t.Helper()
	chunkStore := chunkmem.NewChunkStore(chunkmem.MetricCosine)
	sourceStore := sourcemem.NewSourceStore()
	svc := NewIngestService(sourceStore, chunkStore, &mockEmbeddingService{}, smallChunks())
	return svc, chunkStore, sourceStore
}

func noteContent(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = "note"
	}
	return strings.Join(parts, " ")
}

// --- Tests ---

func TestNewIngestService(t *testing.T) {
	svc, _, _ := setupIngest(t)
	require.NotNil(t, svc)
	assert.NotNil(t, svc.guard)
}

func TestIngestService_Ingest_GeneratesID(t *testing.T) {
	svc, chunkStore, sourceStore := setupIngest(t)
	ctx := context.Background()

	src, err := svc.Ingest(ctx, driving.IngestRequest{Content: noteContent(60)})

	require.NoError(t, err)
	assert.NotEmpty(t, src.ID)
	assert.True(t, src.Ready)
	assert.Equal(t, domain.ContentTypeNote, src.ContentType)
	assert.Greater(t, chunkStore.Len(), 1)

	stored, err := sourceStore.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.True(t, stored.Ready)
}

func TestIngestService_Ingest_EmptySource(t *testing.T) {
	svc, chunkStore, _ := setupIngest(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, driving.IngestRequest{Content: "   \n\n  "})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptySource)
	assert.Zero(t, chunkStore.Len())
}

func TestIngestService_Ingest_NoEmbedder(t *testing.T) {
	chunkStore := chunkmem.NewChunkStore(chunkmem.MetricCosine)
	sourceStore := sourcemem.NewSourceStore()
	svc := NewIngestService(sourceStore, chunkStore, nil, smallChunks())

	_, err := svc.Ingest(context.Background(), driving.IngestRequest{Content: noteContent(30)})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestIngestService_Ingest_EmbedError(t *testing.T) {
	chunkStore := chunkmem.NewChunkStore(chunkmem.MetricCosine)
	sourceStore := sourcemem.NewSourceStore()
	embedder := &mockEmbeddingService{embedErr: errors.New("embed failed")}
	svc := NewIngestService(sourceStore, chunkStore, embedder, smallChunks())

	_, err := svc.Ingest(context.Background(), driving.IngestRequest{Content: noteContent(30)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed failed")
	assert.Zero(t, chunkStore.Len())
}

func TestIngestService_Ingest_DeadlineBecomesTimeout(t *testing.T) {
	chunkStore := chunkmem.NewChunkStore(chunkmem.MetricCosine)
	sourceStore := sourcemem.NewSourceStore()
	embedder := &mockEmbeddingService{embedErr: context.DeadlineExceeded}
	svc := NewIngestService(sourceStore, chunkStore, embedder, smallChunks())

	_, err := svc.Ingest(context.Background(), driving.IngestRequest{Content: noteContent(30)})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestIngestService_Ingest_Reingest(t *testing.T) {
	svc, chunkStore, _ := setupIngest(t)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, driving.IngestRequest{SourceID: "src-1", Content: noteContent(60)})
	require.NoError(t, err)
	countAfterFirst := chunkStore.Len()

	second, err := svc.Ingest(ctx, driving.IngestRequest{SourceID: "src-1", Content: noteContent(60)})
	require.NoError(t, err)

	// Re-ingestion replaces the chunk sequence; nothing accumulates.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, countAfterFirst, chunkStore.Len())
}

func TestIngestService_Ingest_ConcurrentSameSource(t *testing.T) {
	svc, _, _ := setupIngest(t)

	require.True(t, svc.acquire("src-busy"))
	defer svc.release("src-busy")

	_, err := svc.Ingest(context.Background(), driving.IngestRequest{SourceID: "src-busy", Content: noteContent(30)})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIngestInProgress)
}

func TestIngestService_Ingest_PagesAnnotated(t *testing.T) {
	svc, chunkStore, _ := setupIngest(t)
	ctx := context.Background()

	content := noteContent(30) + "\n\n" + noteContent(30)
	pages := []domain.PageBoundary{
		{Number: 1, StartOffset: 0},
		{Number: 2, StartOffset: len(noteContent(30)) + 2},
	}
	src, err := svc.Ingest(ctx, driving.IngestRequest{Content: content, ContentType: domain.ContentTypePDF, Pages: pages})

	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypePDF, src.ContentType)
	assert.Equal(t, 2, src.PageCount)
	assert.Greater(t, chunkStore.Len(), 0)
}

func TestIngestService_Delete(t *testing.T) {
	svc, chunkStore, sourceStore := setupIngest(t)
	ctx := context.Background()

	src, err := svc.Ingest(ctx, driving.IngestRequest{Content: noteContent(60)})
	require.NoError(t, err)
	require.Greater(t, chunkStore.Len(), 0)

	require.NoError(t, svc.Delete(ctx, src.ID))

	_, err = sourceStore.GetSource(ctx, src.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, chunkStore.Len())
}

func TestIngestService_GetAndList(t *testing.T) {
	svc, _, _ := setupIngest(t)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, driving.IngestRequest{Content: noteContent(30)})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, driving.IngestRequest{Content: noteContent(40)})
	require.NoError(t, err)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	all, err := svc.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	page, err := svc.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driving"
)

// recordingIngest implements driving.IngestService and records calls.
type recordingIngest struct {
	mu       sync.Mutex
	requests []driving.IngestRequest
	deleted  []string
}

func (r *recordingIngest) Ingest(_ context.Context, req driving.IngestRequest) (*domain.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return &domain.Source{ID: req.SourceID, Ready: true}, nil
}

func (r *recordingIngest) Delete(_ context.Context, sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, sourceID)
	return nil
}

func (r *recordingIngest) Get(_ context.Context, _ string) (*domain.Source, error) {
	return nil, domain.ErrNotFound
}

func (r *recordingIngest) List(_ context.Context, _, _ int) ([]domain.Source, error) {
	return nil, nil
}

func (r *recordingIngest) ingestCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func (r *recordingIngest) deletedIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deleted...)
}

func TestSourceID_Stable(t *testing.T) {
	a := SourceID("/notes/journal.md")
	b := SourceID("/notes/journal.md")
	c := SourceID("/notes/other.md")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "file-")
}

func TestWatchable(t *testing.T) {
	assert.True(t, watchable("journal.md"))
	assert.True(t, watchable("TODO.TXT"))
	assert.False(t, watchable("photo.png"))
	assert.False(t, watchable("archive.md.bak"))
	assert.False(t, watchable("noextension"))
}

func TestWatcher_IngestsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("note a"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("note b"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.png"), []byte{1, 2}, 0600))

	ingest := &recordingIngest{}
	w := New(ingest, dir, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return ingest.ingestCount() == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_IngestsNewFile(t *testing.T) {
	dir := t.TempDir()
	ingest := &recordingIngest{}
	w := New(ingest, dir, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// Give the watch a moment to attach before creating the file.
	time.Sleep(200 * time.Millisecond)
	path := filepath.Join(dir, "new.md")
	require.NoError(t, os.WriteFile(path, []byte("fresh note"), 0600))

	require.Eventually(t, func() bool {
		return ingest.ingestCount() >= 1
	}, 3*time.Second, 20*time.Millisecond)

	ingest.mu.Lock()
	req := ingest.requests[len(ingest.requests)-1]
	ingest.mu.Unlock()
	assert.Equal(t, SourceID(path), req.SourceID)
	assert.Equal(t, "fresh note", req.Content)
}

func TestWatcher_RemovedFileDeletesSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.md")
	require.NoError(t, os.WriteFile(path, []byte("short lived"), 0600))

	ingest := &recordingIngest{}
	w := New(ingest, dir, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return ingest.ingestCount() == 1
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		ids := ingest.deletedIDs()
		return len(ids) == 1 && ids[0] == SourceID(path)
	}, 3*time.Second, 20*time.Millisecond)
}

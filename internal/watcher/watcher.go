// Package watcher feeds filesystem changes into the ingest pipeline.
// It watches a directory for note files and re-ingests them as they
// appear or change, keyed by path so edits update the same source.
package watcher

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driving"
	"github.com/inklet-labs/inklet/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is
// ingested. Editors fire several writes per save.
const DefaultDebounce = 500 * time.Millisecond

var watchedExtensions = map[string]struct{}{
	".md":  {},
	".txt": {},
}

// Watcher ingests files from a watched directory.
type Watcher struct {
	ingest   driving.IngestService
	dir      string
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher for the given directory.
func New(ingest driving.IngestService, dir string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		ingest:   ingest,
		dir:      dir,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches until the context is cancelled. Existing files are
// ingested once at startup so the watch starts from a complete state.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}

	if err := w.ingestExisting(ctx); err != nil {
		return err
	}
	logger.Info("Watching %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)
		}
	}
}

func (w *Watcher) ingestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !watchable(entry.Name()) {
			continue
		}
		w.ingestFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !watchable(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			w.remove(ctx, event.Name)
		}
		return
	}
	w.schedule(ctx, event.Name)
}

// schedule delays the ingest until the file has stopped changing.
// Another event for the same path resets its timer.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingestFile(ctx, path)
	})
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Read %s failed: %v", path, err)
		return
	}

	_, err = w.ingest.Ingest(ctx, driving.IngestRequest{
		SourceID:    SourceID(path),
		Content:     string(raw),
		ContentType: domain.ContentTypeNote,
	})
	switch {
	case errors.Is(err, domain.ErrEmptySource):
		logger.Debug("Skipped empty file %s", path)
	case errors.Is(err, domain.ErrIngestInProgress):
		logger.Debug("Ingest of %s already running", path)
	case err != nil:
		logger.Warn("Ingest %s failed: %v", path, err)
	default:
		logger.Info("Ingested %s", path)
	}
}

func (w *Watcher) remove(ctx context.Context, path string) {
	if err := w.ingest.Delete(ctx, SourceID(path)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("Delete for removed file %s failed: %v", path, err)
	}
}

// SourceID derives a stable source id from a file path, so repeated
// saves update one source instead of accumulating new ones.
func SourceID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha1.Sum([]byte(abs))
	return "file-" + hex.EncodeToString(sum[:8])
}

func watchable(path string) bool {
	_, ok := watchedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

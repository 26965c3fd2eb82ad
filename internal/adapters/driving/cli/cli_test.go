package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driving"
	"github.com/inklet-labs/inklet/internal/watcher"
)

// --- Mock services ---

type mockIngestService struct {
	source    *domain.Source
	sources   []domain.Source
	ingestErr error
	deleteErr error
	lastReq   driving.IngestRequest
	deletedID string
}

func (m *mockIngestService) Ingest(_ context.Context, req driving.IngestRequest) (*domain.Source, error) {
	m.lastReq = req
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	if m.source != nil {
		return m.source, nil
	}
	return &domain.Source{
		ID:          "src-test",
		Title:       "Test Source",
		ContentType: domain.ContentTypeNote,
		Ready:       true,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *mockIngestService) Delete(_ context.Context, sourceID string) error {
	m.deletedID = sourceID
	return m.deleteErr
}

func (m *mockIngestService) Get(_ context.Context, sourceID string) (*domain.Source, error) {
	for i := range m.sources {
		if m.sources[i].ID == sourceID {
			return &m.sources[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockIngestService) List(_ context.Context, limit, offset int) ([]domain.Source, error) {
	if offset >= len(m.sources) {
		return []domain.Source{}, nil
	}
	end := offset + limit
	if end > len(m.sources) {
		end = len(m.sources)
	}
	return m.sources[offset:end], nil
}

type mockRetrievalService struct {
	results  []domain.ScoredChunk
	err      error
	lastOpts driving.RetrieveOptions
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string, opts driving.RetrieveOptions) ([]domain.ScoredChunk, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// --- Test helpers ---

// setupTestServices wires mocks into the package-level services and
// returns a cleanup restoring the previous state.
func setupTestServices() (*mockIngestService, *mockRetrievalService, func()) {
	ingest := &mockIngestService{}
	retrieval := &mockRetrievalService{}

	prevIngest, prevRetrieval := ingestService, retrievalService
	ingestService = ingest
	retrievalService = retrieval

	return ingest, retrieval, func() {
		ingestService = prevIngest
		retrievalService = prevRetrieval
	}
}

// resetFlags restores flag-bound package variables; cobra keeps the
// previous run's values otherwise.
func resetFlags() {
	verbose, configPath = false, ""
	ingestID, ingestType = "", ""
	searchLimit, searchSource, searchExpand, searchJSON = 10, "", false, false
	sourcesLimit, sourcesOffset = 20, 0
	watchDebounce = watcher.DefaultDebounce
}

func executeCommand(args ...string) (string, error) {
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

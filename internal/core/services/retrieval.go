package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/core/ports/driven"
	"github.com/inklet-labs/inklet/internal/core/ports/driving"
	"github.com/inklet-labs/inklet/internal/logger"
	"github.com/inklet-labs/inklet/internal/reranker"
	"github.com/inklet-labs/inklet/internal/tokens"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Over-fetch factor: the store returns this many times the requested
// result count so the reranker has a real candidate pool to reorder.
const defaultOverFetch = 3

// DefaultTopK is the result count used when the caller does not set one.
const DefaultTopK = 10

// RetrievalConfig tunes the retrieval orchestrator.
type RetrievalConfig struct {
	// Weights for the reranker. Zero value falls back to the defaults.
	Weights reranker.Weights

	// OverFetch multiplies the requested result count for the store
	// query. Values below 1 fall back to the default.
	OverFetch int

	// MaxContextTokens caps the token footprint of expanded context.
	// Zero disables the budget.
	MaxContextTokens int
}

// RetrievalService embeds the query, over-fetches nearest chunks from
// the store, reranks them with lexical signals and returns the top
// results, optionally expanded with their stored neighbours.
type RetrievalService struct {
	chunkStore driven.ChunkStore
	embedder   driven.EmbeddingService
	counter    *tokens.Counter
	cfg        RetrievalConfig
}

// NewRetrievalService creates a new retrieval service. The token
// counter is optional; without one the context budget is not enforced.
func NewRetrievalService(
	chunkStore driven.ChunkStore,
	embedder driven.EmbeddingService,
	counter *tokens.Counter,
	cfg RetrievalConfig,
) *RetrievalService {
	if cfg.OverFetch < 1 {
		cfg.OverFetch = defaultOverFetch
	}
	return &RetrievalService{
		chunkStore: chunkStore,
		embedder:   embedder,
		counter:    counter,
		cfg:        cfg,
	}
}

// Retrieve runs the full retrieval pass for one query.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, opts driving.RetrieveOptions) ([]domain.ScoredChunk, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.ScoredChunk{}, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("retrieve: %w", domain.ErrEmbeddingUnavailable)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, stageErr("retrieve", "query", "embed", err)
	}

	fetch := topK * s.cfg.OverFetch
	var hits []driven.ChunkHit
	if opts.SourceID != "" {
		hits, err = s.chunkStore.SearchSource(ctx, opts.SourceID, vector, fetch)
	} else {
		hits, err = s.chunkStore.Search(ctx, vector, fetch)
	}
	if err != nil {
		return nil, stageErr("retrieve", "query", "search", err)
	}
	if len(hits) == 0 {
		logger.Info("Retrieval: no matching chunks")
		return []domain.ScoredChunk{}, nil
	}
	logger.Debug("Retrieval: %d candidates for top %d", len(hits), topK)

	candidates := make([]reranker.Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, reranker.Candidate{
			Chunk:         hit.Chunk,
			Similarity:    hit.Similarity,
			Neighbourhood: s.neighbourTexts(ctx, hit.Chunk, 1),
		})
	}

	scored := reranker.Rerank(query, candidates, s.cfg.Weights)
	if len(scored) > topK {
		scored = scored[:topK]
	}

	if opts.ExpandContext {
		s.expandContext(ctx, scored, opts.ContextRadius)
	}
	return scored, nil
}

// neighbourTexts fetches the contents of a chunk's linked neighbours.
// Neighbour fetch failures degrade the coverage signal, never the
// query; they are logged and swallowed.
func (s *RetrievalService) neighbourTexts(ctx context.Context, chunk domain.TextChunk, radius int) []string {
	neighbours, err := s.chunkStore.FetchNeighbors(ctx, chunk.ID, radius)
	if err != nil {
		logger.Warn("Neighbour fetch for %s failed: %v", chunk.ID, err)
		return nil
	}
	texts := make([]string, 0, len(neighbours))
	for _, n := range neighbours {
		texts = append(texts, n.Content)
	}
	return texts
}

// expandContext attaches neighbour chunks to each result, skipping
// any chunk already present elsewhere in the result set so callers
// never render the same text twice. Results are expanded in rank
// order; when a token budget is configured, expansion stops once the
// attached context exceeds it.
func (s *RetrievalService) expandContext(ctx context.Context, scored []domain.ScoredChunk, radius int) {
	if radius <= 0 {
		radius = 1
	}

	seen := make(map[string]struct{}, len(scored))
	for _, sc := range scored {
		seen[sc.Chunk.ID] = struct{}{}
	}

	budget := s.cfg.MaxContextTokens
	spent := 0
	for i := range scored {
		if budget > 0 && spent >= budget {
			return
		}
		neighbours, err := s.chunkStore.FetchNeighbors(ctx, scored[i].Chunk.ID, radius)
		if err != nil {
			logger.Warn("Context expansion for %s failed: %v", scored[i].Chunk.ID, err)
			continue
		}
		for _, n := range neighbours {
			if _, dup := seen[n.ID]; dup {
				continue
			}
			if budget > 0 && s.counter != nil {
				cost := s.counter.Count(n.Content)
				if spent+cost > budget {
					continue
				}
				spent += cost
			}
			seen[n.ID] = struct{}{}
			scored[i].Context = append(scored[i].Context, n)
		}
	}
}

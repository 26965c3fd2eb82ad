package driving

import (
	"context"

	"github.com/inklet-labs/inklet/internal/core/domain"
)

// RetrieveOptions configures one retrieval call.
type RetrieveOptions struct {
	// TopK is the maximum number of results (default 10).
	TopK int

	// SourceID restricts retrieval to one source when non-empty.
	SourceID string

	// ExpandContext attaches neighbour chunks to each surviving
	// result, deduplicating ids already present in the result set.
	ExpandContext bool

	// ContextRadius is how many neighbours to fetch on each side
	// during expansion (default 1).
	ContextRadius int
}

// RetrievalService answers queries against the ingested sources.
// Retrieval is read-only and may run with unbounded concurrency
// across distinct queries; cancellation mid-flight is always safe.
type RetrievalService interface {
	// Retrieve embeds the query, over-fetches similarity candidates,
	// reranks them and returns the topK results with score breakdowns
	// attached. An empty result set is a valid outcome, not an error.
	Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]domain.ScoredChunk, error)
}

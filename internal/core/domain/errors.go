package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors. All failures are
// scoped to the single source or query being processed; none are
// fatal to the process.
var (
	// ErrEmptySource indicates normalisation produced no content.
	// Surfaced to the caller as a no-op, not a fatal failure.
	ErrEmptySource = errors.New("empty source")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable indicates the external vector store could
	// not be reached. The operation is aborted; the caller may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrDuplicateChunk indicates a chunk identifier already exists
	// and overwrite was not requested.
	ErrDuplicateChunk = errors.New("duplicate chunk")

	// ErrTimeout indicates an external call exceeded its bound.
	// Retry policy belongs to the collaborator layer, never here.
	ErrTimeout = errors.New("timeout")

	// ErrIngestInProgress indicates an ingestion pass is already
	// running for the source. At most one chunking pass may run per
	// source id.
	ErrIngestInProgress = errors.New("ingestion in progress")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Retrieval and ingestion are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// Package driving provides interfaces for application entry points (primary/inbound ports).
package driving

import (
	"context"

	"github.com/inklet-labs/inklet/internal/core/domain"
)

// IngestRequest carries one source's raw text into the engine.
type IngestRequest struct {
	// SourceID optionally fixes the source identifier, enabling
	// idempotent re-ingestion. Generated when empty.
	SourceID string

	// Content is the raw extracted text.
	Content string

	// ContentType distinguishes plain notes from PDF-extracted text.
	ContentType domain.ContentType

	// Pages is the optional page-boundary table supplied by the PDF
	// extraction collaborator, with offsets into Content.
	Pages []domain.PageBoundary
}

// IngestService drives the per-source pipeline: normalise, detect
// sections, chunk, embed, persist. Independent sources may be
// ingested concurrently; the same source id may not.
type IngestService interface {
	// Ingest processes one source end to end and returns the stored
	// source record. Returns domain.ErrEmptySource when normalisation
	// produces no content (a no-op, nothing is stored) and
	// domain.ErrIngestInProgress when the source is already being
	// ingested.
	Ingest(ctx context.Context, req IngestRequest) (*domain.Source, error)

	// Delete removes a source and cascades to its chunks and vectors.
	Delete(ctx context.Context, sourceID string) error

	// Get retrieves a stored source record.
	Get(ctx context.Context, sourceID string) (*domain.Source, error)

	// List returns stored sources with pagination.
	List(ctx context.Context, limit, offset int) ([]domain.Source, error)
}

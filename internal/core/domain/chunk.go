package domain

// TextChunk is a contiguous, token-bounded span of a source's
// normalised text. It is the unit of retrieval.
//
// Chunks are created once by the chunker and immutable afterwards,
// except for embedding attachment which the chunk store owns.
// Siblings are referenced by identifier only, never by pointer, so a
// source's chunk sequence forms no cyclic object graph.
type TextChunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// SourceID links to the owning source.
	SourceID string `json:"source_id"`

	// Position is the 0-based ordinal within the source, strictly
	// increasing in offset order.
	Position int `json:"position"`

	// Content is the chunk text, a slice of the normalised source text.
	Content string `json:"content"`

	// TokenCount is the number of tokens covered by this chunk.
	TokenCount int `json:"token_count"`

	// StartOffset and EndOffset are character offsets into the
	// normalised source text. Consecutive chunks overlap by the
	// configured token overlap, so ranges are non-decreasing but
	// not disjoint.
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`

	// Section is the label of the section covering StartOffset.
	// Empty when the chunk falls before any detected heading.
	Section string `json:"section,omitempty"`

	// Page is the 1-based page covering StartOffset, zero when no
	// page table was supplied.
	Page int `json:"page,omitempty"`

	// PrevID and NextID identify sequence neighbours, empty at the
	// first and last chunk of a source.
	PrevID string `json:"prev_id,omitempty"`
	NextID string `json:"next_id,omitempty"`
}

// ScoredChunk pairs a chunk with its score breakdown. It is built
// per query and never persisted.
type ScoredChunk struct {
	Chunk TextChunk `json:"chunk"`

	// Similarity is the raw vector-search score, min-max normalised
	// across the candidate set.
	Similarity float64 `json:"similarity"`

	// Coverage is the fraction of distinct query terms found in the
	// chunk's linked neighbourhood (the chunk plus its immediate
	// previous and next chunks), normalised.
	Coverage float64 `json:"coverage"`

	// TermOverlap is the fraction of distinct query terms matched in
	// the chunk text alone, normalised.
	TermOverlap float64 `json:"term_overlap"`

	// Combined is the weighted sum used for the final ordering.
	Combined float64 `json:"combined"`

	// Context holds neighbour chunks attached during context
	// expansion. Empty unless expansion was requested.
	Context []TextChunk `json:"context,omitempty"`
}

// Query is a user question posed against the ingested sources.
// Filters are intentionally absent: tag-based filtering existed in an
// earlier revision and was removed in favour of pure semantic
// retrieval.
type Query struct {
	// Text is the raw question.
	Text string `json:"text"`

	// SourceID restricts retrieval to one source when non-empty.
	SourceID string `json:"source_id,omitempty"`
}

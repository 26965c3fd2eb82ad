package domain

import "time"

// ContentType identifies how a source's raw text was produced.
type ContentType string

const (
	// ContentTypeNote is plain text typed or pasted by the user.
	ContentTypeNote ContentType = "note"

	// ContentTypePDF is text extracted from a PDF by the extraction
	// collaborator, usually accompanied by a page table.
	ContentTypePDF ContentType = "pdf"
)

// Source represents one ingested document or note.
// It exclusively owns its chunks: deleting a source cascades to them.
type Source struct {
	// ID is the unique identifier for the source.
	ID string `json:"id"`

	// Title is a human-readable title, extracted during normalisation
	// when the raw text starts with a short line.
	Title string `json:"title,omitempty"`

	// Content is the raw text as supplied at ingestion time.
	Content string `json:"content"`

	// NormalisedContent is the cleaned text the chunker operated on.
	// Chunk offsets index into this string.
	NormalisedContent string `json:"normalised_content"`

	// ContentType records whether the text came from a note or a PDF.
	ContentType ContentType `json:"content_type"`

	// PageCount is the number of pages, zero for plain notes.
	PageCount int `json:"page_count,omitempty"`

	// Ready reports whether the full chunk sequence has been persisted.
	// Retrieval must never observe a partially ingested source.
	Ready bool `json:"ready"`

	// CreatedAt is when the source was ingested.
	CreatedAt time.Time `json:"created_at"`
}

// PageBoundary marks where a page begins within a text.
// The extraction collaborator supplies boundaries for the raw text;
// the normaliser rewrites them for the normalised text.
type PageBoundary struct {
	// Number is the 1-based page number.
	Number int `json:"number"`

	// StartOffset is the character offset where the page begins.
	StartOffset int `json:"start_offset"`
}

// PageAt returns the page number covering the given offset, or zero
// if the table is empty. Boundaries must be ordered by StartOffset.
func PageAt(pages []PageBoundary, offset int) int {
	page := 0
	for _, p := range pages {
		if p.StartOffset > offset {
			break
		}
		page = p.Number
	}
	return page
}

// Package chunker splits normalised, section-tagged text into
// overlapping token-bounded windows.
//
// Chunk boundaries are a pure function of the text and configuration:
// re-chunking identical input always yields byte-identical boundaries
// and ordinals. Re-ingestion therefore stays idempotent, which is why
// tokenisation works on character spans rather than a learned
// vocabulary.
package chunker

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/logger"
	"github.com/inklet-labs/inklet/internal/textproc/sections"
)

// Default configuration values.
const (
	// DefaultTargetTokens is the target window size.
	DefaultTargetTokens = 400

	// DefaultOverlapTokens is the token overlap between consecutive
	// windows.
	DefaultOverlapTokens = 50
)

// tokenPattern splits text into word units (hyphen/underscore
// compounds stay whole) and single non-space symbols. Token
// boundaries map one-to-one onto character offsets.
var tokenPattern = regexp.MustCompile(`\w+(?:[-_]\w+)*|\S`)

// Config holds the chunker's window geometry.
type Config struct {
	// TargetTokens is the window size (default 400).
	TargetTokens int

	// OverlapTokens is how many tokens consecutive windows share
	// (default 50, negative for none). Must be smaller than
	// TargetTokens.
	OverlapTokens int

	// MinTokens is the smallest trailing window emitted on its own;
	// anything shorter merges into the previous chunk. Defaults to
	// half of TargetTokens.
	MinTokens int
}

func (c Config) withDefaults() Config {
	if c.TargetTokens <= 0 {
		c.TargetTokens = DefaultTargetTokens
	}
	if c.OverlapTokens == 0 {
		c.OverlapTokens = DefaultOverlapTokens
	}
	if c.OverlapTokens < 0 {
		c.OverlapTokens = 0
	}
	if c.OverlapTokens >= c.TargetTokens {
		c.OverlapTokens = c.TargetTokens / 4
	}
	if c.MinTokens <= 0 {
		c.MinTokens = c.TargetTokens / 2
	}
	return c
}

// Tokenize returns the character spans of every token in text, in
// order. Spans are [start, end) offsets; the split is deterministic.
func Tokenize(text string) [][]int {
	return tokenPattern.FindAllStringIndex(text, -1)
}

// Split chunks normalised text into the ordered chunk sequence for a
// source. Section and page tables annotate each chunk by its start
// offset; previous/next links are resolved in a second pass once the
// full sequence is known.
//
// A source shorter than MinTokens yields exactly one chunk spanning
// the whole text. Text with no tokens at all returns
// domain.ErrEmptySource.
func Split(sourceID, text string, sects []sections.Section, pages []domain.PageBoundary, cfg Config) ([]domain.TextChunk, error) {
	cfg = cfg.withDefaults()

	spans := Tokenize(text)
	total := len(spans)
	if total == 0 {
		return nil, fmt.Errorf("chunk %s: %w", sourceID, domain.ErrEmptySource)
	}

	step := cfg.TargetTokens - cfg.OverlapTokens

	// Window starts in token space. The final window merges backwards
	// instead of being emitted when it would fall under MinTokens.
	type window struct{ start, end int }
	var windows []window
	for start := 0; start < total; start += step {
		end := start + cfg.TargetTokens
		if end >= total {
			end = total
			remaining := total - start
			if len(windows) > 0 && remaining < cfg.MinTokens {
				windows[len(windows)-1].end = total
			} else {
				windows = append(windows, window{start, end})
			}
			break
		}
		windows = append(windows, window{start, end})
	}

	chunks := make([]domain.TextChunk, 0, len(windows))
	for i, w := range windows {
		startOffset := spans[w.start][0]
		endOffset := spans[w.end-1][1]
		chunks = append(chunks, domain.TextChunk{
			ID:          uuid.New().String(),
			SourceID:    sourceID,
			Position:    i,
			Content:     text[startOffset:endOffset],
			TokenCount:  w.end - w.start,
			StartOffset: startOffset,
			EndOffset:   endOffset,
			Section:     sections.LabelAt(sects, startOffset),
			Page:        domain.PageAt(pages, startOffset),
		})
	}

	resolveLinks(chunks)

	logger.Debug("Chunker: source %s: %d tokens -> %d chunks (target=%d overlap=%d min=%d)",
		sourceID, total, len(chunks), cfg.TargetTokens, cfg.OverlapTokens, cfg.MinTokens)

	return chunks, nil
}

// resolveLinks wires previous/next identifiers across the finished
// sequence. Links are identifier pairs, never pointers, so the chunk
// arena stays acyclic.
func resolveLinks(chunks []domain.TextChunk) {
	for i := range chunks {
		if i > 0 {
			chunks[i].PrevID = chunks[i-1].ID
		}
		if i < len(chunks)-1 {
			chunks[i].NextID = chunks[i+1].ID
		}
	}
}

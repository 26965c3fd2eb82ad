// Package normaliser cleans raw extracted text into the canonical
// form the rest of the engine operates on.
//
// Normalisation is the first stage of the ingestion pipeline: Unicode
// canonicalisation, whitespace standardisation, and removal of PDF
// extraction artifacts (repeating headers and footers, standalone
// page-number lines). Every removal is recorded for traceability.
package normaliser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/logger"
)

// Default configuration values.
const (
	// DefaultHeaderZoneLines is how many lines at the top and bottom
	// of a page are inspected for repeating headers and footers.
	DefaultHeaderZoneLines = 2

	// DefaultMinRecurrence is how many pages a near-identical line
	// must appear on before it is treated as a header or footer.
	DefaultMinRecurrence = 3

	// maxTitleLen bounds how long a leading line may be to qualify as
	// the source title.
	maxTitleLen = 100
)

// pageNumberPattern matches standalone page-number lines: a bare
// number, optionally dash-decorated, or "Page N of M".
var pageNumberPattern = regexp.MustCompile(`^\s*(?:-?\s*\d+\s*-?|[Pp]age\s+\d+(?:\s+of\s+\d+)?)\s*$`)

// digitRunPattern masks numbers so "Chapter 3" and "Chapter 12" hash
// to the same header key.
var digitRunPattern = regexp.MustCompile(`\d+`)

// spaceRunPattern collapses horizontal whitespace runs.
var spaceRunPattern = regexp.MustCompile(`[ \t\r\x{00A0}]+`)

// Config holds the normaliser's tunable thresholds.
type Config struct {
	// HeaderZoneLines is the top/bottom zone size per page.
	HeaderZoneLines int

	// MinRecurrence is the minimum page count for header removal.
	MinRecurrence int
}

func (c Config) withDefaults() Config {
	if c.HeaderZoneLines <= 0 {
		c.HeaderZoneLines = DefaultHeaderZoneLines
	}
	if c.MinRecurrence <= 0 {
		c.MinRecurrence = DefaultMinRecurrence
	}
	return c
}

// RemovedSpan records one stripped artifact with its position in the
// raw input, for audit.
type RemovedSpan struct {
	// Page is the 1-based page the line was removed from, zero when
	// no page table was supplied.
	Page int

	// Offset is the character offset of the line in the raw input.
	Offset int

	// Text is the removed line verbatim.
	Text string

	// Reason is one of "header", "footer" or "page-number".
	Reason string
}

// Result is the output of one normalisation pass.
type Result struct {
	// Text is the normalised text. Paragraphs are separated by a
	// double newline; no other newlines survive.
	Text string

	// Title is the leading line when it is short enough to read as a
	// title, empty otherwise.
	Title string

	// Pages maps page numbers to offsets into Text. Nil when no page
	// table was supplied.
	Pages []domain.PageBoundary

	// Removed lists every stripped header, footer and page-number
	// line with its original offset.
	Removed []RemovedSpan

	// ReplacedBytes counts invalid UTF-8 bytes substituted with
	// U+FFFD. Logged, never surfaced as a failure.
	ReplacedBytes int
}

// rawLine is a line of one raw page with its offset into the input.
type rawLine struct {
	text   string
	offset int
}

// rawPage is one page of the raw input split by the supplied
// boundary table.
type rawPage struct {
	number int
	start  int
	lines  []rawLine
}

// Normalise cleans raw text into canonical form. The page table, when
// supplied, carries offsets into raw; the returned table carries the
// same page numbers with offsets into the normalised text.
//
// Returns domain.ErrEmptySource when the input is empty or reduces to
// whitespace. Malformed UTF-8 never fails: invalid bytes are replaced
// and counted.
func Normalise(raw string, pages []domain.PageBoundary, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()

	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("normalise: %w", domain.ErrEmptySource)
	}

	res := &Result{}

	split := splitPages(raw, pages)

	// Repeating headers and footers need several pages to recur; a
	// single page has nothing to compare against.
	if len(split) >= cfg.MinRecurrence {
		stripRecurring(split, cfg, res)
	}
	stripPageNumbers(split, res)

	// Rebuild page by page so the output page table stays exact.
	// Page texts carry no leading or trailing whitespace of their
	// own, so offsets recorded here are final.
	var b strings.Builder
	for _, pg := range split {
		text := rebuildPage(pg, res)
		if text != "" && b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if pages != nil {
			res.Pages = append(res.Pages, domain.PageBoundary{Number: pg.number, StartOffset: b.Len()})
		}
		b.WriteString(text)
	}

	res.Text = b.String()
	if strings.TrimSpace(res.Text) == "" {
		return nil, fmt.Errorf("normalise: %w", domain.ErrEmptySource)
	}

	if res.ReplacedBytes > 0 {
		logger.Warn("Normaliser: replaced %d invalid UTF-8 bytes", res.ReplacedBytes)
	}
	if n := len(res.Removed); n > 0 {
		logger.Debug("Normaliser: removed %d artifact lines", n)
	}

	res.Title = extractTitle(res.Text)
	return res, nil
}

// splitPages cuts the raw input into pages using the boundary table.
// Without a table the whole input is one unnumbered page.
func splitPages(raw string, pages []domain.PageBoundary) []*rawPage {
	if len(pages) == 0 {
		return []*rawPage{{number: 0, start: 0, lines: splitLines(raw, 0)}}
	}

	out := make([]*rawPage, 0, len(pages))
	for i, p := range pages {
		start := p.StartOffset
		if start < 0 {
			start = 0
		}
		if start > len(raw) {
			start = len(raw)
		}
		end := len(raw)
		if i+1 < len(pages) {
			end = pages[i+1].StartOffset
			if end > len(raw) {
				end = len(raw)
			}
		}
		if end < start {
			end = start
		}
		out = append(out, &rawPage{
			number: p.Number,
			start:  start,
			lines:  splitLines(raw[start:end], start),
		})
	}
	return out
}

// splitLines splits a page into lines, tracking each line's offset
// into the raw input.
func splitLines(text string, base int) []rawLine {
	var lines []rawLine
	offset := 0
	for _, l := range strings.Split(text, "\n") {
		lines = append(lines, rawLine{text: l, offset: base + offset})
		offset += len(l) + 1
	}
	return lines
}

// headerKey masks whitespace and digit runs so near-identical lines
// compare equal.
func headerKey(line string) string {
	key := strings.TrimSpace(line)
	key = spaceRunPattern.ReplaceAllString(key, " ")
	key = digitRunPattern.ReplaceAllString(key, "#")
	return key
}

// stripRecurring removes lines that recur at the same relative
// vertical position (top or bottom zone) on enough pages.
func stripRecurring(pages []*rawPage, cfg Config, res *Result) {
	topSeen := map[string]int{}
	bottomSeen := map[string]int{}

	for _, pg := range pages {
		for key := range zoneKeys(pg, cfg.HeaderZoneLines, true) {
			topSeen[key]++
		}
		for key := range zoneKeys(pg, cfg.HeaderZoneLines, false) {
			bottomSeen[key]++
		}
	}

	for _, pg := range pages {
		kept := pg.lines[:0]
		n := len(pg.lines)
		for i, line := range pg.lines {
			key := headerKey(line.text)
			remove := false
			reason := ""
			if key != "" {
				if i < cfg.HeaderZoneLines && topSeen[key] >= cfg.MinRecurrence {
					remove, reason = true, "header"
				}
				if !remove && i >= n-cfg.HeaderZoneLines && bottomSeen[key] >= cfg.MinRecurrence {
					remove, reason = true, "footer"
				}
			}
			if remove {
				res.Removed = append(res.Removed, RemovedSpan{
					Page: pg.number, Offset: line.offset, Text: line.text, Reason: reason,
				})
				continue
			}
			kept = append(kept, line)
		}
		pg.lines = kept
	}
}

// zoneKeys yields the masked keys of the non-blank lines in a page's
// top or bottom zone.
func zoneKeys(pg *rawPage, zone int, top bool) map[string]struct{} {
	keys := make(map[string]struct{})
	n := len(pg.lines)
	for i, line := range pg.lines {
		inZone := i < zone
		if !top {
			inZone = i >= n-zone
		}
		if !inZone {
			continue
		}
		if key := headerKey(line.text); key != "" {
			keys[key] = struct{}{}
		}
	}
	return keys
}

// stripPageNumbers removes standalone page-number lines anywhere on a
// page.
func stripPageNumbers(pages []*rawPage, res *Result) {
	for _, pg := range pages {
		kept := pg.lines[:0]
		for _, line := range pg.lines {
			if strings.TrimSpace(line.text) != "" && pageNumberPattern.MatchString(line.text) {
				res.Removed = append(res.Removed, RemovedSpan{
					Page: pg.number, Offset: line.offset, Text: line.text, Reason: "page-number",
				})
				continue
			}
			kept = append(kept, line)
		}
		pg.lines = kept
	}
}

// rebuildPage sanitises and reflows one page: NFKC, whitespace runs
// collapsed, single newlines joined into their paragraph, blank lines
// preserved as paragraph breaks.
func rebuildPage(pg *rawPage, res *Result) string {
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range pg.lines {
		text, replaced := sanitiseUTF8(line.text)
		res.ReplacedBytes += replaced
		text = norm.NFKC.String(text)
		text = strings.TrimSpace(spaceRunPattern.ReplaceAllString(text, " "))
		if text == "" {
			flush()
			continue
		}
		current = append(current, text)
	}
	flush()

	return strings.Join(paragraphs, "\n\n")
}

// sanitiseUTF8 replaces invalid bytes with U+FFFD and reports how
// many were substituted.
func sanitiseUTF8(s string) (string, int) {
	if utf8.ValidString(s) {
		return s, 0
	}
	var b strings.Builder
	b.Grow(len(s))
	replaced := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
			replaced++
			i++
			continue
		}
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String(), replaced
}

// extractTitle returns the first paragraph when it is short enough to
// read as a title.
func extractTitle(text string) string {
	first := text
	if idx := strings.Index(text, "\n\n"); idx >= 0 {
		first = text[:idx]
	}
	if utf8.RuneCountInString(first) < maxTitleLen {
		return first
	}
	return ""
}

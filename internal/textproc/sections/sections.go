// Package sections scans normalised text for structural boundaries
// (headings) and tags the spans between them with a section label.
//
// Detection is deliberately conservative: an ambiguous short line is
// classified as body text, since a false heading pollutes the chunk
// metadata of everything that follows it.
package sections

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultMaxHeadingWords is the longest a line may be, in words, and
// still qualify as a heading.
const DefaultMaxHeadingWords = 12

// Numbered-heading patterns: "1.", "2.3", "1)" prefixes and
// "Chapter N" / "Section N" style labels.
var (
	numberedPattern = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)
	labelledPattern = regexp.MustCompile(`(?i)^(chapter|section|part|appendix)\s+[\dIVXivx]+\b`)
)

// terminalPunctuation ends a sentence; headings don't carry it.
const terminalPunctuation = ".!?;:,"

// Section is one detected span. The section runs from StartOffset to
// the start of the following section.
type Section struct {
	// Label is the heading text. Empty for the implicit leading
	// section before the first detected heading.
	Label string

	// StartOffset is the character offset into the normalised text
	// where the section's body begins.
	StartOffset int
}

// Config holds the detector's tunable thresholds.
type Config struct {
	// MaxHeadingWords caps heading length in words.
	MaxHeadingWords int
}

func (c Config) withDefaults() Config {
	if c.MaxHeadingWords <= 0 {
		c.MaxHeadingWords = DefaultMaxHeadingWords
	}
	return c
}

// Detect returns the ordered section list for normalised text. The
// first entry is always the unlabelled section at offset 0 covering
// any text before the first heading; for text without headings it is
// the only entry.
//
// Normalised text separates blocks with double newlines, so each
// block is a candidate line. Consecutive qualifying blocks merge into
// one heading.
func Detect(text string, cfg Config) []Section {
	cfg = cfg.withDefaults()

	out := []Section{{Label: "", StartOffset: 0}}
	if text == "" {
		return out
	}

	var pendingLabel []string
	offset := 0
	for _, block := range strings.Split(text, "\n\n") {
		next := offset + len(block) + len("\n\n")

		if isHeading(block, cfg) {
			pendingLabel = append(pendingLabel, strings.TrimSpace(block))
			offset = next
			continue
		}

		if len(pendingLabel) > 0 {
			out = append(out, Section{
				Label:       strings.Join(pendingLabel, " "),
				StartOffset: offset,
			})
			pendingLabel = nil
		}
		offset = next
	}

	// A trailing heading with no body still opens a (empty) section.
	if len(pendingLabel) > 0 {
		out = append(out, Section{
			Label:       strings.Join(pendingLabel, " "),
			StartOffset: len(text),
		})
	}

	return out
}

// LabelAt returns the label of the section covering the given offset.
// Sections must be ordered by StartOffset, as Detect returns them.
func LabelAt(sections []Section, offset int) string {
	label := ""
	for _, s := range sections {
		if s.StartOffset > offset {
			break
		}
		label = s.Label
	}
	return label
}

// isHeading applies the heading heuristic to one block: short, no
// terminal punctuation, and either fully capitalised, title-cased or
// numbered.
func isHeading(block string, cfg Config) bool {
	line := strings.TrimSpace(block)
	if line == "" || strings.Contains(line, "\n") {
		return false
	}

	words := strings.Fields(line)
	if len(words) == 0 || len(words) > cfg.MaxHeadingWords {
		return false
	}
	if strings.ContainsRune(terminalPunctuation, rune(line[len(line)-1])) {
		return false
	}
	if !containsLetter(line) {
		return false
	}

	return numberedPattern.MatchString(line) ||
		labelledPattern.MatchString(line) ||
		allCaps(line) ||
		titleCased(words)
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// allCaps reports whether every cased letter is upper case.
func allCaps(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}

// smallWords may stay lower case inside a title-cased heading.
var smallWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "as": {}, "at": {}, "but": {},
	"by": {}, "for": {}, "in": {}, "of": {}, "on": {}, "or": {},
	"the": {}, "to": {}, "with": {},
}

// titleCased reports whether every significant word starts upper
// case. A single word must be capitalised and longer than one rune to
// qualify; one-word lower-case lines stay body text (conservative).
func titleCased(words []string) bool {
	if len(words) == 1 {
		return startsUpper(words[0]) && len([]rune(words[0])) > 1 && !allCaps(words[0])
	}
	for i, w := range words {
		if i > 0 {
			if _, small := smallWords[strings.ToLower(w)]; small {
				continue
			}
		}
		if !startsUpper(w) {
			return false
		}
	}
	return true
}

func startsUpper(w string) bool {
	for _, r := range w {
		if unicode.IsLetter(r) {
			return unicode.IsUpper(r)
		}
	}
	return false
}

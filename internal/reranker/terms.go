package reranker

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
	"github.com/samber/lo"
)

// wordPattern extracts word tokens for term matching. Punctuation and
// symbols never count as query terms.
var wordPattern = regexp.MustCompile(`\w+(?:[-_]\w+)*`)

// Terms lower-cases, stems and de-duplicates the word tokens of a
// text, preserving first-occurrence order. Matching on stems means
// "linked" in a query finds "linking" in a chunk.
func Terms(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	stemmed := lo.Map(words, func(w string, _ int) string {
		return english.Stem(w, false)
	})
	return lo.Uniq(lo.Filter(stemmed, func(w string, _ int) bool { return w != "" }))
}

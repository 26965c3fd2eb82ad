// Package reranker reorders raw vector-similarity candidates using
// additional lexical and structural signals.
//
// Three signals are min-max rescaled to [0,1] across the candidate
// set and combined as a weighted sum: the raw similarity score, the
// fraction of query terms covered by the chunk's linked neighbourhood,
// and the fraction matched in the chunk text alone. Output order is
// fully deterministic: ties break by document position, then chunk id.
package reranker

import (
	"sort"

	"github.com/samber/lo"

	"github.com/inklet-labs/inklet/internal/core/domain"
	"github.com/inklet-labs/inklet/internal/logger"
)

// Default signal weights. Similarity dominates so that a strong
// vector match survives having no lexical overlap at all.
const (
	DefaultSimilarityWeight  = 0.6
	DefaultCoverageWeight    = 0.2
	DefaultTermOverlapWeight = 0.2
)

// Weights controls how the three signals combine. They are
// renormalised to sum to one before use.
type Weights struct {
	Similarity  float64
	Coverage    float64
	TermOverlap float64
}

// DefaultWeights returns the standard 0.6/0.2/0.2 split.
func DefaultWeights() Weights {
	return Weights{
		Similarity:  DefaultSimilarityWeight,
		Coverage:    DefaultCoverageWeight,
		TermOverlap: DefaultTermOverlapWeight,
	}
}

func (w Weights) normalised() Weights {
	sum := w.Similarity + w.Coverage + w.TermOverlap
	if sum <= 0 {
		return DefaultWeights().normalised()
	}
	return Weights{
		Similarity:  w.Similarity / sum,
		Coverage:    w.Coverage / sum,
		TermOverlap: w.TermOverlap / sum,
	}
}

// Candidate is one chunk produced by the vector search, together with
// the text of its immediate neighbours for the coverage signal.
type Candidate struct {
	// Chunk is the matched chunk.
	Chunk domain.TextChunk

	// Similarity is the raw vector-search score.
	Similarity float64

	// Neighbourhood holds the content of the chunk's previous and
	// next chunks, when they exist.
	Neighbourhood []string
}

// Rerank scores and reorders the candidates. The input order does not
// influence the output: repeated calls over the same candidate set
// and query are stable.
func Rerank(query string, cands []Candidate, weights Weights) []domain.ScoredChunk {
	if len(cands) == 0 {
		return []domain.ScoredChunk{}
	}

	w := weights.normalised()
	queryTerms := Terms(query)
	logger.Debug("Reranker: %d candidates, %d distinct query terms", len(cands), len(queryTerms))

	overlapRaw := make([]float64, len(cands))
	coverageRaw := make([]float64, len(cands))
	similarityRaw := lo.Map(cands, func(c Candidate, _ int) float64 { return c.Similarity })

	for i, c := range cands {
		chunkTerms := termSet(c.Chunk.Content)
		overlapRaw[i] = termFraction(queryTerms, chunkTerms)

		for _, neighbour := range c.Neighbourhood {
			for term := range termSet(neighbour) {
				chunkTerms[term] = struct{}{}
			}
		}
		coverageRaw[i] = termFraction(queryTerms, chunkTerms)
	}

	similarity := minMax(similarityRaw)
	coverage := minMax(coverageRaw)
	overlap := minMax(overlapRaw)

	scored := make([]domain.ScoredChunk, len(cands))
	for i, c := range cands {
		scored[i] = domain.ScoredChunk{
			Chunk:       c.Chunk,
			Similarity:  similarity[i],
			Coverage:    coverage[i],
			TermOverlap: overlap[i],
			Combined: w.Similarity*similarity[i] +
				w.Coverage*coverage[i] +
				w.TermOverlap*overlap[i],
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Combined != b.Combined {
			return a.Combined > b.Combined
		}
		if a.Chunk.Position != b.Chunk.Position {
			return a.Chunk.Position < b.Chunk.Position
		}
		return a.Chunk.ID < b.Chunk.ID
	})

	return scored
}

// termFraction is the fraction of query terms present in the set.
func termFraction(queryTerms []string, set map[string]struct{}) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	matched := 0
	for _, t := range queryTerms {
		if _, ok := set[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// minMax rescales values to [0,1]. When every value ties the signal
// carries no information, so each candidate gets the midpoint 0.5
// instead of a division by zero.
func minMax(values []float64) []float64 {
	lowest := lo.Min(values)
	highest := lo.Max(values)

	out := make([]float64, len(values))
	if highest == lowest {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - lowest) / (highest - lowest)
	}
	return out
}

func termSet(text string) map[string]struct{} {
	terms := Terms(text)
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

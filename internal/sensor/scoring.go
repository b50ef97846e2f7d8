package sensor

import (
	"fmt"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// Scorer computes relevance and redundancy for one query and candidate set.
// Strategies only see candidates through a Scorer.
type Scorer struct {
	candidates [][]float64
	relevance  []float64
}

// NewScorer copies the inputs and caches each candidate's relevance.
// Every candidate must have the query's dimension.
func NewScorer(query domain.Vector, candidates []domain.Vector) (*Scorer, error) {
	for i, c := range candidates {
		if len(c) != len(query) {
			return nil, fmt.Errorf("candidate %d has %d dimensions, query has %d: %w",
				i, len(c), len(query), domain.ErrDimensionMismatch)
		}
	}

	q := query.Float64()
	s := &Scorer{
		candidates: make([][]float64, len(candidates)),
		relevance:  make([]float64, len(candidates)),
	}
	for i, c := range candidates {
		s.candidates[i] = c.Float64()
		s.relevance[i] = cosine(q, s.candidates[i])
	}
	return s, nil
}

// Len returns the number of candidates.
func (s *Scorer) Len() int {
	return len(s.candidates)
}

// Relevance returns the similarity between the query and candidate i.
func (s *Scorer) Relevance(i int) float64 {
	return s.relevance[i]
}

// Relevances returns a copy of every candidate's relevance, in input order.
func (s *Scorer) Relevances() []float64 {
	out := make([]float64, len(s.relevance))
	copy(out, s.relevance)
	return out
}

// Similarity returns the similarity between candidates i and j.
func (s *Scorer) Similarity(i, j int) float64 {
	return cosine(s.candidates[i], s.candidates[j])
}

// Redundancy returns the highest similarity between candidate i and any
// selected candidate, or 0 when nothing is selected yet.
func (s *Scorer) Redundancy(i int, selected []int) float64 {
	if len(selected) == 0 {
		return 0
	}
	red := s.Similarity(i, selected[0])
	for _, j := range selected[1:] {
		if sim := s.Similarity(i, j); sim > red {
			red = sim
		}
	}
	return red
}

// PairwiseSimilarities returns the similarity of every unordered candidate
// pair (i < j).
func (s *Scorer) PairwiseSimilarities() []float64 {
	n := s.Len()
	if n < 2 {
		return nil
	}
	out := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, s.Similarity(i, j))
		}
	}
	return out
}

package sensor

import (
	"cmp"
	"math"
	"slices"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// selectUncertainty ranks candidates by 1 - |relevance| and keeps the top
// budget. Candidates nearly orthogonal to the query rank first.
func selectUncertainty(s *Scorer, budget int, _ domain.SelectionConfig) []domain.Selection {
	n := s.Len()
	k := min(budget, n)
	if k <= 0 {
		return []domain.Selection{}
	}

	ranked := make([]domain.Selection, n)
	for i := range ranked {
		ranked[i] = domain.Selection{Index: i, Score: 1 - math.Abs(s.Relevance(i))}
	}
	slices.SortStableFunc(ranked, func(a, b domain.Selection) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked[:k]
}

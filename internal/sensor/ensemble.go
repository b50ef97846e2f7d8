package sensor

import (
	"cmp"
	"slices"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// selectEnsemble ranks every candidate under MMR and under uncertainty, sums
// the two rank positions and keeps the budget lowest sums. The score of each
// selection is its combined rank, so lower is better.
func selectEnsemble(s *Scorer, budget int, cfg domain.SelectionConfig) []domain.Selection {
	n := s.Len()
	k := min(budget, n)
	if k <= 0 {
		return []domain.Selection{}
	}

	ranks := make([]int, n)
	for pos, sel := range selectMMR(s, n, cfg) {
		ranks[sel.Index] += pos
	}
	for pos, sel := range selectUncertainty(s, n, cfg) {
		ranks[sel.Index] += pos
	}

	fused := make([]domain.Selection, n)
	for i := range fused {
		fused[i] = domain.Selection{Index: i, Score: float64(ranks[i])}
	}
	slices.SortStableFunc(fused, func(a, b domain.Selection) int {
		return cmp.Compare(a.Score, b.Score)
	})
	return fused[:k]
}

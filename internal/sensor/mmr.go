package sensor

import "github.com/custodia-labs/refrag/internal/core/domain"

// selectMMR greedily picks the candidate maximising
//
//	lambda*relevance - (1-lambda)*redundancy
//
// until budget candidates are chosen. Each selection carries its MMR score
// at the time it was picked.
func selectMMR(s *Scorer, budget int, cfg domain.SelectionConfig) []domain.Selection {
	n := s.Len()
	k := min(budget, n)
	if k <= 0 {
		return []domain.Selection{}
	}

	lambda := cfg.Lambda
	chosen := make([]bool, n)
	picked := make([]int, 0, k)
	out := make([]domain.Selection, 0, k)

	for len(out) < k {
		best := -1
		bestScore := 0.0
		for i := 0; i < n; i++ {
			if chosen[i] {
				continue
			}
			score := lambda*s.Relevance(i) - (1-lambda)*s.Redundancy(i, picked)
			// strict comparison keeps the earliest candidate on ties
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		chosen[best] = true
		picked = append(picked, best)
		out = append(out, domain.Selection{Index: best, Score: bestScore})
	}
	return out
}

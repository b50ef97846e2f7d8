package sensor

import (
	"gonum.org/v1/gonum/stat"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// diversity returns the sample variance of all pairwise candidate
// similarities. Fewer than two pairs count as zero variance.
func diversity(s *Scorer) float64 {
	pairs := s.PairwiseSimilarities()
	if len(pairs) < 2 {
		return 0
	}
	return stat.Variance(pairs, nil)
}

// resolveAdaptive picks the strategy adaptive delegates to: uncertainty when
// the candidates are homogeneous, MMR when they are diverse.
func resolveAdaptive(variance float64, cfg domain.SelectionConfig) domain.Strategy {
	if variance < cfg.VarianceThreshold {
		return domain.StrategyUncertainty
	}
	return domain.StrategyMMR
}

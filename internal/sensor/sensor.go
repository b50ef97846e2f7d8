package sensor

import (
	"fmt"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// Select chooses at most budget candidates for the query.
//
// Inputs are checked in order: a negative budget, then candidate
// dimensions, then the config. An empty candidate set yields an empty
// result. When the budget covers every candidate, all candidates are
// returned in input order scored by relevance and tagged StrategyAll.
// Otherwise the configured strategy runs.
//
// The returned selections carry candidate positions only; callers that know
// candidate identities fill Selection.ID.
func Select(
	query domain.Vector,
	candidates []domain.Vector,
	budget int,
	cfg domain.SelectionConfig,
) (*domain.SelectionResult, error) {
	if budget < 0 {
		return nil, fmt.Errorf("budget %d: %w", budget, domain.ErrInvalidBudget)
	}

	scorer, err := NewScorer(query, candidates)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result := &domain.SelectionResult{
		Strategy:  cfg.Strategy,
		Requested: cfg.Strategy,
		Selected:  []domain.Selection{},
		Scores:    scorer.Relevances(),
	}

	n := scorer.Len()
	if n == 0 {
		return result, nil
	}

	if budget >= n {
		result.Strategy = domain.StrategyAll
		result.Selected = make([]domain.Selection, n)
		for i := range result.Selected {
			result.Selected[i] = domain.Selection{Index: i, Score: scorer.Relevance(i)}
		}
		return result, nil
	}

	strategy := cfg.Strategy
	if strategy == domain.StrategyAdaptive {
		result.Diversity = diversity(scorer)
		strategy = resolveAdaptive(result.Diversity, cfg)
	}
	result.Strategy = strategy
	result.Selected = run(strategy, scorer, budget, cfg)
	return result, nil
}

// run dispatches to a concrete strategy. Adaptive must already be resolved.
func run(strategy domain.Strategy, s *Scorer, budget int, cfg domain.SelectionConfig) []domain.Selection {
	switch strategy {
	case domain.StrategyUncertainty:
		return selectUncertainty(s, budget, cfg)
	case domain.StrategyEnsemble:
		return selectEnsemble(s, budget, cfg)
	default:
		return selectMMR(s, budget, cfg)
	}
}

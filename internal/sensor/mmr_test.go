package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

func mmrConfig(lambda float64) domain.SelectionConfig {
	cfg := domain.DefaultSelectionConfig()
	cfg.Lambda = lambda
	return cfg
}

func TestMMR_NearDuplicateTie(t *testing.T) {
	// A is picked first on relevance. B then scores exactly zero, since its
	// relevance equals its redundancy with A, and C scores zero as well.
	// The tie resolves to the earlier candidate, B.
	query := domain.Vector{1, 0}
	candidates := []domain.Vector{
		{1, 0},       // A
		{0.99, 0.01}, // B
		{0, 1},       // C
	}

	result, err := Select(query, candidates, 2, mmrConfig(0.5))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyMMR, result.Strategy)
	assert.Equal(t, []int{0, 1}, result.Indices())
	assert.InDelta(t, 0.5, result.Selected[0].Score, 1e-12)
	assert.InDelta(t, 0.0, result.Selected[1].Score, 1e-12)
}

func TestMMR_SkipsDuplicatesWhenRedundancyDominates(t *testing.T) {
	query := domain.Vector{1, 0}
	candidates := []domain.Vector{
		{1, 0},     // A
		{1, 0},     // A'
		{0.6, 0.8}, // C
	}

	result, err := Select(query, candidates, 2, mmrConfig(0.3))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, result.Indices())
}

func TestMMR_BalancedLambdaPrefersDistinctOverNearDuplicate(t *testing.T) {
	query := domain.Vector{1, 0}
	candidates := []domain.Vector{
		{0.9, 0.1},  // high relevance
		{0.9, 0.11}, // near-identical to the first
		{0.5, -0.5}, // distinct, medium relevance
	}

	result, err := Select(query, candidates, 2, mmrConfig(0.5))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyMMR, result.Strategy)
	assert.Equal(t, []int{0, 2}, result.Indices())
	assert.Greater(t, result.Selected[1].Score, 0.0)
}

func TestMMR_LambdaOneIsRelevanceOrder(t *testing.T) {
	query := domain.Vector{1, 0}
	candidates := []domain.Vector{
		{0, 1},     // rel 0
		{0.6, 0.8}, // rel 0.6
		{1, 0},     // rel 1
		{1, 0},     // rel 1, duplicate
		{-1, 0},    // rel -1
	}

	result, err := Select(query, candidates, 4, mmrConfig(1))
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 1, 0}, result.Indices())
}

func TestMMR_LambdaZeroIgnoresRelevance(t *testing.T) {
	query := domain.Vector{1, 0}
	candidates := []domain.Vector{
		{1, 0},  // first pick on tie: every score is 0 with nothing selected
		{1, 0},  // redundancy 1
		{-1, 0}, // redundancy -1
	}

	result, err := Select(query, candidates, 2, mmrConfig(0))
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, result.Indices())
	assert.InDelta(t, 0.0, result.Selected[0].Score, 1e-12)
	assert.InDelta(t, 1.0, result.Selected[1].Score, 1e-12)
}

func TestMMR_BudgetZero(t *testing.T) {
	s, err := NewScorer(domain.Vector{1}, []domain.Vector{{1}, {2}})
	require.NoError(t, err)

	assert.Empty(t, selectMMR(s, 0, mmrConfig(0.5)))
}

func TestMMR_NoDuplicateIndices(t *testing.T) {
	s, err := NewScorer(domain.Vector{1, 1}, []domain.Vector{{1, 1}, {1, 1}, {1, 1}, {1, 1}})
	require.NoError(t, err)

	got := selectMMR(s, 4, mmrConfig(0.5))
	require.Len(t, got, 4)
	seen := map[int]bool{}
	for i, sel := range got {
		assert.False(t, seen[sel.Index])
		seen[sel.Index] = true
		assert.Equal(t, i, sel.Index, "identical candidates keep input order")
	}
}

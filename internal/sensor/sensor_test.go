package sensor

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

func randomVectors(r *rand.Rand, n, dim int) []domain.Vector {
	out := make([]domain.Vector, n)
	for i := range out {
		v := make(domain.Vector, dim)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		out[i] = v
	}
	return out
}

func configFor(s domain.Strategy) domain.SelectionConfig {
	cfg := domain.DefaultSelectionConfig()
	cfg.Strategy = s
	return cfg
}

func TestSelect_BudgetBound(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	query := randomVectors(r, 1, 8)[0]
	candidates := randomVectors(r, 12, 8)

	for _, s := range domain.AllStrategies() {
		for _, budget := range []int{0, 1, 3, 11, 12, 20} {
			result, err := Select(query, candidates, budget, configFor(s))
			require.NoError(t, err)

			want := min(budget, len(candidates))
			assert.Len(t, result.Selected, want, "%s budget %d", s, budget)

			seen := map[int]bool{}
			for _, sel := range result.Selected {
				assert.False(t, seen[sel.Index], "%s selected %d twice", s, sel.Index)
				seen[sel.Index] = true
				assert.GreaterOrEqual(t, sel.Index, 0)
				assert.Less(t, sel.Index, len(candidates))
			}
		}
	}
}

func TestSelect_Deterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	query := randomVectors(r, 1, 16)[0]
	candidates := randomVectors(r, 20, 16)

	for _, s := range domain.AllStrategies() {
		first, err := Select(query, candidates, 5, configFor(s))
		require.NoError(t, err)
		second, err := Select(query, candidates, 5, configFor(s))
		require.NoError(t, err)

		assert.Equal(t, first, second, s)
	}
}

func TestSelect_AllWhenBudgetCoversCandidates(t *testing.T) {
	query := domain.Vector{1, 0}
	candidates := []domain.Vector{{0, 1}, {1, 0}, {-1, 0}}

	for _, s := range domain.AllStrategies() {
		for _, budget := range []int{3, 4, 100} {
			result, err := Select(query, candidates, budget, configFor(s))
			require.NoError(t, err)

			assert.Equal(t, domain.StrategyAll, result.Strategy)
			assert.Equal(t, s, result.Requested)
			assert.Equal(t, []int{0, 1, 2}, result.Indices())
			assert.InDelta(t, 0.0, result.Selected[0].Score, 1e-12)
			assert.InDelta(t, 1.0, result.Selected[1].Score, 1e-12)
			assert.InDelta(t, -1.0, result.Selected[2].Score, 1e-12)
		}
	}
}

func TestSelect_EmptyCandidates(t *testing.T) {
	for _, budget := range []int{0, 1, 5} {
		result, err := Select(domain.Vector{1, 2, 3}, nil, budget, domain.DefaultSelectionConfig())
		require.NoError(t, err)

		assert.NotNil(t, result.Selected)
		assert.Empty(t, result.Selected)
		assert.Empty(t, result.Scores)
	}
}

func TestSelect_BudgetZero(t *testing.T) {
	result, err := Select(domain.Vector{1, 0}, []domain.Vector{{1, 0}, {0, 1}}, 0, domain.DefaultSelectionConfig())
	require.NoError(t, err)

	assert.Empty(t, result.Selected)
	assert.Len(t, result.Scores, 2)
}

func TestSelect_Scores(t *testing.T) {
	result, err := Select(domain.Vector{1, 0}, []domain.Vector{{1, 0}, {0, 1}, {1, 1}}, 1, domain.DefaultSelectionConfig())
	require.NoError(t, err)

	require.Len(t, result.Scores, 3)
	assert.InDelta(t, 1.0, result.Scores[0], 1e-12)
	assert.InDelta(t, 0.0, result.Scores[1], 1e-12)
	assert.InDelta(t, 0.70710678, result.Scores[2], 1e-6)
}

func TestSelect_Errors(t *testing.T) {
	query := domain.Vector{1, 0}
	good := []domain.Vector{{1, 0}, {0, 1}}
	mismatched := []domain.Vector{{1, 0}, {0, 1, 0}}

	badLambda := domain.DefaultSelectionConfig()
	badLambda.Lambda = 2

	tests := []struct {
		name       string
		candidates []domain.Vector
		budget     int
		cfg        domain.SelectionConfig
		wantErr    error
	}{
		{"negative budget", good, -1, domain.DefaultSelectionConfig(), domain.ErrInvalidBudget},
		{"negative budget checked first", mismatched, -1, configFor("bogus"), domain.ErrInvalidBudget},
		{"dimension mismatch", mismatched, 1, domain.DefaultSelectionConfig(), domain.ErrDimensionMismatch},
		{"dimension checked before config", mismatched, 1, configFor("bogus"), domain.ErrDimensionMismatch},
		{"mismatch even when budget covers all", mismatched, 10, domain.DefaultSelectionConfig(), domain.ErrDimensionMismatch},
		{"unknown strategy", good, 1, configFor("bogus"), domain.ErrUnknownStrategy},
		{"all is not configurable", good, 1, configFor(domain.StrategyAll), domain.ErrUnknownStrategy},
		{"unknown strategy on empty input", nil, 1, configFor("bogus"), domain.ErrUnknownStrategy},
		{"lambda out of range", good, 1, badLambda, domain.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Select(query, tt.candidates, tt.budget, tt.cfg)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestSelect_DoesNotMutateInputs(t *testing.T) {
	query := domain.Vector{0.3, -0.2, 0.9}
	candidates := []domain.Vector{
		{0.1, 0.2, 0.3},
		{-0.4, 0.5, 0.6},
		{0.7, -0.8, 0.9},
		{0.3, -0.2, 0.9},
	}
	queryCopy := query.Clone()
	candidatesCopy := make([]domain.Vector, len(candidates))
	for i, c := range candidates {
		candidatesCopy[i] = c.Clone()
	}

	for _, s := range domain.AllStrategies() {
		_, err := Select(query, candidates, 2, configFor(s))
		require.NoError(t, err)
	}

	assert.Equal(t, queryCopy, query)
	assert.Equal(t, candidatesCopy, candidates)
}

func TestSelect_ConcurrentCalls(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	query := randomVectors(r, 1, 8)[0]
	candidates := randomVectors(r, 30, 8)

	want, err := Select(query, candidates, 4, configFor(domain.StrategyEnsemble))
	require.NoError(t, err)

	done := make(chan *domain.SelectionResult, 8)
	for i := 0; i < 8; i++ {
		go func() {
			got, err := Select(query, candidates, 4, configFor(domain.StrategyEnsemble))
			if err != nil {
				done <- nil
				return
			}
			done <- got
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}

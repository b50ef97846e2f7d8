package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

func compassCandidates() []domain.Candidate {
	return []domain.Candidate{
		{ID: "A", Vector: domain.Vector{1, 0}},
		{ID: "B", Vector: domain.Vector{0.99, 0.01}},
		{ID: "C", Vector: domain.Vector{0, 1}},
	}
}

func TestSelectionService_Select_FillsIDs(t *testing.T) {
	service := NewSelectionService()

	result, err := service.Select(context.Background(), domain.Vector{1, 0}, compassCandidates(), 2,
		domain.DefaultSelectionConfig())

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, result.IDs())
	assert.Equal(t, []int{0, 1}, result.Indices())
	assert.Len(t, result.Scores, 3)
}

func TestSelectionService_Select_AllShortCircuit(t *testing.T) {
	service := NewSelectionService()

	result, err := service.Select(context.Background(), domain.Vector{1, 0}, compassCandidates(), 3,
		domain.DefaultSelectionConfig())

	require.NoError(t, err)
	assert.Equal(t, domain.StrategyAll, result.Strategy)
	assert.Equal(t, []string{"A", "B", "C"}, result.IDs())
}

func TestSelectionService_Select_Errors(t *testing.T) {
	service := NewSelectionService()
	ctx := context.Background()

	_, err := service.Select(ctx, domain.Vector{1, 0}, compassCandidates(), -1, domain.DefaultSelectionConfig())
	assert.True(t, errors.Is(err, domain.ErrInvalidBudget))

	_, err = service.Select(ctx, domain.Vector{1, 0, 0}, compassCandidates(), 1, domain.DefaultSelectionConfig())
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	cfg := domain.DefaultSelectionConfig()
	cfg.Strategy = "random"
	_, err = service.Select(ctx, domain.Vector{1, 0}, compassCandidates(), 1, cfg)
	assert.True(t, errors.Is(err, domain.ErrUnknownStrategy))
}

func TestSelectionService_Select_CancelledContext(t *testing.T) {
	service := NewSelectionService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.Select(ctx, domain.Vector{1, 0}, compassCandidates(), 1, domain.DefaultSelectionConfig())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSelectionService_SelectBatch(t *testing.T) {
	service := NewSelectionService()
	service.SetParallelism(2)

	var reqs []domain.SelectionRequest
	for _, s := range domain.AllStrategies() {
		cfg := domain.DefaultSelectionConfig()
		cfg.Strategy = s
		reqs = append(reqs, domain.SelectionRequest{
			Query:      domain.Vector{1, 0},
			Candidates: compassCandidates(),
			Budget:     2,
			Config:     cfg,
		})
	}

	results, err := service.SelectBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))

	for i, req := range reqs {
		single, err := service.Select(context.Background(), req.Query, req.Candidates, req.Budget, req.Config)
		require.NoError(t, err)
		assert.Equal(t, single, results[i], "request %d", i)
	}
}

func TestSelectionService_SelectBatch_Error(t *testing.T) {
	service := NewSelectionService()

	reqs := []domain.SelectionRequest{
		{Query: domain.Vector{1, 0}, Candidates: compassCandidates(), Budget: 1, Config: domain.DefaultSelectionConfig()},
		{Query: domain.Vector{1, 0}, Candidates: compassCandidates(), Budget: -3, Config: domain.DefaultSelectionConfig()},
	}

	results, err := service.SelectBatch(context.Background(), reqs)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, errors.Is(err, domain.ErrInvalidBudget))
	assert.Contains(t, err.Error(), "request 1")
}

func TestSelectionService_SelectBatch_Empty(t *testing.T) {
	service := NewSelectionService()

	results, err := service.SelectBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSelectionService_SetParallelism(t *testing.T) {
	service := NewSelectionService()

	service.SetParallelism(0)
	assert.Equal(t, 1, service.parallelism)

	service.SetParallelism(4)
	assert.Equal(t, 4, service.parallelism)
}

func BenchmarkSelectionService_Ensemble(b *testing.B) {
	service := NewSelectionService()
	candidates := make([]domain.Candidate, 64)
	for i := range candidates {
		candidates[i] = domain.Candidate{
			ID:     fmt.Sprintf("c%d", i),
			Vector: domain.Vector{float32(i % 7), float32(i % 5), float32(i % 3), 1},
		}
	}
	cfg := domain.DefaultSelectionConfig()
	cfg.Strategy = domain.StrategyEnsemble

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = service.Select(context.Background(), domain.Vector{1, 2, 3, 4}, candidates, 8, cfg)
	}
}

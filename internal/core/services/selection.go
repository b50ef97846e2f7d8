package services

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/refrag/internal/core/domain"
	"github.com/custodia-labs/refrag/internal/core/ports/driving"
	"github.com/custodia-labs/refrag/internal/logger"
	"github.com/custodia-labs/refrag/internal/sensor"
)

// Ensure SelectionService implements the interface.
var _ driving.SelectionService = (*SelectionService)(nil)

// SelectionService wraps the sensor with candidate identity and logging.
type SelectionService struct {
	parallelism int
}

// NewSelectionService creates a selection service. Batches run with up to
// GOMAXPROCS selections in flight.
func NewSelectionService() *SelectionService {
	return &SelectionService{parallelism: runtime.GOMAXPROCS(0)}
}

// SetParallelism limits concurrent selections in SelectBatch.
// Values below 1 are treated as 1.
func (s *SelectionService) SetParallelism(n int) {
	s.parallelism = max(n, 1)
}

// Select picks at most budget candidates for the query vector.
func (s *SelectionService) Select(
	ctx context.Context,
	query domain.Vector,
	candidates []domain.Candidate,
	budget int,
	cfg domain.SelectionConfig,
) (*domain.SelectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Debug("Selecting: candidates=%d budget=%d strategy=%s lambda=%.2f threshold=%.4f",
		len(candidates), budget, cfg.Strategy, cfg.Lambda, cfg.VarianceThreshold)

	result, err := sensor.Select(query, domain.Vectors(candidates), budget, cfg)
	if err != nil {
		logger.Warn("Selection failed: %v", err)
		return nil, fmt.Errorf("select: %w", err)
	}

	for i := range result.Selected {
		result.Selected[i].ID = candidates[result.Selected[i].Index].ID
	}

	if result.Strategy != result.Requested {
		logger.Info("Strategy %s resolved to %s", result.Requested, result.Strategy)
	}
	logger.Debug("Selected %d/%d: %v", len(result.Selected), len(candidates), result.IDs())

	return result, nil
}

// SelectBatch runs independent selections in parallel. The first failure
// cancels outstanding work and is returned with the request index.
func (s *SelectionService) SelectBatch(
	ctx context.Context,
	reqs []domain.SelectionRequest,
) ([]*domain.SelectionResult, error) {
	logger.Section("Batch Selection")
	logger.Debug("Requests: %d, parallelism: %d", len(reqs), s.parallelism)

	results := make([]*domain.SelectionResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.parallelism, 1))

	for i, req := range reqs {
		g.Go(func() error {
			result, err := s.Select(gctx, req.Query, req.Candidates, req.Budget, req.Config)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

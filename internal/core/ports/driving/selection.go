package driving

import (
	"context"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// SelectionService chooses fragments from a candidate set.
type SelectionService interface {
	// Select picks at most budget candidates for the query vector.
	Select(
		ctx context.Context,
		query domain.Vector,
		candidates []domain.Candidate,
		budget int,
		cfg domain.SelectionConfig,
	) (*domain.SelectionResult, error)

	// SelectBatch runs independent selections in parallel.
	// Results are returned in request order.
	SelectBatch(ctx context.Context, reqs []domain.SelectionRequest) ([]*domain.SelectionResult, error)
}

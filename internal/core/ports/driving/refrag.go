package driving

import (
	"context"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// RefragService runs the retrieve, select and generate pipeline for text queries.
type RefragService interface {
	// Retrieve embeds the query, retrieves candidates and selects among them.
	Retrieve(ctx context.Context, query string, opts domain.RefragOptions) (*domain.RefragContext, error)

	// Forward runs Retrieve and, when requested and available, generates an answer.
	Forward(ctx context.Context, query string, opts domain.RefragOptions) (*domain.RefragContext, error)

	// AddPassages validates and stores passages. Passages without an ID get one.
	// Passages without a vector are embedded first.
	AddPassages(ctx context.Context, passages []domain.Passage) ([]string, error)

	// GetPassage retrieves a stored passage by ID.
	GetPassage(ctx context.Context, id string) (*domain.Passage, error)

	// DeletePassage removes a stored passage by ID.
	DeletePassage(ctx context.Context, id string) error

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)

	// GenerationAvailable reports whether an LLM is configured.
	GenerationAvailable() bool
}

package driven

import (
	"context"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// CandidateSource supplies retrieved fragments for a query embedding.
//
// Retrieve returns at most k candidates ordered by decreasing relevance.
// Every candidate vector has the query's dimension and its metadata carries
// the fragment text under domain.MetadataKeyText.
type CandidateSource interface {
	Retrieve(ctx context.Context, query domain.Vector, k int) ([]domain.Candidate, error)
}

// PassageStore persists passages and serves them as candidates.
type PassageStore interface {
	CandidateSource

	// Save inserts or replaces passages.
	Save(ctx context.Context, passages []domain.Passage) error

	// Get retrieves a passage by ID.
	Get(ctx context.Context, id string) (*domain.Passage, error)

	// Delete removes a passage by ID.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)

	// Dimensions returns the vector dimension of stored passages, 0 if empty.
	Dimensions(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

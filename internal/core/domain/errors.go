package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Selection Errors.

	// ErrDimensionMismatch indicates two vectors of different lengths were compared.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidBudget indicates a negative selection budget.
	ErrInvalidBudget = errors.New("invalid budget")

	// ErrUnknownStrategy indicates a strategy name outside the supported set.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrInvalidConfig indicates a selection parameter is out of range.
	ErrInvalidConfig = errors.New("invalid selection config")

	// Collaborator Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Text queries cannot be embedded without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSourceUnavailable indicates no candidate source is configured.
	ErrSourceUnavailable = errors.New("candidate source unavailable")
)

package sensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/custodia-labs/refrag/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b, in [-1, 1].
// Vectors of different lengths are rejected. A zero-norm vector has
// similarity 0 with everything.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cannot compare %d and %d dimensions: %w",
			len(a), len(b), domain.ErrDimensionMismatch)
	}
	return cosine(a, b), nil
}

// Similarity is Cosine over float32 embeddings.
func Similarity(a, b domain.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cannot compare %d and %d dimensions: %w",
			len(a), len(b), domain.ErrDimensionMismatch)
	}
	return cosine(a.Float64(), b.Float64()), nil
}

// cosine assumes equal lengths.
func cosine(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

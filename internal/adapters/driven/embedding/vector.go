// Package embedding holds helpers shared by the embedding adapters.
// Provider implementations live in the ollama and openai subpackages.
package embedding

import "gonum.org/v1/gonum/floats"

// ToFloat32 converts a provider response to the stored precision.
// When normalize is set the result has unit L2 norm; a zero vector is
// returned unchanged.
func ToFloat32(v []float64, normalize bool) []float32 {
	scale := 1.0
	if normalize {
		if n := floats.Norm(v, 2); n > 0 {
			scale = 1 / n
		}
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x * scale)
	}
	return out
}

package domain

import (
	"fmt"
	"math"
)

const unknownDescription = "Unknown"

// Strategy names a selection algorithm.
type Strategy string

// Available strategies.
const (
	// StrategyMMR is greedy maximal marginal relevance.
	StrategyMMR Strategy = "mmr"

	// StrategyUncertainty picks the candidates least confidently related to the query.
	StrategyUncertainty Strategy = "uncertainty"

	// StrategyAdaptive chooses between uncertainty and MMR from candidate diversity.
	StrategyAdaptive Strategy = "adaptive"

	// StrategyEnsemble fuses MMR and uncertainty rankings by rank sum.
	StrategyEnsemble Strategy = "ensemble"

	// StrategyAll tags results where the budget covered every candidate.
	// It is never a valid configured strategy.
	StrategyAll Strategy = "all"
)

// IsValid returns true if the strategy can be configured.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyMMR, StrategyUncertainty, StrategyAdaptive, StrategyEnsemble:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategyMMR:
		return "MMR (relevance minus redundancy)"
	case StrategyUncertainty:
		return "Uncertainty (least confident matches)"
	case StrategyAdaptive:
		return "Adaptive (uncertainty or MMR by diversity)"
	case StrategyEnsemble:
		return "Ensemble (MMR + uncertainty rank fusion)"
	case StrategyAll:
		return "All (budget covers every candidate)"
	default:
		return unknownDescription
	}
}

// ParseStrategy converts a name into a configurable strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(name)
	if !s.IsValid() {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
	}
	return s, nil
}

// AllStrategies returns every configurable strategy.
func AllStrategies() []Strategy {
	return []Strategy{
		StrategyMMR,
		StrategyUncertainty,
		StrategyAdaptive,
		StrategyEnsemble,
	}
}

// Selection defaults.
const (
	DefaultLambda            = 0.5
	DefaultVarianceThreshold = 0.01
)

// SelectionConfig parameterises a single selection call.
// The similarity metric is always cosine and ties always resolve to the
// earlier candidate.
type SelectionConfig struct {
	// Strategy is the algorithm to run.
	Strategy Strategy

	// Lambda weights relevance against redundancy in MMR, in [0, 1].
	Lambda float64

	// VarianceThreshold is the pairwise similarity variance below which
	// the adaptive strategy treats candidates as homogeneous.
	VarianceThreshold float64
}

// DefaultSelectionConfig returns MMR with balanced lambda.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		Strategy:          StrategyMMR,
		Lambda:            DefaultLambda,
		VarianceThreshold: DefaultVarianceThreshold,
	}
}

// Validate checks the configuration.
func (c SelectionConfig) Validate() error {
	if !c.Strategy.IsValid() {
		return fmt.Errorf("%q: %w", c.Strategy, ErrUnknownStrategy)
	}
	if math.IsNaN(c.Lambda) || c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("lambda %v outside [0, 1]: %w", c.Lambda, ErrInvalidConfig)
	}
	if math.IsNaN(c.VarianceThreshold) || c.VarianceThreshold < 0 {
		return fmt.Errorf("variance threshold %v must be non-negative: %w", c.VarianceThreshold, ErrInvalidConfig)
	}
	return nil
}

// Selection is one chosen candidate.
type Selection struct {
	// Index is the candidate's position in the input sequence.
	Index int

	// ID is the candidate identifier, when known.
	ID string

	// Score is strategy specific. For ensemble it is the combined rank,
	// where lower is better.
	Score float64
}

// SelectionResult is the outcome of a selection call.
type SelectionResult struct {
	// Strategy is the strategy that produced the ordering.
	// Adaptive reports the sub-strategy it dispatched to.
	Strategy Strategy

	// Requested is the configured strategy.
	Requested Strategy

	// Selected lists the chosen candidates in selection order.
	Selected []Selection

	// Scores holds query relevance for every candidate, in input order.
	Scores []float64

	// Diversity is the pairwise similarity variance adaptive selection
	// compared against its threshold. Zero for other strategies.
	Diversity float64
}

// Indices returns the selected candidate positions in selection order.
func (r *SelectionResult) Indices() []int {
	out := make([]int, len(r.Selected))
	for i, s := range r.Selected {
		out[i] = s.Index
	}
	return out
}

// IDs returns the selected candidate identifiers in selection order.
func (r *SelectionResult) IDs() []string {
	out := make([]string, len(r.Selected))
	for i, s := range r.Selected {
		out[i] = s.ID
	}
	return out
}

// Contains reports whether the candidate at index was selected.
func (r *SelectionResult) Contains(index int) bool {
	for _, s := range r.Selected {
		if s.Index == index {
			return true
		}
	}
	return false
}

// SelectionRequest bundles the inputs of one selection call.
type SelectionRequest struct {
	Query      Vector
	Candidates []Candidate
	Budget     int
	Config     SelectionConfig
}

// Package sensor selects a budget-constrained subset of retrieved fragments.
//
// Given a query vector and an ordered set of candidate vectors, Select
// picks at most budget candidates, trading relevance to the query against
// redundancy among the picks. Every strategy is built on two primitives of
// the Scorer: relevance (cosine similarity to the query) and redundancy
// (maximum cosine similarity to the already selected set).
//
// # Strategies
//
//   - mmr: greedy maximal marginal relevance
//   - uncertainty: candidates whose relevance is closest to zero
//   - adaptive: uncertainty for homogeneous candidates, mmr otherwise
//   - ensemble: rank-sum fusion of the mmr and uncertainty rankings
//
// Results are deterministic. Ties always resolve to the earlier candidate.
//
// # Architectural Position
//
// The package is pure computation: it performs no I/O, holds no state
// between calls and never modifies the caller's vectors, so it is safe for
// concurrent use. Services in internal/core/services wrap it with logging
// and candidate identity.
package sensor

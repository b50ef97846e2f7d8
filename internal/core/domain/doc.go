// Package domain defines the core entities for refrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Vector: A fixed-dimension embedding
//   - Candidate: A retrieved fragment offered to the selector
//   - Passage: A stored fragment with text and embedding
//   - SelectionConfig / SelectionResult: Inputs and outputs of a selection
//   - RefragContext: The outcome of the retrieve, select, generate pipeline
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

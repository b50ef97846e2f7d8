package query

import "errors"

// Error definitions for the query view.
var (
	// ErrNoRefragService indicates that no retrieval pipeline was provided.
	ErrNoRefragService = errors.New("refrag service is required")

	// ErrNoSelectionService indicates that no selection service was provided.
	ErrNoSelectionService = errors.New("selection service is required")
)

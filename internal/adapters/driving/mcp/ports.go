package mcp

import (
	"github.com/custodia-labs/refrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Selection runs the fragment selector over caller-supplied vectors.
	Selection driving.SelectionService

	// Refrag runs retrieval over stored passages. Optional.
	Refrag driving.RefragService

	// Settings supplies configured defaults. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Selection == nil {
		return ErrMissingSelectionService
	}
	return nil
}

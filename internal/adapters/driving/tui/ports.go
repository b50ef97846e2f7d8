// Package tui provides an interactive terminal user interface for refrag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/refrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Refrag runs retrieval, selection and generation for queries.
	Refrag driving.RefragService

	// Selection re-runs the selector over already retrieved candidates.
	Selection driving.SelectionService

	// Settings manages application settings. Optional.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	refrag driving.RefragService,
	selection driving.SelectionService,
	settings driving.SettingsService,
) *Ports {
	return &Ports{
		Refrag:    refrag,
		Selection: selection,
		Settings:  settings,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Refrag == nil {
		return ErrMissingRefragService
	}
	if p.Selection == nil {
		return ErrMissingSelectionService
	}
	return nil
}

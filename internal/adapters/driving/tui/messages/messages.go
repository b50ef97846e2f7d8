// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/refrag/internal/core/domain"
)

// QueryCompleted carries retrieved and selected fragments back to the model.
type QueryCompleted struct {
	Context *domain.RefragContext
	Err     error
}

// SelectionCompleted carries a re-run of the selector over the current candidates.
type SelectionCompleted struct {
	Strategy domain.Strategy
	Result   *domain.SelectionResult
	Err      error
}

// AnswerCompleted carries a generated answer.
type AnswerCompleted struct {
	Context *domain.RefragContext
	Err     error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewQuery is the query input and fragment view.
	ViewQuery
	// ViewHelp is the help/keybindings view.
	ViewHelp
	// ViewSettings is the sensor settings view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewQuery:
		return "query"
	case ViewHelp:
		return "help"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingsSaved signals settings were saved.
type SettingsSaved struct {
	Err error
}

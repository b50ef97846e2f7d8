package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/refrag/internal/adapters/driving/tui"
	"github.com/custodia-labs/refrag/internal/logger"
)

var errNotTerminal = errors.New("the TUI needs an interactive terminal")

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for refrag.

The TUI runs queries against the passage index and shows which retrieved
passages the selector kept. Switch strategies to compare selections over
the same candidates without retrieving again.

Controls:
  Enter    - Run query / Select
  Tab      - Next strategy
  g        - Generate an answer
  n        - New query
  ↑/k, ↓/j - Navigate
  Esc      - Back
  ctrl+c   - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panicked: %v", r)
		}
	}()

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errNotTerminal
	}

	app, err := tui.NewApp(tui.NewPorts(refragService, selectionService, settingsService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	app.WithContext(ctx)

	if watcher != nil && reloadConfig != nil {
		go func() {
			err := watcher.Run(ctx, func(path string) {
				logger.Debug("config changed: %s", path)
				reloadConfig()
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watcher stopped: %v", err)
			}
		}()
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refrag/internal/core/ports/driving"
	"github.com/custodia-labs/refrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by main.
var (
	selectionService driving.SelectionService
	refragService    driving.RefragService
	settingsService  driving.SettingsService
)

// ConfigWatcher reports changes to configuration files until ctx is cancelled.
type ConfigWatcher interface {
	Run(ctx context.Context, onChange func(path string)) error
}

// Services bundles everything the commands need.
type Services struct {
	Selection driving.SelectionService
	Refrag    driving.RefragService
	Settings  driving.SettingsService

	// Watcher and Reload are optional. Long-running commands call Reload
	// whenever Watcher reports a change.
	Watcher ConfigWatcher
	Reload  func()

	// Close releases stores and AI clients. Optional.
	Close func()
}

// Options are the global flags handed to the bootstrap function.
type Options struct {
	// ConfigDir overrides ~/.refrag.
	ConfigDir string

	// DataDir overrides ~/.refrag/data.
	DataDir string

	// Memory keeps passages in memory instead of SQLite.
	Memory bool
}

// Bootstrap builds services once global flags are parsed.
type Bootstrap func(opts Options) (*Services, error)

var (
	bootstrap     Bootstrap
	watcher       ConfigWatcher
	reloadConfig  func()
	closeServices func()
)

// Global flags.
var (
	verbose bool
	options Options
)

// annotationNoServices marks commands that run without the bootstrap.
const annotationNoServices = "refrag/no-services"

var rootCmd = &cobra.Command{
	Use:   "refrag",
	Short: "Select fragments worth passing to a language model",
	Long: `refrag retrieves stored passages for a query and selects the subset
worth passing to a language model, trading relevance against redundancy.

Selection runs on any embedding vectors you give it (refrag select) or on
passages stored in the local index (refrag ask).`,
	SilenceUsage:       true,
	PersistentPreRunE:  runRootPreRun,
	PersistentPostRunE: runRootPostRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline steps to stderr")
	rootCmd.PersistentFlags().StringVar(&options.ConfigDir, "config-dir", "", "configuration directory (default ~/.refrag)")
	rootCmd.PersistentFlags().StringVar(&options.DataDir, "data-dir", "", "passage index directory (default ~/.refrag/data)")
	rootCmd.PersistentFlags().BoolVar(&options.Memory, "memory", false, "keep passages in memory for this run")
}

// SetServices installs services directly. Commands run with a nil
// bootstrap use whatever was set here.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	selectionService = s.Selection
	refragService = s.Refrag
	settingsService = s.Settings
	watcher = s.Watcher
	reloadConfig = s.Reload
	closeServices = s.Close
}

// SetBootstrap defers service construction until flags are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version reported by `refrag version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runRootPreRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil || cmd.Annotations[annotationNoServices] != "" {
		return nil
	}

	services, err := bootstrap(options)
	if err != nil {
		return fmt.Errorf("failed to initialise: %w", err)
	}
	SetServices(services)
	return nil
}

func runRootPostRun(_ *cobra.Command, _ []string) error {
	if closeServices != nil {
		closeServices()
		closeServices = nil
	}
	return nil
}

var (
	errSelectionUnavailable = errors.New("selection service not configured")
	errRefragUnavailable    = errors.New("refrag service not configured")
	errSettingsUnavailable  = errors.New("settings service not configured")
)

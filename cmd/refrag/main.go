// Command refrag selects the retrieved passages worth passing to a language model.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/refrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/refrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/refrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/refrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/refrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/refrag/internal/core/ports/driven"
	"github.com/custodia-labs/refrag/internal/core/services"
	"github.com/custodia-labs/refrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrap(opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	configDir := filepath.Dir(configStore.Path())
	promptStore, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	var store driven.PassageStore
	if opts.Memory {
		logger.Debug("Using in-memory passage store")
		store = memory.NewPassageStore()
	} else {
		sqliteStore, err := sqlite.NewStore(opts.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening passage store: %w", err)
		}
		logger.Debug("Using passage store %s", sqliteStore.Path())
		store = sqliteStore
	}

	aiServices := ai.Init(settings, false)

	selectionService := services.NewSelectionService()
	refragService := services.NewRefragService(
		store, aiServices.EmbeddingService, aiServices.LLMService, selectionService,
	)
	refragService.SetSettings(settingsService)
	refragService.SetPromptStore(promptStore)

	out := &cli.Services{
		Selection: selectionService,
		Refrag:    refragService,
		Settings:  settingsService,
		Reload: func() {
			if err := configStore.Load(); err != nil {
				logger.Warn("Reloading config: %v", err)
			}
			promptStore.Reload()
		},
		Close: func() {
			aiServices.Close()
			if err := store.Close(); err != nil {
				logger.Warn("Closing passage store: %v", err)
			}
		},
	}

	promptDir := promptStore.Dir()
	if err := os.MkdirAll(promptDir, 0700); err != nil {
		logger.Warn("Prompt directory unavailable, not watching: %v", err)
		return out, nil
	}
	watcher, err := file.NewWatcher(
		configStore.Path(),
		filepath.Join(promptDir, driven.PromptAnswer+".txt"),
	)
	if err != nil {
		logger.Warn("Config watching disabled: %v", err)
		return out, nil
	}
	out.Watcher = watcher

	closeServices := out.Close
	out.Close = func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("Closing config watcher: %v", err)
		}
		closeServices()
	}

	return out, nil
}

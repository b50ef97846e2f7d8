package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refrag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/refrag/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools:
  select_fragments - select among caller-supplied vectors
  refrag_query     - retrieve and select stored passages for a text query

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead, for the MCP Inspector or remote access.

Changes to config.toml and the prompt files are picked up without a restart.

Examples:
  # Stdio mode (default)
  refrag mcp serve

  # HTTP mode
  refrag mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "refrag": {
        "command": "/path/to/refrag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Selection: selectionService,
		Refrag:    refragService,
		Settings:  settingsService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if watcher != nil && reloadConfig != nil {
		go func() {
			err := watcher.Run(ctx, func(path string) {
				logger.Info("Reloading configuration after change to %s", path)
				reloadConfig()
			})
			if err != nil {
				logger.Warn("Config watcher stopped: %v", err)
			}
		}()
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}

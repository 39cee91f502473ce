// ABOUTME: MCP command starts the Model Context Protocol server
// ABOUTME: Lets LLM agents translate and query the translation memory via stdio
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/transdoc/internal/core"
	"github.com/harper/transdoc/internal/llm"
	"github.com/harper/transdoc/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs transdoc as an MCP (Model Context Protocol) server, letting LLM
agents translate documents through the translation memory, look up
stored translations and submit corrections via stdio.

Logs go to stderr; stdout carries the protocol.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  transdoc mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "transdoc": {
  #       "command": "transdoc",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg).With("component", "mcp")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	// Translation is optional: lookups and corrections work without a provider
	var orch *core.Orchestrator
	provider, err := llm.NewProvider(ctx, cfg, logger)
	if err != nil {
		logger.Warn("translation disabled", "error", err)
	} else {
		opts := core.DefaultOptions()
		opts.Concurrency = cfg.Concurrency
		opts.Timeout = cfg.Timeout
		orch = core.NewOrchestrator(store, provider, opts, logger)
	}

	server := mcpserver.NewMCPServer("transdoc", versionInfo.Version)
	handlers := mcp.RegisterTools(server, store, orch, core.NewReconciler(store, logger), logger)

	logger.Info("MCP server starting on stdio", "root", store.Root(), "index", store.Backend())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		handlers.Shutdown()

		// Close storage (flushes pending writes, closes DB)
		if err := store.Close(); err != nil {
			logger.Warn("error closing storage", "error", err)
		}
		logger.Info("shutdown complete")

	case err := <-serverErr:
		handlers.Shutdown()
		_ = store.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}

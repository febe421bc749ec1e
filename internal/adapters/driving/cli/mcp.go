package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docportal/internal/adapters/driving/mcp"
)

func newMCPCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
	}

	var port int
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Prompt templates are reloaded while the server runs.

Examples:
  # Stdio mode (default, for Claude Desktop)
  docportal mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  docportal mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "docportal": {
        "command": "/path/to/docportal",
        "args": ["mcp", "serve"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCPServe(cmd, app, port)
		},
	}
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (0 = use stdio)")

	cmd.AddCommand(serveCmd)
	return cmd
}

func runMCPServe(cmd *cobra.Command, app *App, port int) error {
	server, err := mcp.NewServer(&mcp.Ports{
		Ingestion:  app.Ingestion,
		Chat:       app.Chat,
		Comparison: app.Comparison,
		Sessions:   app.Sessions,
		Log:        app.Log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if app.Watch != nil {
		g.Go(func() error {
			return app.Watch(ctx)
		})
	}

	g.Go(func() error {
		// Stop the watcher once the client goes away.
		defer cancel()
		if port > 0 {
			addr := fmt.Sprintf(":%d", port)
			fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(ctx, addr)
		}
		return server.Run(ctx)
	})

	return g.Wait()
}

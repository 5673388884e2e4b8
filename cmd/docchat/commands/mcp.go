// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents to ingest and query documents via stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/docchat/docchat/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents.

Runs docchat as an MCP (Model Context Protocol) server over stdio,
exposing document ingestion and grounded question answering as tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  docchat mcp

  # Configure in an MCP client config:
  # {
  #   "mcpServers": {
  #     "docchat": {
  #       "command": "docchat",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}

	server := mcpserver.NewMCPServer(
		"docchat",
		versionInfo.Version,
	)

	mcp.RegisterTools(server, p.store, p.ingestor, p.orchestrator, p.idx)

	if !quiet {
		log.Println("docchat MCP server starting on stdio...")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, gracefully shutting down...")
		}
		if err := p.Close(); err != nil {
			log.Printf("Warning: Error closing storage: %v", err)
		}
		if !quiet {
			log.Println("Shutdown complete")
		}
	case err := <-serverErr:
		_ = p.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}

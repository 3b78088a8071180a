package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	stencilmcp "github.com/benjaminschreck/go-letterstencil/internal/mcp"
)

// newServeCmd creates the serve command for running as an MCP server.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as MCP server (stdio transport)",
		Long: `Run stencil as a Model Context Protocol (MCP) server over stdio.

This lets an agent list templates, read their variables and generate
documents. Configure in your agent's MCP settings:
  {
    "mcpServers": {
      "stencil": {
        "command": "stencil",
        "args": ["serve", "--db", "/path/to/stencil.db"]
      }
    }
  }

Available tools: list_templates, describe_template, generate_document`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, closeEngine, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine()

			server := stencilmcp.NewServer(buildVersion(), engine)
			return server.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}

// Package mcp provides a Model Context Protocol server for stencil.
// It exposes stored templates as MCP tools so an agent can inspect them and
// generate documents.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

// NewServer creates an MCP server with all stencil tools registered.
func NewServer(version string, engine *stencil.Engine) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "stencil",
		Version: version,
	}, nil)
	registerTools(server, engine)
	return server
}

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// readOnlyAnnotations returns annotations for read-only tools.
func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}

// writeAnnotations returns annotations for tools that write files but never
// change stored templates.
func writeAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(false),
		IdempotentHint:  true,
		OpenWorldHint:   boolPtr(false),
	}
}

// registerTools adds all stencil tools to the server.
func registerTools(server *mcp.Server, engine *stencil.Engine) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_templates",
		Description: "List stored templates with their state, version and variable count. Filter by state (draft, finalized) or category.",
		Annotations: readOnlyAnnotations(),
	}, handleList(engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "describe_template",
		Description: "Show one template's variables: name, type, constraints, default, and the document text each variable covers.",
		Annotations: readOnlyAnnotations(),
	}, handleDescribe(engine))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_document",
		Description: "Generate a document from a finalized template and variable bindings. Writes the .docx to output_path, or returns it base64-encoded when no path is given.",
		Annotations: writeAnnotations(),
	}, handleGenerate(engine))
}

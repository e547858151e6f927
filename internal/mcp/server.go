package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/docbase-dev/docbase/internal/kb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Searcher runs hybrid retrieval.
type Searcher interface {
	Retrieve(ctx context.Context, queryText string, limit int, filters kb.Filters) ([]kb.FusedResult, error)
}

// Asker answers questions with citations.
type Asker interface {
	Ask(ctx context.Context, question string, filters kb.Filters) (kb.RAGAnswer, error)
}

// Catalog lists stored documents.
type Catalog interface {
	Documents(ctx context.Context) ([]kb.Document, error)
}

// Server wraps an MCP server that exposes knowledge base tools to AI agents.
type Server struct {
	searcher Searcher
	asker    Asker
	catalog  Catalog
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(searcher Searcher, asker Asker, catalog Catalog) *Server {
	s := &Server{
		searcher: searcher,
		asker:    asker,
		catalog:  catalog,
	}

	s.mcp = server.NewMCPServer(
		"docbase",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchKnowledgeBaseTool, s.handleSearch)
	s.mcp.AddTool(askKnowledgeBaseTool, s.handleAsk)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
}

// Serve starts the MCP server on stdio. Stdout carries MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/docbase-dev/docbase/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Exposes the knowledge base to MCP clients (Claude Desktop, Cursor,
and similar tools) over stdin/stdout. Provides search_knowledge_base,
ask_knowledge_base, and list_documents tools.

All diagnostics go to stderr; stdout carries the protocol.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := createEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := embedder.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: embedding provider unavailable, keyword-only retrieval: %v\n", err)
	}

	provider, err := createLLMProvider(cfg)
	if err != nil {
		return err
	}

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	retr := buildRetriever(cfg, idx, embedder)
	orch := buildOrchestrator(cfg, retr, provider)

	return mcp.NewServer(retr, orch, idx).Serve()
}

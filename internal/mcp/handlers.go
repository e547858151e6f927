package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docbase-dev/docbase/internal/kb"
)

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}
	filters := kb.Filters{Technology: request.GetString("technology", "")}

	results, err := s.searcher.Retrieve(ctx, query, limit, filters)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The knowledge base may be empty; ingest documents with `docbase ingest`."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	filters := kb.Filters{Technology: request.GetString("technology", "")}

	answer, err := s.asker.Ask(ctx, question, filters)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAnswer(answer)), nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.catalog.Documents(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}

	if len(docs) == 0 {
		return mcp.NewToolResultText("The knowledge base is empty."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d document(s):\n", len(docs)))
	for _, d := range docs {
		sb.WriteString(fmt.Sprintf("\n- %s (%s)", d.Title, d.SourceRef))
		if d.Technology != "" {
			sb.WriteString(fmt.Sprintf(" [%s]", d.Technology))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatSearchResults renders fused results as text for agent consumption.
func formatSearchResults(results []kb.FusedResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Source: %s (%s)\n", r.Document.Title, r.Document.SourceRef))
		if r.Document.Technology != "" {
			sb.WriteString(fmt.Sprintf("Technology: %s\n", r.Document.Technology))
		}
		sb.WriteString(fmt.Sprintf("Relevance: %.0f%%\n", r.FusedScore*100))
		sb.WriteString(r.Excerpt)
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatAnswer renders a cited answer as text.
func formatAnswer(answer kb.RAGAnswer) string {
	var sb strings.Builder
	sb.WriteString(answer.AnswerText)

	if len(answer.Citations) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, c := range answer.Citations {
			sb.WriteString(fmt.Sprintf("- %s (%s, %.0f%% relevant)\n", c.Title, c.SourceRef, c.RelevancePct))
		}
	}
	if answer.Reasoning != "" {
		sb.WriteString("\n" + answer.Reasoning)
	}
	return sb.String()
}

package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docbase-dev/docbase/internal/kb"
)

type mockBackend struct {
	results []kb.FusedResult
	answer  kb.RAGAnswer
	docs    []kb.Document
	err     error

	lastFilters kb.Filters
}

func (m *mockBackend) Retrieve(_ context.Context, _ string, limit int, filters kb.Filters) ([]kb.FusedResult, error) {
	m.lastFilters = filters
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.results) {
		return m.results[:limit], nil
	}
	return m.results, nil
}

func (m *mockBackend) Ask(_ context.Context, _ string, filters kb.Filters) (kb.RAGAnswer, error) {
	m.lastFilters = filters
	if m.err != nil {
		return kb.RAGAnswer{}, m.err
	}
	return m.answer, nil
}

func (m *mockBackend) Documents(context.Context) ([]kb.Document, error) {
	return m.docs, m.err
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("tool result content is %T, want text", result.Content[0])
	}
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_knowledge_base", searchKnowledgeBaseTool, "search_knowledge_base"},
		{"ask_knowledge_base", askKnowledgeBaseTool, "ask_knowledge_base"},
		{"list_documents", listDocumentsTool, "list_documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	backend := &mockBackend{}
	srv := NewServer(backend, backend, backend)

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleSearch(t *testing.T) {
	backend := &mockBackend{
		results: []kb.FusedResult{{
			ChunkID:    "c1",
			FusedScore: 0.85,
			Excerpt:    "Drain the node before upgrading.",
			Document:   kb.Document{ID: "d1", Title: "Runbook", SourceRef: "https://wiki/runbook", Technology: "kubernetes"},
		}},
	}
	srv := NewServer(backend, backend, backend)
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "drain node"}

		result, err := srv.handleSearch(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := toolText(t, result)
		for _, want := range []string{"Runbook", "https://wiki/runbook", "85%", "Drain the node"} {
			if !strings.Contains(text, want) {
				t.Errorf("result missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("technology filter forwarded", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "drain", "technology": "kubernetes"}

		if _, err := srv.handleSearch(ctx, req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if backend.lastFilters.Technology != "kubernetes" {
			t.Errorf("filters = %+v", backend.lastFilters)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearch(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("empty knowledge base", func(t *testing.T) {
		empty := &mockBackend{}
		emptySrv := NewServer(empty, empty, empty)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "anything"}

		result, err := emptySrv.handleSearch(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("empty base must not be a tool error: %v", result.Content)
		}
		if !strings.Contains(toolText(t, result), "No results") {
			t.Error("expected a no-results message")
		}
	})
}

func TestHandleAsk(t *testing.T) {
	backend := &mockBackend{
		answer: kb.RAGAnswer{
			AnswerText: "Drain the node first.",
			Reasoning:  "Synthesized from 1 chunks across 1 documents; top relevance 85%.",
			Citations:  []kb.Citation{{Title: "Runbook", SourceRef: "https://wiki/runbook", RelevancePct: 85}},
		},
	}
	srv := NewServer(backend, backend, backend)
	ctx := context.Background()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"question": "how do I upgrade?"}

	result, err := srv.handleAsk(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
	text := toolText(t, result)
	for _, want := range []string{"Drain the node first.", "Sources:", "Runbook"} {
		if !strings.Contains(text, want) {
			t.Errorf("answer missing %q:\n%s", want, text)
		}
	}

	t.Run("missing question", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleAsk(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing question")
		}
	})

	t.Run("ask failure becomes tool error", func(t *testing.T) {
		failing := &mockBackend{err: errors.New("provider down")}
		failingSrv := NewServer(failing, failing, failing)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"question": "anything"}

		result, err := failingSrv.handleAsk(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error when asking fails")
		}
	})
}

func TestHandleListDocuments(t *testing.T) {
	backend := &mockBackend{docs: []kb.Document{
		{ID: "d1", Title: "Runbook", SourceRef: "https://wiki/runbook", Technology: "kubernetes"},
		{ID: "d2", Title: "Postmortem", SourceRef: "https://wiki/pm"},
	}}
	srv := NewServer(backend, backend, backend)

	result, err := srv.handleListDocuments(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := toolText(t, result)
	for _, want := range []string{"2 document(s)", "Runbook", "[kubernetes]", "Postmortem"} {
		if !strings.Contains(text, want) {
			t.Errorf("listing missing %q:\n%s", want, text)
		}
	}
}

package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchKnowledgeBaseTool defines the search_knowledge_base MCP tool.
var searchKnowledgeBaseTool = mcp.NewTool("search_knowledge_base",
	mcp.WithDescription("Search the team knowledge base with hybrid keyword and semantic retrieval. Returns matching excerpts with source references and relevance scores."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
	mcp.WithString("technology",
		mcp.Description("Restrict results to documents tagged with this technology, e.g. 'kubernetes'"),
	),
)

// askKnowledgeBaseTool defines the ask_knowledge_base MCP tool.
var askKnowledgeBaseTool = mcp.NewTool("ask_knowledge_base",
	mcp.WithDescription("Ask a question and get an answer synthesized from the knowledge base, with citations back to the source documents."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
	mcp.WithString("technology",
		mcp.Description("Restrict the answer's sources to documents tagged with this technology"),
	),
)

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List all documents currently stored in the knowledge base."),
)

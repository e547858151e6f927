package rag

import (
	"fmt"
	"math"
	"strings"

	"github.com/docbase-dev/docbase/internal/kb"
	"github.com/docbase-dev/docbase/internal/llm"
)

const systemPrompt = `You are a documentation assistant answering questions from a team knowledge base.

Rules:
- Answer ONLY from the reference material provided. Do not use outside knowledge.
- If the material does not contain the answer, say so plainly.
- Refer to sources by their bracketed number, e.g. [1].
- Be concise and concrete.`

// maxContextTokens caps how much reference material goes into one prompt.
const maxContextTokens = 3000

// buildMessages assembles the grounding prompt from retrieved results.
// Results past the token budget are dropped, lowest-ranked first.
func buildMessages(question string, results []kb.FusedResult) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Reference material:\n\n")

	budget := maxContextTokens
	for i, res := range results {
		entry := fmt.Sprintf("[%d] %s (%s, %d%% relevant)\n%s\n\n",
			i+1, res.Document.Title, res.Document.SourceRef, relevancePct(res.FusedScore), res.Excerpt)
		cost := llm.EstimateTokens(entry)
		if cost > budget && i > 0 {
			break
		}
		budget -= cost
		sb.WriteString(entry)
	}

	sb.WriteString("Question: ")
	sb.WriteString(question)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}

func relevancePct(score float64) int {
	return int(math.Round(score * 100))
}

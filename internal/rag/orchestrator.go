package rag

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/docbase-dev/docbase/internal/kb"
	"github.com/docbase-dev/docbase/internal/llm"
)

const (
	// DefaultTopK is how many fused results feed answer synthesis.
	DefaultTopK = 5

	// DefaultGenerateTimeout bounds one generation call.
	DefaultGenerateTimeout = 60 * time.Second

	generateTemperature = 0.2

	noContextAnswer = "The knowledge base has no material relevant to this question."

	// fallbackMarker appears in Reasoning whenever the answer was assembled
	// without the generator, so callers can tell degraded answers apart.
	fallbackMarker = "generation unavailable"
)

// Retriever is the slice of hybrid search answering needs.
type Retriever interface {
	Retrieve(ctx context.Context, queryText string, limit int, filters kb.Filters) ([]kb.FusedResult, error)
}

// Orchestrator turns a question into a grounded, cited answer. Retrieval
// runs first; the generator only ever sees material that came back from it,
// and every citation points at a retrieved document.
type Orchestrator struct {
	retriever Retriever
	provider  llm.Provider
	topK      int
	timeout   time.Duration
}

func New(retriever Retriever, provider llm.Provider, topK int, timeout time.Duration) *Orchestrator {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	return &Orchestrator{
		retriever: retriever,
		provider:  provider,
		topK:      topK,
		timeout:   timeout,
	}
}

// Ask answers question from the knowledge base. An empty retrieval result is
// a terminal no-context answer, not an error, and skips the generator
// entirely. A failed generation degrades to a deterministic answer built
// from the top excerpt.
func (o *Orchestrator) Ask(ctx context.Context, question string, filters kb.Filters) (kb.RAGAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return kb.RAGAnswer{}, fmt.Errorf("ask: %w: empty question", kb.ErrInvalidInput)
	}

	results, err := o.retriever.Retrieve(ctx, question, o.topK, filters)
	if err != nil {
		return kb.RAGAnswer{}, fmt.Errorf("ask: %w", err)
	}

	if len(results) == 0 {
		return kb.RAGAnswer{
			AnswerText: noContextAnswer,
			Reasoning:  "Retrieval found no matching chunks; no answer was generated.",
			Citations:  []kb.Citation{},
		}, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, genErr := o.provider.Complete(genCtx, llm.CompletionRequest{
		Messages:    buildMessages(question, results),
		Temperature: generateTemperature,
	})
	if genErr != nil {
		log.Printf("rag: %v: %v", kb.ErrGenerationFailed, genErr)
		return o.fallbackAnswer(results), nil
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		log.Printf("rag: %v: empty completion", kb.ErrGenerationFailed)
		return o.fallbackAnswer(results), nil
	}

	return kb.RAGAnswer{
		AnswerText: answer,
		Reasoning:  synthesisReasoning(results),
		Citations:  citations(results),
	}, nil
}

// fallbackAnswer builds a deterministic answer from the top retrieved
// excerpt when the generator is unavailable.
func (o *Orchestrator) fallbackAnswer(results []kb.FusedResult) kb.RAGAnswer {
	top := results[0]
	answer := fmt.Sprintf("The most relevant material found is from %q (%s):\n\n%s",
		top.Document.Title, top.Document.SourceRef, top.Excerpt)

	return kb.RAGAnswer{
		AnswerText: answer,
		Reasoning: fmt.Sprintf("%s; returning the top retrieved excerpt verbatim (%d%% relevant).",
			fallbackMarker, relevancePct(top.FusedScore)),
		Citations: citations(results),
	}
}

func synthesisReasoning(results []kb.FusedResult) string {
	docs := make(map[string]struct{}, len(results))
	for _, res := range results {
		docs[res.Document.ID] = struct{}{}
	}
	return fmt.Sprintf("Synthesized from %d chunks across %d documents; top relevance %d%%.",
		len(results), len(docs), relevancePct(results[0].FusedScore))
}

// citations maps retrieved results to source citations, one per document,
// keeping each document's best score.
func citations(results []kb.FusedResult) []kb.Citation {
	out := make([]kb.Citation, 0, len(results))
	seen := make(map[string]int, len(results))

	for _, res := range results {
		pct := math.Round(res.FusedScore * 100)
		if idx, ok := seen[res.Document.ID]; ok {
			if pct > out[idx].RelevancePct {
				out[idx].RelevancePct = pct
			}
			continue
		}
		seen[res.Document.ID] = len(out)
		out = append(out, kb.Citation{
			Title:        res.Document.Title,
			SourceRef:    res.Document.SourceRef,
			RelevancePct: pct,
		})
	}
	return out
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/docbase-dev/docbase/internal/chunker"
	"github.com/docbase-dev/docbase/internal/config"
	"github.com/docbase-dev/docbase/internal/embeddings"
	"github.com/docbase-dev/docbase/internal/excerpt"
	"github.com/docbase-dev/docbase/internal/index"
	"github.com/docbase-dev/docbase/internal/ingest"
	"github.com/docbase-dev/docbase/internal/llm"
	"github.com/docbase-dev/docbase/internal/rag"
	"github.com/docbase-dev/docbase/internal/retriever"
)

// loadConfig loads and validates the config, providing a friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docbase init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w\nRun `docbase init` to reconfigure", err)
	}
	return cfg, nil
}

// createEmbedder builds the embedding service from config. The service
// still needs Initialize before it will embed anything.
func createEmbedder(cfg *config.Config) (*embeddings.Service, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		client := embeddings.NewOpenAIClient(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel))
		return embeddings.NewService(client), nil
	case config.ProviderOllama:
		client := embeddings.NewOllamaClient(cfg.EmbeddingModel, cfg.EmbeddingDims, "")
		return embeddings.NewService(client), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

// createLLMProvider builds the generation provider, rate limited per config.
func createLLMProvider(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.MaxRPM > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.MaxRPM)
	}
	return provider, nil
}

// openIndex opens (creating if needed) the index under the data dir.
func openIndex(cfg *config.Config) (*index.Index, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", cfg.DataDir, err)
	}
	return index.Open(cfg.IndexPath(), cfg.EmbeddingDims)
}

// buildRetriever wires hybrid search from its parts.
func buildRetriever(cfg *config.Config, idx *index.Index, embedder *embeddings.Service) *retriever.Retriever {
	return retriever.New(
		idx,
		embedder,
		excerpt.New(cfg.Retrieval.ExcerptLength),
		cfg.Retrieval.CandidatePoolSize,
	)
}

// buildOrchestrator wires question answering on top of retrieval.
func buildOrchestrator(cfg *config.Config, retr *retriever.Retriever, provider llm.Provider) *rag.Orchestrator {
	timeout := time.Duration(cfg.Retrieval.GenerateTimeoutS) * time.Second
	return rag.New(retr, provider, cfg.Retrieval.TopK, timeout)
}

// buildIngestor wires the ingestion pipeline.
func buildIngestor(cfg *config.Config, idx *index.Index, embedder *embeddings.Service) *ingest.Service {
	return ingest.NewService(idx, embedder, chunker.Options{
		MaxSize: cfg.Retrieval.MaxChunkSize,
		Overlap: cfg.Retrieval.ChunkOverlap,
	})
}

package config

// EmbeddingPreset names an embedding model and its vector width.
type EmbeddingPreset struct {
	Model      string
	Dimensions int
}

// embeddingPresets maps providers to their default embedding setup.
var embeddingPresets = map[ProviderType]EmbeddingPreset{
	ProviderOpenAI: {Model: "text-embedding-3-small", Dimensions: 1536},
	ProviderOllama: {Model: "nomic-embed-text", Dimensions: 768},
}

// defaultModels maps providers to their default generation model.
var defaultModels = map[ProviderType]string{
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
	ProviderOpenAI:    "gpt-4o",
	ProviderOllama:    "llama3",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             defaultModels[ProviderOpenAI],
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    embeddingPresets[ProviderOpenAI].Model,
		EmbeddingDims:     embeddingPresets[ProviderOpenAI].Dimensions,
		DataDir:           ".docbase",
		MaxRPM:            60,
		Retrieval: RetrievalConfig{
			TopK:              5,
			CandidatePoolSize: 100,
			MaxChunkSize:      1000,
			ChunkOverlap:      0,
			ExcerptLength:     300,
			GenerateTimeoutS:  60,
		},
		Server: ServerConfig{
			Port:           8470,
			AllowedOrigins: []string{"*"},
		},
	}
}

// EmbeddingPresetFor returns the default embedding setup for a provider.
// Anthropic has no embedding API, so it falls back to OpenAI embeddings.
func EmbeddingPresetFor(p ProviderType) (ProviderType, EmbeddingPreset) {
	if p == ProviderOllama {
		return ProviderOllama, embeddingPresets[ProviderOllama]
	}
	return ProviderOpenAI, embeddingPresets[ProviderOpenAI]
}

// DefaultModelFor returns the default generation model for a provider.
func DefaultModelFor(p ProviderType) string {
	if m, ok := defaultModels[p]; ok {
		return m
	}
	return defaultModels[ProviderOpenAI]
}

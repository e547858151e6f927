package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = ".docbase.yml"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCBASE_*).
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// DOCBASE_EMBEDDING_MODEL -> embedding_model, DOCBASE_SERVER.PORT -> server.port.
	if err := k.Load(env.Provider("DOCBASE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DOCBASE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// IndexPath is where the SQLite index lives under DataDir.
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, "index.db")
}

var validProviders = map[ProviderType]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderOllama:    true,
}

// validEmbeddingProviders excludes Anthropic, which has no embedding API.
var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of anthropic, openai, ollama", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if c.EmbeddingProvider == "" {
		return fmt.Errorf("embedding_provider is required")
	}
	if !validEmbeddingProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q: must be openai or ollama", c.EmbeddingProvider)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}
	if c.EmbeddingDims <= 0 {
		return fmt.Errorf("embedding_dims must be positive")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.MaxRPM < 0 {
		return fmt.Errorf("max_rpm must be non-negative")
	}

	r := c.Retrieval
	if r.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if r.CandidatePoolSize <= 0 {
		return fmt.Errorf("retrieval.candidate_pool_size must be positive")
	}
	if r.MaxChunkSize <= 0 {
		return fmt.Errorf("retrieval.max_chunk_size must be positive")
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.MaxChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap must be in [0, max_chunk_size)")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535]")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

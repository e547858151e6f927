package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider %q, got %q", ProviderOpenAI, cfg.Provider)
	}
	if cfg.EmbeddingDims != 1536 {
		t.Errorf("expected default embedding_dims 1536, got %d", cfg.EmbeddingDims)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected default top_k 5, got %d", cfg.Retrieval.TopK)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.docbase.yml")

	original := DefaultConfig()
	original.Provider = ProviderAnthropic
	original.Model = "claude-sonnet-4-5-20250929"
	original.EmbeddingProvider = ProviderOllama
	original.EmbeddingModel = "nomic-embed-text"
	original.EmbeddingDims = 768
	original.DataDir = "/var/lib/docbase"
	original.Include = []string{"**/*.md", "**/*.rst"}
	original.Retrieval.TopK = 8
	original.Server.Port = 9000

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Provider != original.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Provider, original.Provider)
	}
	if loaded.EmbeddingProvider != original.EmbeddingProvider {
		t.Errorf("embedding_provider: got %q, want %q", loaded.EmbeddingProvider, original.EmbeddingProvider)
	}
	if loaded.EmbeddingDims != original.EmbeddingDims {
		t.Errorf("embedding_dims: got %d, want %d", loaded.EmbeddingDims, original.EmbeddingDims)
	}
	if loaded.DataDir != original.DataDir {
		t.Errorf("data_dir: got %q, want %q", loaded.DataDir, original.DataDir)
	}
	if loaded.Retrieval.TopK != 8 {
		t.Errorf("top_k: got %d, want 8", loaded.Retrieval.TopK)
	}
	if loaded.Server.Port != 9000 {
		t.Errorf("port: got %d, want 9000", loaded.Server.Port)
	}
	if len(loaded.Include) != len(original.Include) {
		t.Fatalf("include length: got %d, want %d", len(loaded.Include), len(original.Include))
	}
	for i, v := range loaded.Include {
		if v != original.Include[i] {
			t.Errorf("include[%d]: got %q, want %q", i, v, original.Include[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Missing file means defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("DOCBASE_PROVIDER", "ollama")
	t.Setenv("DOCBASE_EMBEDDING_MODEL", "mxbai-embed-large")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Provider != ProviderOllama {
		t.Errorf("env override ignored: provider = %q", loaded.Provider)
	}
	if loaded.EmbeddingModel != "mxbai-embed-large" {
		t.Errorf("env override ignored: embedding_model = %q", loaded.EmbeddingModel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"valid defaults", func(c *Config) {}, true},
		{"missing provider", func(c *Config) { c.Provider = "" }, false},
		{"unknown provider", func(c *Config) { c.Provider = "cohere" }, false},
		{"missing model", func(c *Config) { c.Model = "" }, false},
		{"anthropic embeddings rejected", func(c *Config) { c.EmbeddingProvider = ProviderAnthropic }, false},
		{"zero dims", func(c *Config) { c.EmbeddingDims = 0 }, false},
		{"missing data dir", func(c *Config) { c.DataDir = "" }, false},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }, false},
		{"overlap past chunk size", func(c *Config) { c.Retrieval.ChunkOverlap = c.Retrieval.MaxChunkSize }, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestIndexPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "data"
	if got := cfg.IndexPath(); got != filepath.Join("data", "index.db") {
		t.Errorf("IndexPath = %q", got)
	}
}

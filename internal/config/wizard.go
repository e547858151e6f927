package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard walks the user through initial configuration interactively
// and saves the result to .docbase.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to docbase! Let's set up your knowledge base.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Generation provider.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider for answer generation",
		Items: []string{"openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Generation model",
		Default: DefaultModelFor(cfg.Provider),
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 2. Embeddings follow the provider choice; Anthropic answers with
	// OpenAI embeddings since it has no embedding API.
	embProvider, preset := EmbeddingPresetFor(cfg.Provider)
	cfg.EmbeddingProvider = embProvider
	cfg.EmbeddingModel = preset.Model
	cfg.EmbeddingDims = preset.Dimensions
	fmt.Printf("Embeddings: %s via %s (%d dimensions)\n\n", preset.Model, embProvider, preset.Dimensions)

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the index",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 4. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 5. Ingestion include patterns.
	includePrompt := promptui.Prompt{
		Label:   "Include patterns for ingestion (comma-separated globs, blank for defaults)",
		Default: "",
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	if includeStr != "" {
		cfg.Include = splitAndTrim(includeStr)
	}

	for _, p := range []ProviderType{cfg.Provider, cfg.EmbeddingProvider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: set %s in your environment before ingesting or asking.\n", envVar)
		}
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}

func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

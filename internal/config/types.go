package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level docbase configuration, corresponding to .docbase.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDims     int          `yaml:"embedding_dims" koanf:"embedding_dims"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	Include           []string     `yaml:"include" koanf:"include"`
	Exclude           []string     `yaml:"exclude" koanf:"exclude"`
	MaxRPM            int          `yaml:"max_rpm" koanf:"max_rpm"`

	Retrieval RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
}

// RetrievalConfig tunes chunking and hybrid search.
type RetrievalConfig struct {
	TopK              int `yaml:"top_k" koanf:"top_k"`
	CandidatePoolSize int `yaml:"candidate_pool_size" koanf:"candidate_pool_size"`
	MaxChunkSize      int `yaml:"max_chunk_size" koanf:"max_chunk_size"`
	ChunkOverlap      int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	ExcerptLength     int `yaml:"excerpt_length" koanf:"excerpt_length"`
	GenerateTimeoutS  int `yaml:"generate_timeout_seconds" koanf:"generate_timeout_seconds"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

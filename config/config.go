package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"medrag/internal/domain"
)

// Config holds all configuration for the medical question answering service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Agent     AgentConfig     `yaml:"agent"`
	Domains   []DomainConfig  `yaml:"domains"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ChunkingConfig holds document splitting configuration.
// Sizes are counted in runes.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "hash", "openai", "ollama", "jina"
	Model     string `yaml:"model"`       // e.g., "text-embedding-3-small"
	BaseURL   string `yaml:"base_url"`    // override for OpenAI-compatible endpoints
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// LLMConfig holds language model configuration.
type LLMConfig struct {
	Provider          string        `yaml:"provider"` // "groq", "openai", "deepseek", "ollama"
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	APIKeyEnv         string        `yaml:"api_key_env"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int           `yaml:"burst"`
}

// RetrievalConfig holds retrieval tool configuration.
type RetrievalConfig struct {
	TopK      int           `yaml:"top_k"`
	CacheSize int           `yaml:"cache_size"` // 0 disables the answer cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// AgentConfig holds reasoning loop configuration.
type AgentConfig struct {
	MaxIterations   int `yaml:"max_iterations"`
	MaxToolFailures int `yaml:"max_tool_failures"`
}

// DomainConfig describes one knowledge base and the tool that exposes it.
type DomainConfig struct {
	ID          string   `yaml:"id"`
	ToolName    string   `yaml:"tool_name"`
	Description string   `yaml:"description"`
	CorpusDir   string   `yaml:"corpus_dir"`
	IndexPath   string   `yaml:"index_path"`
	Includes    []string `yaml:"includes"`
	Excludes    []string `yaml:"excludes"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			RequestTimeout:  120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "hash-v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
			BatchSize: 64,
		},
		LLM: LLMConfig{
			Provider:          "groq",
			Model:             "llama-3.3-70b-versatile",
			APIKeyEnv:         "GROQ_API_KEY",
			Temperature:       0,
			MaxTokens:         1024,
			Timeout:           60 * time.Second,
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Retrieval: RetrievalConfig{
			TopK:      3,
			CacheSize: 256,
			CacheTTL:  10 * time.Minute,
		},
		Agent: AgentConfig{
			MaxIterations:   15,
			MaxToolFailures: 3,
		},
		Domains: []DomainConfig{
			{
				ID:          "who",
				ToolName:    "WHO_Medicine_Tool",
				Description: "Use this tool to answer questions about WHO's essential medicines list.",
				CorpusDir:   filepath.Join("data", "data1"),
				IndexPath:   filepath.Join("vectorstores", "vs_data1", "index.db"),
			},
			{
				ID:          "oncology",
				ToolName:    "Oncology_Treatment_Tool",
				Description: "Use this tool for cancer treatment, chemotherapy, oncology emergencies, etc.",
				CorpusDir:   filepath.Join("data", "data2"),
				IndexPath:   filepath.Join("vectorstores", "vs_data2", "index.db"),
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultIncludes are the corpus file patterns used when a domain lists none.
var DefaultIncludes = []string{"**/*.pdf", "**/*.txt", "**/*.md"}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for medrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "medrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".medrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate checks static parameters. Every returned error wraps
// domain.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return domain.Configf("chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return domain.Configf("chunk_overlap must be in [0, %d), got %d", c.Chunking.ChunkSize, c.Chunking.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return domain.Configf("top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Agent.MaxIterations <= 0 {
		return domain.Configf("max_iterations must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Embedding.Dimension <= 0 && c.Embedding.Provider == "hash" {
		return domain.Configf("hash embedder needs a positive dimension")
	}
	if len(c.Domains) == 0 {
		return domain.Configf("at least one domain is required")
	}

	ids := make(map[string]bool, len(c.Domains))
	tools := make(map[string]bool, len(c.Domains))
	for _, d := range c.Domains {
		switch {
		case d.ID == "":
			return domain.Configf("domain without id")
		case d.ToolName == "":
			return domain.Configf("domain %s: tool_name is required", d.ID)
		case d.IndexPath == "":
			return domain.Configf("domain %s: index_path is required", d.ID)
		case ids[d.ID]:
			return domain.Configf("duplicate domain id %s", d.ID)
		case tools[d.ToolName]:
			return domain.Configf("duplicate tool name %s", d.ToolName)
		}
		ids[d.ID] = true
		tools[d.ToolName] = true
	}
	return nil
}

// Domain returns the domain with the given id.
func (c *Config) Domain(id string) (DomainConfig, bool) {
	for _, d := range c.Domains {
		if d.ID == id {
			return d, true
		}
	}
	return DomainConfig{}, false
}

// Resolve makes relative corpus and index paths absolute against dir.
func (c *Config) Resolve(dir string) {
	for i := range c.Domains {
		d := &c.Domains[i]
		if d.CorpusDir != "" && !filepath.IsAbs(d.CorpusDir) {
			d.CorpusDir = filepath.Join(dir, d.CorpusDir)
		}
		if !filepath.IsAbs(d.IndexPath) {
			d.IndexPath = filepath.Join(dir, d.IndexPath)
		}
		if len(d.Includes) == 0 {
			d.Includes = DefaultIncludes
		}
	}
}

// APIKey reads a credential from the named environment variable.
func APIKey(env string) (string, error) {
	if env == "" {
		return "", nil
	}
	key := os.Getenv(env)
	if key == "" {
		return "", domain.Configf("%s not found in environment", env)
	}
	return key, nil
}

// Package config loads and validates studyrag configuration from
// defaults, a project YAML file, and environment overrides, in that
// precedence order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete studyrag configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Answer     AnswerConfig     `yaml:"answer" json:"answer"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ChunkingConfig sets the sliding-window sizes. Token sizes apply
// when a tokenizer is available; character sizes are the fallback.
type ChunkingConfig struct {
	MaxTokens     int `yaml:"max_tokens" json:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens" json:"overlap_tokens"`
	MaxChars      int `yaml:"max_chars" json:"max_chars"`
	OverlapChars  int `yaml:"overlap_chars" json:"overlap_chars"`
}

// EmbeddingsConfig selects and tunes the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "static", "openai", or empty for auto-detection
	// (openai when an API key is present, static otherwise).
	Provider   string        `yaml:"provider" json:"provider"`
	Model      string        `yaml:"model" json:"model"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	BatchSize  int           `yaml:"batch_size" json:"batch_size"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`

	// APIKey comes from the environment only, never from the file.
	APIKey string `yaml:"-" json:"-"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	// Backend is "local" (embedded) or "qdrant" (remote).
	Backend    string `yaml:"backend" json:"backend"`
	Path       string `yaml:"path" json:"path"` // local store directory
	URL        string `yaml:"url" json:"url"`   // qdrant base URL
	Collection string `yaml:"collection" json:"collection"`

	// APIKey comes from the environment only, never from the file.
	APIKey string `yaml:"-" json:"-"`
}

// RetrievalConfig tunes query-time behavior.
type RetrievalConfig struct {
	K             int `yaml:"k" json:"k"`
	ContextTokens int `yaml:"context_tokens" json:"context_tokens"`
}

// AnswerConfig tunes answer synthesis.
type AnswerConfig struct {
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"` // empty logs to stderr
}

// NewConfig creates a Config with the defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Chunking: ChunkingConfig{
			MaxTokens:     700,
			OverlapTokens: 100,
			MaxChars:      1200,
			OverlapChars:  150,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "", // auto-detect
			Model:     "", // provider default
			BatchSize: 64,
			CacheSize: 1024,
			Timeout:   30 * time.Second,
		},
		Store: StoreConfig{
			Backend:    "local",
			Path:       ".studyrag",
			Collection: "studyrag",
		},
		Retrieval: RetrievalConfig{
			K:             5,
			ContextTokens: 1600,
		},
		Answer: AnswerConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration for a project directory:
// defaults, then .studyrag.yaml overrides, then environment
// variables, then validation.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromFile merges .studyrag.yaml (or .yml) when present. A
// missing file is not an error.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".studyrag.yaml", ".studyrag.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Chunking.MaxTokens != 0 {
		c.Chunking.MaxTokens = other.Chunking.MaxTokens
	}
	if other.Chunking.OverlapTokens != 0 {
		c.Chunking.OverlapTokens = other.Chunking.OverlapTokens
	}
	if other.Chunking.MaxChars != 0 {
		c.Chunking.MaxChars = other.Chunking.MaxChars
	}
	if other.Chunking.OverlapChars != 0 {
		c.Chunking.OverlapChars = other.Chunking.OverlapChars
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}

	if other.Store.Backend != "" {
		c.Store.Backend = other.Store.Backend
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Store.URL != "" {
		c.Store.URL = other.Store.URL
	}
	if other.Store.Collection != "" {
		c.Store.Collection = other.Store.Collection
	}

	if other.Retrieval.K != 0 {
		c.Retrieval.K = other.Retrieval.K
	}
	if other.Retrieval.ContextTokens != 0 {
		c.Retrieval.ContextTokens = other.Retrieval.ContextTokens
	}

	if other.Answer.Model != "" {
		c.Answer.Model = other.Answer.Model
	}
	if other.Answer.Timeout != 0 {
		c.Answer.Timeout = other.Answer.Timeout
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies STUDYRAG_* (and credential) environment
// variables, the highest-precedence configuration source.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STUDYRAG_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("STUDYRAG_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("STUDYRAG_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("STUDYRAG_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("STUDYRAG_STORE_URL"); v != "" {
		c.Store.URL = v
	}
	if v := os.Getenv("STUDYRAG_COLLECTION"); v != "" {
		c.Store.Collection = v
	}
	if v := os.Getenv("STUDYRAG_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Retrieval.K = k
		}
	}
	if v := os.Getenv("STUDYRAG_CONTEXT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.ContextTokens = n
		}
	}
	if v := os.Getenv("STUDYRAG_ANSWER_MODEL"); v != "" {
		c.Answer.Model = v
	}
	if v := os.Getenv("STUDYRAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	// Credentials never live in the config file
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		c.Store.APIKey = v
	}
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	if c.Chunking.MaxTokens <= 0 {
		return fmt.Errorf("chunking.max_tokens must be positive, got %d", c.Chunking.MaxTokens)
	}
	if c.Chunking.OverlapTokens < 0 {
		return fmt.Errorf("chunking.overlap_tokens must be non-negative, got %d", c.Chunking.OverlapTokens)
	}
	if c.Chunking.OverlapTokens >= c.Chunking.MaxTokens {
		return fmt.Errorf("chunking.overlap_tokens (%d) must be smaller than chunking.max_tokens (%d)",
			c.Chunking.OverlapTokens, c.Chunking.MaxTokens)
	}
	if c.Chunking.MaxChars <= 0 {
		return fmt.Errorf("chunking.max_chars must be positive, got %d", c.Chunking.MaxChars)
	}
	if c.Chunking.OverlapChars < 0 || c.Chunking.OverlapChars >= c.Chunking.MaxChars {
		return fmt.Errorf("chunking.overlap_chars (%d) must be in [0, max_chars), max_chars is %d",
			c.Chunking.OverlapChars, c.Chunking.MaxChars)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"static": true, "openai": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'static', 'openai', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	validBackends := map[string]bool{"local": true, "qdrant": true}
	if !validBackends[strings.ToLower(c.Store.Backend)] {
		return fmt.Errorf("store.backend must be 'local' or 'qdrant', got %s", c.Store.Backend)
	}
	if strings.ToLower(c.Store.Backend) == "qdrant" && c.Store.URL == "" {
		return fmt.Errorf("store.url is required when store.backend is 'qdrant'")
	}
	if c.Store.Collection == "" {
		return fmt.Errorf("store.collection must not be empty")
	}

	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval.k must be positive, got %d", c.Retrieval.K)
	}
	if c.Retrieval.ContextTokens <= 0 {
		return fmt.Errorf("retrieval.context_tokens must be positive, got %d", c.Retrieval.ContextTokens)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

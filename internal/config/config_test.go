package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 700, cfg.Chunking.MaxTokens)
	assert.Equal(t, 100, cfg.Chunking.OverlapTokens)
	assert.Equal(t, 1200, cfg.Chunking.MaxChars)
	assert.Equal(t, 150, cfg.Chunking.OverlapChars)
	assert.Equal(t, 5, cfg.Retrieval.K)
	assert.Equal(t, 1600, cfg.Retrieval.ContextTokens)
	assert.Equal(t, "local", cfg.Store.Backend)
	assert.Equal(t, "studyrag", cfg.Store.Collection)
	assert.Equal(t, "gpt-4o-mini", cfg.Answer.Model)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Chunking, cfg.Chunking)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
chunking:
  max_tokens: 300
  overlap_tokens: 50
retrieval:
  k: 8
store:
  collection: thesis
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".studyrag.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Chunking.MaxTokens)
	assert.Equal(t, 50, cfg.Chunking.OverlapTokens)
	assert.Equal(t, 8, cfg.Retrieval.K)
	assert.Equal(t, "thesis", cfg.Store.Collection)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched settings keep their defaults
	assert.Equal(t, 1600, cfg.Retrieval.ContextTokens)
	assert.Equal(t, "local", cfg.Store.Backend)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := "retrieval:\n  k: 8\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".studyrag.yaml"), []byte(content), 0o644))

	t.Setenv("STUDYRAG_K", "3")
	t.Setenv("STUDYRAG_EMBEDDINGS_PROVIDER", "static")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retrieval.K)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "sk-test", cfg.Embeddings.APIKey)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".studyrag.yaml"), []byte("chunking: ["), 0o644))

	_, err := Load(dir)

	assert.Error(t, err)
}

func TestValidate_RejectsOverlapNotBelowChunkSize(t *testing.T) {
	cfg := NewConfig()
	cfg.Chunking.OverlapTokens = cfg.Chunking.MaxTokens

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap_tokens")
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	cfg := NewConfig()
	cfg.Embeddings.Provider = "ollama"

	assert.Error(t, cfg.Validate())
}

func TestValidate_QdrantRequiresURL(t *testing.T) {
	cfg := NewConfig()
	cfg.Store.Backend = "qdrant"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.url")

	cfg.Store.URL = "http://localhost:6333"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.Logging.Level = "loud"

	assert.Error(t, cfg.Validate())
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".studyrag.yaml")

	cfg := NewConfig()
	cfg.Retrieval.K = 11
	cfg.Embeddings.Timeout = 45 * time.Second
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 11, loaded.Retrieval.K)
	assert.Equal(t, 45*time.Second, loaded.Embeddings.Timeout)
}

func TestCredentialsNeverComeFromFile(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Embeddings.APIKey = "sk-secret"
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".studyrag.yaml")))

	data, err := os.ReadFile(filepath.Join(dir, ".studyrag.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
}

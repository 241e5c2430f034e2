package cmd

import (
	"log/slog"
	"strings"

	"github.com/studydeck/studyrag/internal/config"
	"github.com/studydeck/studyrag/internal/embed"
	"github.com/studydeck/studyrag/internal/llm"
	"github.com/studydeck/studyrag/internal/logging"
	"github.com/studydeck/studyrag/internal/rag"
	"github.com/studydeck/studyrag/internal/store"
)

// loadConfig loads the effective configuration from the current
// directory and, unless --debug already configured file logging,
// points the default logger at stderr with the configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	if modelOverride != "" {
		cfg.Embeddings.Model = modelOverride
	}

	if !debugMode {
		logger, _, err := logging.Setup(logging.Config{
			Level:    cfg.Logging.Level,
			FilePath: cfg.Logging.File,
		})
		if err != nil {
			return nil, err
		}
		slog.SetDefault(logger)
	}
	return cfg, nil
}

// resolveProvider applies provider auto-detection: openai when a key
// is present, static otherwise.
func resolveProvider(cfg *config.Config) string {
	if cfg.Embeddings.Provider != "" {
		return cfg.Embeddings.Provider
	}
	if cfg.Embeddings.APIKey != "" {
		return embed.ProviderOpenAI
	}
	return embed.ProviderStatic
}

// buildEngine assembles the pipeline from configuration: embedder,
// vector store, and (when credentials allow) the answer synthesizer.
func buildEngine(cfg *config.Config) (*rag.Engine, error) {
	provider := resolveProvider(cfg)

	embedder, err := embed.NewEmbedder(embed.FactoryConfig{
		Provider:   provider,
		APIKey:     cfg.Embeddings.APIKey,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		Timeout:    cfg.Embeddings.Timeout,
		CacheSize:  cfg.Embeddings.CacheSize,
		Retry:      true,
	})
	if err != nil {
		return nil, err
	}

	var vectorStore store.VectorStore
	switch strings.ToLower(cfg.Store.Backend) {
	case "qdrant":
		vectorStore, err = store.NewQdrant(store.QdrantConfig{
			BaseURL: cfg.Store.URL,
			APIKey:  cfg.Store.APIKey,
		})
	default:
		vectorStore, err = store.NewLocal(cfg.Store.Path)
	}
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	opts := []rag.Option{
		rag.WithStore(vectorStore),
		rag.WithEmbedder(embedder),
		rag.WithCollection(cfg.Store.Collection),
		rag.WithChunking(cfg.Chunking.MaxTokens, cfg.Chunking.OverlapTokens),
		rag.WithK(cfg.Retrieval.K),
		rag.WithContextBudget(cfg.Retrieval.ContextTokens),
	}

	if cfg.Embeddings.APIKey != "" {
		chat, err := llm.NewOpenAIChatClient(llm.ChatConfig{
			APIKey:  cfg.Embeddings.APIKey,
			Model:   cfg.Answer.Model,
			Timeout: cfg.Answer.Timeout,
		})
		if err != nil {
			_ = embedder.Close()
			_ = vectorStore.Close()
			return nil, err
		}
		opts = append(opts, rag.WithSynthesizer(llm.NewSynthesizer(chat)))
	}

	engine, err := rag.NewEngine(opts...)
	if err != nil {
		_ = embedder.Close()
		_ = vectorStore.Close()
		return nil, err
	}
	return engine, nil
}

package embed

import (
	"fmt"
	"time"

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

// Provider names selectable via configuration.
const (
	ProviderStatic = "static"
	ProviderOpenAI = "openai"
)

// FactoryConfig selects and configures an embedding backend.
type FactoryConfig struct {
	// Provider is "openai" or "static". Empty selects "static", the
	// backend that works with no external dependency.
	Provider string

	// OpenAI settings (ignored for the static provider).
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration

	// CacheSize is the LRU embedding cache size. 0 uses the default;
	// negative disables caching.
	CacheSize int

	// Retry enables exponential-backoff retries on transient failures.
	Retry bool
}

// NewEmbedder builds the configured embedder, wrapped with retry and
// cache decorators as requested. Selection is explicit: an unusable
// provider is a configuration error, not a silent fallback.
func NewEmbedder(cfg FactoryConfig) (Embedder, error) {
	var (
		embedder Embedder
		err      error
	)

	switch cfg.Provider {
	case ProviderStatic, "":
		embedder = NewStaticEmbedder()
	case ProviderOpenAI:
		embedder, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, ragerr.New(ragerr.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown embedding provider %q", cfg.Provider), nil).
			WithSuggestion("valid providers: openai, static")
	}

	if cfg.Retry {
		embedder = NewRetryEmbedder(embedder, ragerr.DefaultRetryConfig())
	}
	if cfg.CacheSize >= 0 {
		embedder = NewCachedEmbedder(embedder, cfg.CacheSize)
	}
	return embedder, nil
}

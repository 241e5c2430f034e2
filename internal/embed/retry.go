package embed

import (
	"context"

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

// RetryEmbedder wraps an Embedder with exponential-backoff retries for
// transient service failures. Non-retryable errors (bad credentials,
// dimension mismatch) pass through immediately.
type RetryEmbedder struct {
	inner Embedder
	cfg   ragerr.RetryConfig
}

// Verify interface implementation at compile time
var _ Embedder = (*RetryEmbedder)(nil)

// NewRetryEmbedder wraps inner with the given retry policy.
func NewRetryEmbedder(inner Embedder, cfg ragerr.RetryConfig) *RetryEmbedder {
	if cfg.MaxRetries <= 0 {
		cfg = ragerr.DefaultRetryConfig()
	}
	return &RetryEmbedder{inner: inner, cfg: cfg}
}

// Embed generates an embedding, retrying transient failures.
func (r *RetryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := ragerr.Retry(ctx, r.cfg, func() error {
		var embedErr error
		vec, embedErr = r.inner.Embed(ctx, text)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch generates embeddings, retrying transient failures.
// The whole batch is retried; partial results are never kept.
func (r *RetryEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := ragerr.Retry(ctx, r.cfg, func() error {
		var embedErr error
		vecs, embedErr = r.inner.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension of the wrapped embedder.
func (r *RetryEmbedder) Dimensions() int { return r.inner.Dimensions() }

// ModelName returns the model identifier of the wrapped embedder.
func (r *RetryEmbedder) ModelName() string { return r.inner.ModelName() }

// Close releases the wrapped embedder's resources.
func (r *RetryEmbedder) Close() error { return r.inner.Close() }

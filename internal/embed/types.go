// Package embed converts text into fixed-dimension normalized vectors.
//
// Two backends exist: a deterministic local hash embedder that needs no
// network and never fails (used for tests and offline operation), and a
// remote OpenAI-compatible embedder. Backends are selected by
// configuration through the factory, never by runtime probing.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 64

	// MaxBatchSize caps a single request's batch (prevents oversized
	// request bodies against rate-limited APIs).
	MaxBatchSize = 256

	// DefaultTimeout is the per-request timeout for remote embedding calls.
	DefaultTimeout = 30 * time.Second

	// StaticDimensions is the vector dimension of the local hash embedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
//
// Every returned vector has unit L2 norm, except the embedding of
// all-zero input which stays zero (never divided).
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
// The zero vector is returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}

// IsZero reports whether v is the all-zero vector. A zero query vector
// means the text had no recognizable tokens for the backend.
func IsZero(v []float32) bool {
	for _, val := range v {
		if val != 0 {
			return false
		}
	}
	return true
}

package rag

import (
	"log/slog"

	"github.com/studydeck/studyrag/internal/chunk"
	"github.com/studydeck/studyrag/internal/embed"
	"github.com/studydeck/studyrag/internal/llm"
	"github.com/studydeck/studyrag/internal/pack"
	"github.com/studydeck/studyrag/internal/store"
	"github.com/studydeck/studyrag/internal/token"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithStore sets the vector store backend.
func WithStore(s store.VectorStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithEmbedder sets the embedding provider.
func WithEmbedder(em embed.Embedder) Option {
	return func(e *Engine) { e.embedder = em }
}

// WithSynthesizer sets the answer synthesizer. Without one, Answer
// degrades to the refusal sentinel.
func WithSynthesizer(s *llm.Synthesizer) Option {
	return func(e *Engine) { e.synth = s }
}

// WithTokenCodec sets the tokenizer shared by chunking and packing.
func WithTokenCodec(c token.Codec) Option {
	return func(e *Engine) { e.codec = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCollection sets the default collection name.
func WithCollection(name string) Option {
	return func(e *Engine) { e.defaults.collection = name }
}

// WithChunking sets the default chunk size and overlap in tokens.
func WithChunking(maxTokens, overlapTokens int) Option {
	return func(e *Engine) {
		e.defaults.maxTokens = maxTokens
		e.defaults.overlapTokens = overlapTokens
	}
}

// WithK sets the default retrieval depth.
func WithK(k int) Option {
	return func(e *Engine) { e.defaults.k = k }
}

// WithContextBudget sets the default token budget for packed context.
func WithContextBudget(tokens int) Option {
	return func(e *Engine) { e.defaults.contextBudget = tokens }
}

// callOptions carries per-call overrides of the engine defaults.
type callOptions struct {
	collection    string
	deckID        string
	maxTokens     int
	overlapTokens int
	k             int
	contextBudget int
	hybrid        bool
}

// CallOption overrides engine defaults for a single operation.
type CallOption func(*callOptions)

// InCollection targets a specific collection for this call.
func InCollection(name string) CallOption {
	return func(o *callOptions) { o.collection = name }
}

// WithDeck scopes the call to one deck: ingestion tags chunks with
// the deck id, retrieval filters on it.
func WithDeck(deckID string) CallOption {
	return func(o *callOptions) { o.deckID = deckID }
}

// ChunkSize overrides chunk size and overlap for one ingest call.
func ChunkSize(maxTokens, overlapTokens int) CallOption {
	return func(o *callOptions) {
		o.maxTokens = maxTokens
		o.overlapTokens = overlapTokens
	}
}

// K overrides the retrieval depth for one call.
func K(k int) CallOption {
	return func(o *callOptions) { o.k = k }
}

// Hybrid fuses vector and keyword retrieval for this call using
// Reciprocal Rank Fusion. Stores without a lexical index answer with
// plain vector retrieval.
func Hybrid() CallOption {
	return func(o *callOptions) { o.hybrid = true }
}

// ContextBudget overrides the packing token budget for one call.
func ContextBudget(tokens int) CallOption {
	return func(o *callOptions) { o.contextBudget = tokens }
}

// resolve merges engine defaults with per-call overrides.
func (e *Engine) resolve(opts []CallOption) callOptions {
	resolved := callOptions{
		collection:    e.defaults.collection,
		maxTokens:     e.defaults.maxTokens,
		overlapTokens: e.defaults.overlapTokens,
		k:             e.defaults.k,
		contextBudget: e.defaults.contextBudget,
	}
	for _, opt := range opts {
		opt(&resolved)
	}
	return resolved
}

// engineDefaults are the resolved construction-time settings.
type engineDefaults struct {
	collection    string
	maxTokens     int
	overlapTokens int
	k             int
	contextBudget int
}

func defaultEngineSettings() engineDefaults {
	return engineDefaults{
		collection:    DefaultCollection,
		maxTokens:     chunk.DefaultMaxTokens,
		overlapTokens: chunk.DefaultOverlapTokens,
		k:             DefaultK,
		contextBudget: pack.DefaultTokenBudget,
	}
}

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/studydeck/studyrag/internal/chunk"
	"github.com/studydeck/studyrag/internal/embed"
	ragerr "github.com/studydeck/studyrag/internal/errors"
	"github.com/studydeck/studyrag/internal/llm"
	"github.com/studydeck/studyrag/internal/pack"
	"github.com/studydeck/studyrag/internal/store"
	"github.com/studydeck/studyrag/internal/token"
)

// ingestWorkers bounds concurrent embedding batches during ingestion.
const ingestWorkers = 4

// Engine is the pipeline facade: ingestion, retrieval, and grounded
// answering over one vector store. The store is the only shared
// mutable state; retrieval is fully ranked before packing, and
// packing resolved before synthesis.
type Engine struct {
	store    store.VectorStore
	embedder embed.Embedder
	synth    *llm.Synthesizer
	codec    token.Codec
	splitter *chunk.Splitter
	logger   *slog.Logger
	defaults engineDefaults
}

// NewEngine builds an engine. A store and an embedder are required;
// everything else has defaults.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:   slog.Default(),
		defaults: defaultEngineSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		return nil, ragerr.New(ragerr.ErrCodeConfigInvalid, "engine requires a vector store", nil)
	}
	if e.embedder == nil {
		return nil, ragerr.New(ragerr.ErrCodeConfigInvalid, "engine requires an embedder", nil)
	}
	if e.codec == nil {
		e.codec = token.NewCodec(token.DefaultEncoding)
	}
	e.splitter = chunk.NewSplitter(e.codec)
	return e, nil
}

// newDeckID generates a short deck identifier for one ingest run.
func newDeckID() string {
	return "deck-" + uuid.NewString()[:8]
}

// Ingest chunks the documents, embeds the chunks, and indexes them
// under one deck id. Chunk identity is the content hash, so
// re-ingesting identical content overwrites instead of duplicating.
func (e *Engine) Ingest(ctx context.Context, docs []Document, opts ...CallOption) (*IngestStats, error) {
	resolved := e.resolve(opts)
	if resolved.deckID == "" {
		resolved.deckID = newDeckID()
	}

	stats := &IngestStats{DeckID: resolved.deckID, Documents: len(docs)}

	var chunks []chunk.Chunk
	for i, doc := range docs {
		source := doc.Source
		if source == "" {
			source = fmt.Sprintf("document-%d", i+1)
		}
		docChunks, err := e.splitter.Split(doc.Text, resolved.maxTokens, resolved.overlapTokens, source)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, docChunks...)
	}
	stats.Chunks = len(chunks)
	if len(chunks) == 0 {
		return stats, nil
	}

	vectors, err := e.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if err := e.store.EnsureCollection(ctx, resolved.collection, e.embedder.Dimensions(), store.MetricCosine); err != nil {
		return nil, err
	}

	ids := make([]string, len(chunks))
	payloads := make([]store.Payload, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		payloads[i] = store.Payload{
			Text:   c.Text,
			DeckID: resolved.deckID,
			Source: c.SourceRef,
		}
	}

	indexed, err := e.store.Upsert(ctx, resolved.collection, vectors, payloads, ids)
	if err != nil {
		return nil, err
	}
	stats.Indexed = len(indexed)

	e.logger.Info("ingest_complete",
		slog.String("deck_id", resolved.deckID),
		slog.String("collection", resolved.collection),
		slog.Int("documents", stats.Documents),
		slog.Int("chunks", stats.Chunks),
		slog.Int("indexed", stats.Indexed))
	return stats, nil
}

// embedChunks embeds all chunks, running batches concurrently while
// preserving chunk order.
func (e *Engine) embedChunks(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batchSize := embed.DefaultBatchSize
	batches := (len(texts) + batchSize - 1) / batchSize
	results := make([][][]float32, batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestWorkers)
	for b := 0; b < batches; b++ {
		b := b
		start := b * batchSize
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			vectors, err := e.embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			results[b] = vectors
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(texts))
	for _, batch := range results {
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// Query embeds the question and returns the ranked nearest chunks.
// A query that embeds to the zero vector falls back to lexical BM25
// search when the store supports it.
func (e *Engine) Query(ctx context.Context, text string, opts ...CallOption) ([]store.Hit, error) {
	resolved := e.resolve(opts)

	var filter *store.Filter
	if resolved.deckID != "" {
		f := store.DeckFilter(resolved.deckID)
		filter = &f
	}

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if embed.IsZero(vector) {
		if keyword, ok := e.store.(store.KeywordSearcher); ok {
			e.logger.Debug("query_keyword_fallback", slog.String("query", text))
			return keyword.SearchKeyword(ctx, resolved.collection, text, resolved.k, filter)
		}
		return []store.Hit{}, nil
	}

	if resolved.hybrid {
		if keyword, ok := e.store.(store.KeywordSearcher); ok {
			return e.queryHybrid(ctx, keyword, text, vector, resolved, filter)
		}
	}

	return e.store.Search(ctx, resolved.collection, vector, resolved.k, filter)
}

// queryHybrid runs vector and keyword retrieval for the same query
// and fuses the two ranked lists. A keyword-side failure degrades to
// the vector results alone.
func (e *Engine) queryHybrid(ctx context.Context, keyword store.KeywordSearcher, text string, vector []float32, resolved callOptions, filter *store.Filter) ([]store.Hit, error) {
	vecHits, err := e.store.Search(ctx, resolved.collection, vector, resolved.k, filter)
	if err != nil {
		return nil, err
	}
	kwHits, err := keyword.SearchKeyword(ctx, resolved.collection, text, resolved.k, filter)
	if err != nil {
		e.logger.Warn("hybrid_keyword_failed", slog.String("error", err.Error()))
		return vecHits, nil
	}
	return fuseHits(vecHits, kwHits, resolved.k), nil
}

// Answer retrieves context for the question, packs it under the token
// budget, and synthesizes a grounded answer. Sources list the packed
// chunks in citation order; an empty bundle or missing synthesizer
// yields the refusal sentinel.
func (e *Engine) Answer(ctx context.Context, question string, opts ...CallOption) (*AnswerResult, error) {
	resolved := e.resolve(opts)

	hits, err := e.Query(ctx, question, opts...)
	if err != nil {
		return nil, err
	}

	candidates := make([]pack.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = pack.Candidate{
			ID:     h.ID,
			Text:   h.Payload.Text,
			Score:  h.Score,
			Source: h.Payload.Source,
		}
	}
	bundle := pack.Pack(candidates, resolved.contextBudget, e.codec)

	result := &AnswerResult{Sources: make([]Source, len(bundle.Items))}
	contexts := make([]string, len(bundle.Items))
	for i, item := range bundle.Items {
		contexts[i] = item.Text
		result.Sources[i] = Source{
			Index:  i + 1,
			ID:     item.ID,
			Score:  item.Score,
			Text:   item.Text,
			Origin: item.Source,
		}
	}

	if e.synth == nil {
		result.Answer = llm.Unknown
		return result, nil
	}
	result.Answer = e.synth.Answer(ctx, strings.TrimSpace(question), contexts)
	return result, nil
}

// Sources lists every stored chunk of a deck.
func (e *Engine) Sources(ctx context.Context, deckID string, opts ...CallOption) (*SourcesResult, error) {
	resolved := e.resolve(opts)

	filter := store.DeckFilter(deckID)
	scrolled, err := e.store.Scroll(ctx, resolved.collection, &filter, store.DefaultScrollPageSize)
	if err != nil {
		return nil, err
	}

	result := &SourcesResult{
		Entries: make([]DeckEntry, len(scrolled.Entries)),
		Skipped: scrolled.Skipped,
	}
	for i, entry := range scrolled.Entries {
		result.Entries[i] = entryToDeckEntry(entry)
	}
	return result, nil
}

// Store exposes the underlying vector store for diagnostics.
func (e *Engine) Store() store.VectorStore {
	return e.store
}

// EmbedderModel reports the active embedding model name.
func (e *Engine) EmbedderModel() string {
	return e.embedder.ModelName()
}

// Health verifies the vector store is reachable.
func (e *Engine) Health(ctx context.Context) error {
	return e.store.Health(ctx)
}

// Close releases the embedder and the store.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.embedder.Close(); err != nil {
		firstErr = err
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

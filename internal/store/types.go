// Package store persists embedding vectors with metadata payloads and
// serves filtered similarity search over them.
//
// Two backends implement VectorStore: LocalStore (in-process HNSW
// graphs with SQLite persistence) and QdrantStore (remote vector
// database over REST). Entries live in named collections; all vectors
// in a collection share one dimension and distance metric.
package store

import (
	"context"
	"fmt"

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

// Metric is a vector distance metric.
type Metric string

const (
	// MetricCosine scores by cosine similarity (1.0 = identical).
	MetricCosine Metric = "cosine"
	// MetricL2 scores by inverted euclidean distance.
	MetricL2 Metric = "l2"
)

// DefaultScrollPageSize is the page size Scroll uses when the caller
// passes 0.
const DefaultScrollPageSize = 256

// Payload is the metadata stored alongside a vector. Updates are full
// replacements keyed by id; payloads are never partially updated.
type Payload struct {
	// Text is the chunk content this vector was computed from.
	Text string `json:"text"`

	// DeckID tags the ingestion run (deck) the entry belongs to.
	DeckID string `json:"deck_id,omitempty"`

	// Source identifies the originating document.
	Source string `json:"source,omitempty"`

	// Extra holds free-form tags.
	Extra map[string]string `json:"extra,omitempty"`
}

// Field returns the named payload field, looking at the well-known
// fields first and Extra second.
func (p Payload) Field(name string) string {
	switch name {
	case "deck_id":
		return p.DeckID
	case "source":
		return p.Source
	case "text":
		return p.Text
	}
	return p.Extra[name]
}

// Filter restricts search and scroll to entries whose payload field
// equals Value. A nil *Filter matches everything.
type Filter struct {
	Field string
	Value string
}

// Matches reports whether the payload satisfies the filter.
func (f *Filter) Matches(p Payload) bool {
	if f == nil {
		return true
	}
	return p.Field(f.Field) == f.Value
}

// DeckFilter builds the equality filter for one deck.
func DeckFilter(deckID string) Filter {
	return Filter{Field: "deck_id", Value: deckID}
}

// Hit is a ranked search result.
type Hit struct {
	ID      string
	Score   float64
	Payload Payload
}

// Entry is an unranked stored record, as returned by Scroll.
type Entry struct {
	ID      string
	Payload Payload
}

// ScrollResult carries the complete scroll result set plus the count
// of records skipped because their stored payload was malformed.
type ScrollResult struct {
	Entries []Entry
	Skipped int
}

// VectorStore persists vectors with payloads, partitioned into named
// collections.
//
// Implementations must be safe for concurrent use. Concurrent search
// and upsert may be eventually consistent but must never corrupt
// existing entries.
type VectorStore interface {
	// EnsureCollection creates the collection if absent and verifies
	// dimension and metric if present. A dimension conflict with an
	// existing collection is a hard error, never a silent truncation.
	EnsureCollection(ctx context.Context, name string, dim int, metric Metric) error

	// Upsert stores vectors with payloads. vectors and payloads must
	// have equal length. Missing ids are generated; an existing id is
	// fully overwritten. Either all given vectors are stored or the
	// error reports why none were.
	Upsert(ctx context.Context, collection string, vectors [][]float32, payloads []Payload, ids []string) ([]string, error)

	// Search returns up to limit entries ranked by descending score.
	// Ties are broken by ascending insertion order. Searching a
	// missing or empty collection returns an empty list, not an error.
	Search(ctx context.Context, collection string, query []float32, limit int, filter *Filter) ([]Hit, error)

	// Scroll returns every entry matching the filter, paginating
	// internally with the given page size (0 = default). Order is
	// unspecified. Malformed records are skipped and counted.
	Scroll(ctx context.Context, collection string, filter *Filter, pageSize int) (*ScrollResult, error)

	// Health verifies the backing storage is reachable.
	Health(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// KeywordSearcher is the optional lexical-search capability. LocalStore
// implements it; it backs retrieval when a query embeds to the zero
// vector.
type KeywordSearcher interface {
	SearchKeyword(ctx context.Context, collection string, query string, limit int, filter *Filter) ([]Hit, error)
}

// dimensionMismatch builds the typed error for a collection dimension
// conflict.
func dimensionMismatch(collection string, want, got int) *ragerr.RagError {
	return ragerr.New(ragerr.ErrCodeDimensionMismatch,
		fmt.Sprintf("collection %q expects dimension %d, got %d", collection, want, got), nil).
		WithDetail("collection", collection).
		WithSuggestion("re-ingest the collection with the current embedding model or use a new collection")
}

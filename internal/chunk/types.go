// Package chunk splits raw text into overlapping, bounded-size segments
// suitable for embedding and retrieval.
package chunk

// Chunk size defaults. Token sizes match the upstream study-material
// corpus; character sizes are the no-tokenizer equivalents.
const (
	DefaultMaxTokens     = 700 // Maximum tokens per chunk
	DefaultOverlapTokens = 100 // Overlap between consecutive chunks

	DefaultMaxChars     = 1200 // Character-mode chunk size
	DefaultOverlapChars = 150  // Character-mode overlap

	// MinChunkLen is the minimum trimmed length of a retrievable chunk.
	// Anything shorter carries no signal and is dropped.
	MinChunkLen = 10
)

// Chunk is a bounded, possibly overlapping segment of source text used
// as the unit of retrieval.
type Chunk struct {
	// ID is a stable content hash of the trimmed text. Identical
	// content collapses to the same ID across runs, which makes
	// re-ingestion idempotent.
	ID string

	// Text is the chunk content, whitespace-trimmed.
	Text string

	// TokenCount is the (possibly approximate) token cost of Text.
	TokenCount int

	// SourceRef identifies where the chunk came from (document id,
	// file name, upload title). May be empty.
	SourceRef string
}

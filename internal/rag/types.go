// Package rag wires chunking, embedding, vector storage, context
// packing and answer synthesis into one ingestion and retrieval
// pipeline.
package rag

import (
	"github.com/studydeck/studyrag/internal/store"
)

// Pipeline defaults.
const (
	DefaultCollection = "studyrag"
	DefaultK          = 5
)

// Document is one unit of ingested content. Source is a display name
// (file name, URL) carried through to retrieval results.
type Document struct {
	Source string
	Text   string
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	DeckID    string
	Documents int
	Chunks    int
	Indexed   int
}

// Source pairs a bracket citation index with the chunk behind it.
type Source struct {
	Index  int
	ID     string
	Score  float64
	Text   string
	Origin string
}

// AnswerResult is a synthesized answer plus the context it was
// grounded on, in citation order.
type AnswerResult struct {
	Answer  string
	Sources []Source
}

// DeckEntry is one stored chunk of a deck, as returned by Sources.
type DeckEntry struct {
	ID     string
	Text   string
	Origin string
}

// SourcesResult lists a deck's stored chunks. Skipped counts records
// that could not be decoded and were left out.
type SourcesResult struct {
	Entries []DeckEntry
	Skipped int
}

// entryToDeckEntry converts a store entry.
func entryToDeckEntry(e store.Entry) DeckEntry {
	return DeckEntry{ID: e.ID, Text: e.Payload.Text, Origin: e.Payload.Source}
}

package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/coder/hnsw"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

// LocalStore is the embedded vector store: HNSW graphs in memory for
// similarity search, SQLite as the durable source of truth for
// vectors and payloads. Graphs are rebuilt from SQLite on first use
// after a restart.
//
// A file lock guards the store directory so two processes cannot
// write the same database concurrently.
type LocalStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dir    string
	lock   *flock.Flock
	graphs map[string]*colGraph
	logger *slog.Logger
	closed bool
}

// colGraph holds the in-memory ANN state of one collection.
type colGraph struct {
	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64 // entry id -> graph key
	keyMap  map[uint64]string // graph key -> entry id
	seqMap  map[string]int64  // entry id -> insertion sequence
	nextKey uint64
	nextSeq int64
	dim     int
	metric  Metric
}

// Verify interface implementations at compile time
var (
	_ VectorStore     = (*LocalStore)(nil)
	_ KeywordSearcher = (*LocalStore)(nil)
)

// NewLocal opens (or creates) a local store in dir. Pass an empty dir
// for an in-memory store (tests).
func NewLocal(dir string) (*LocalStore, error) {
	var (
		dsn     string
		dirLock *flock.Flock
	)

	if dir == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ragerr.New(ragerr.ErrCodeStoreOpen,
				fmt.Sprintf("cannot create store directory %s", dir), err)
		}
		dirLock = flock.New(filepath.Join(dir, ".studyrag.lock"))
		held, err := dirLock.TryLock()
		if err != nil {
			return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "cannot acquire store lock", err)
		}
		if !held {
			return nil, ragerr.New(ragerr.ErrCodeStoreOpen,
				fmt.Sprintf("store at %s is locked by another process", dir), nil).
				WithSuggestion("stop the other studyrag process or use a different --store path")
		}
		dsn = filepath.Join(dir, "store.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		if dirLock != nil {
			_ = dirLock.Unlock()
		}
		return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "cannot open store database", err)
	}

	// Single writer prevents lock contention with the modernc driver.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			if dirLock != nil {
				_ = dirLock.Unlock()
			}
			return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "cannot configure store database", err)
		}
	}

	s := &LocalStore{
		db:     db,
		dir:    dir,
		lock:   dirLock,
		graphs: make(map[string]*colGraph),
		logger: slog.Default(),
	}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name   TEXT PRIMARY KEY,
		dim    INTEGER NOT NULL,
		metric TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		seq        INTEGER NOT NULL,
		vector     BLOB NOT NULL,
		text       TEXT NOT NULL,
		deck_id    TEXT NOT NULL DEFAULT '',
		source     TEXT NOT NULL DEFAULT '',
		extra      TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_entries_seq ON entries(collection, seq);

	-- Lexical fallback index for queries that embed to the zero vector
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_entries USING fts5(
		collection UNINDEXED,
		id UNINDEXED,
		content,
		tokenize='unicode61'
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return ragerr.New(ragerr.ErrCodeStoreOpen, "cannot initialize store schema", err)
	}
	return nil
}

// EnsureCollection creates the collection if absent; verifies dimension
// and metric if present. Idempotent.
func (s *LocalStore) EnsureCollection(ctx context.Context, name string, dim int, metric Metric) error {
	if name == "" {
		return ragerr.New(ragerr.ErrCodeInvalidInput, "collection name must not be empty", nil)
	}
	if dim <= 0 {
		return ragerr.New(ragerr.ErrCodeInvalidInput,
			fmt.Sprintf("collection dimension must be positive, got %d", dim), nil)
	}
	if metric == "" {
		metric = MetricCosine
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ragerr.New(ragerr.ErrCodeStoreOpen, "store is closed", nil)
	}

	var (
		haveDim    int
		haveMetric string
	)
	err := s.db.QueryRowContext(ctx, `SELECT dim, metric FROM collections WHERE name = ?`, name).
		Scan(&haveDim, &haveMetric)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO collections (name, dim, metric) VALUES (?, ?, ?)`, name, dim, string(metric)); err != nil {
			return ragerr.New(ragerr.ErrCodeStoreOpen, "cannot create collection", err)
		}
		return nil
	case err != nil:
		return ragerr.New(ragerr.ErrCodeStoreOpen, "cannot read collection", err)
	}

	if haveDim != dim {
		return dimensionMismatch(name, haveDim, dim)
	}
	if haveMetric != string(metric) {
		return ragerr.New(ragerr.ErrCodeCollectionExists,
			fmt.Sprintf("collection %q uses metric %s, requested %s", name, haveMetric, metric), nil)
	}
	return nil
}

// collectionMeta returns (dim, metric, found).
func (s *LocalStore) collectionMeta(ctx context.Context, name string) (int, Metric, bool, error) {
	var (
		dim    int
		metric string
	)
	err := s.db.QueryRowContext(ctx, `SELECT dim, metric FROM collections WHERE name = ?`, name).
		Scan(&dim, &metric)
	if err == sql.ErrNoRows {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, ragerr.New(ragerr.ErrCodeStoreOpen, "cannot read collection", err)
	}
	return dim, Metric(metric), true, nil
}

// Upsert stores all vectors in one transaction: either every entry is
// written or the store is left untouched. The collection is created
// lazily from the first vector's dimension if it does not exist.
func (s *LocalStore) Upsert(ctx context.Context, collection string, vectors [][]float32, payloads []Payload, ids []string) ([]string, error) {
	if len(vectors) != len(payloads) {
		return nil, ragerr.New(ragerr.ErrCodeInvalidInput,
			fmt.Sprintf("vectors and payloads length mismatch: %d vs %d", len(vectors), len(payloads)), nil)
	}
	if ids != nil && len(ids) != len(vectors) {
		return nil, ragerr.New(ragerr.ErrCodeInvalidInput,
			fmt.Sprintf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}
	if len(vectors) == 0 {
		return []string{}, nil
	}

	if err := s.EnsureCollection(ctx, collection, len(vectors[0]), MetricCosine); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "store is closed", nil)
	}

	cg, err := s.loadGraphLocked(ctx, collection)
	if err != nil {
		return nil, err
	}

	for _, v := range vectors {
		if len(v) != cg.dim {
			return nil, dimensionMismatch(collection, cg.dim, len(v))
		}
	}

	if ids == nil {
		ids = make([]string, len(vectors))
		for i := range ids {
			ids[i] = uuid.NewString()
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeUpsertFailed, "cannot begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Stage new seqs locally; cg.nextSeq only advances once the
	// transaction commits, so a failed batch leaves no gaps.
	seqs := make([]int64, len(ids))
	staged := make(map[string]int64, len(ids))
	nextSeq := cg.nextSeq
	for i, id := range ids {
		seq, known := cg.seqMap[id]
		if !known {
			if prev, ok := staged[id]; ok {
				seq = prev
			} else {
				nextSeq++
				seq = nextSeq
				staged[id] = seq
			}
		}
		seqs[i] = seq

		extra, err := json.Marshal(payloads[i].Extra)
		if err != nil {
			return nil, ragerr.New(ragerr.ErrCodeUpsertFailed, "cannot encode payload tags", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entries (collection, id, seq, vector, text, deck_id, source, extra)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET
				vector = excluded.vector,
				text = excluded.text,
				deck_id = excluded.deck_id,
				source = excluded.source,
				extra = excluded.extra`,
			collection, id, seq, encodeVector(vectors[i]),
			payloads[i].Text, payloads[i].DeckID, payloads[i].Source, string(extra)); err != nil {
			return nil, ragerr.New(ragerr.ErrCodeUpsertFailed, "cannot write entry", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM fts_entries WHERE collection = ? AND id = ?`, collection, id); err != nil {
			return nil, ragerr.New(ragerr.ErrCodeUpsertFailed, "cannot refresh keyword index", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fts_entries (collection, id, content) VALUES (?, ?, ?)`,
			collection, id, payloads[i].Text); err != nil {
			return nil, ragerr.New(ragerr.ErrCodeUpsertFailed, "cannot write keyword index", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, ragerr.New(ragerr.ErrCodeUpsertFailed, "cannot commit upsert", err)
	}

	// Database committed; now reflect the batch in the in-memory graph.
	cg.nextSeq = nextSeq
	for i, id := range ids {
		cg.insert(id, seqs[i], vectors[i])
	}

	return ids, nil
}

// insert adds (or replaces) one vector in the graph. Replacement uses
// lazy deletion: the old graph node is orphaned, not removed, which
// sidesteps delete-the-last-node issues in the HNSW implementation.
func (cg *colGraph) insert(id string, seq int64, vector []float32) {
	if oldKey, exists := cg.idMap[id]; exists {
		delete(cg.keyMap, oldKey)
		delete(cg.idMap, id)
	}

	key := cg.nextKey
	cg.nextKey++

	vec := make([]float32, len(vector))
	copy(vec, vector)
	if cg.metric == MetricCosine {
		normalizeInPlace(vec)
	}
	cg.graph.Add(hnsw.MakeNode(key, vec))

	cg.idMap[id] = key
	cg.keyMap[key] = id
	cg.seqMap[id] = seq
	if seq > cg.nextSeq {
		cg.nextSeq = seq
	}
}

// loadGraphLocked returns the collection's graph, building it from
// SQLite on first access. Caller holds s.mu.
func (s *LocalStore) loadGraphLocked(ctx context.Context, collection string) (*colGraph, error) {
	if cg, ok := s.graphs[collection]; ok {
		return cg, nil
	}

	dim, metric, found, err := s.collectionMeta(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ragerr.New(ragerr.ErrCodeInvalidInput,
			fmt.Sprintf("collection %q does not exist", collection), nil)
	}

	cg := newColGraph(dim, metric)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seq, vector FROM entries WHERE collection = ? ORDER BY seq`, collection)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "cannot load collection vectors", err)
	}
	defer func() { _ = rows.Close() }()

	skipped := 0
	for rows.Next() {
		var (
			id   string
			seq  int64
			blob []byte
		)
		if err := rows.Scan(&id, &seq, &blob); err != nil {
			return nil, ragerr.New(ragerr.ErrCodeStoreCorrupt, "cannot scan entry", err)
		}
		vec, ok := decodeVector(blob, dim)
		if !ok {
			skipped++
			continue
		}
		cg.insert(id, seq, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, ragerr.New(ragerr.ErrCodeStoreCorrupt, "cannot iterate entries", err)
	}
	if skipped > 0 {
		s.logger.Warn("store_load_skipped_records",
			slog.String("collection", collection), slog.Int("skipped", skipped))
	}

	s.graphs[collection] = cg
	return cg, nil
}

func newColGraph(dim int, metric Metric) *colGraph {
	graph := hnsw.NewGraph[uint64]()
	switch metric {
	case MetricL2:
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = 16
	graph.EfSearch = 64
	graph.Ml = 0.25

	return &colGraph{
		graph:  graph,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		seqMap: make(map[string]int64),
		dim:    dim,
		metric: metric,
	}
}

// Search runs ANN search over the collection. With a filter the whole
// collection is considered so filtered results are exact, not an
// approximation over the top-k of the unfiltered ranking.
func (s *LocalStore) Search(ctx context.Context, collection string, query []float32, limit int, filter *Filter) ([]Hit, error) {
	if limit <= 0 {
		return []Hit{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "store is closed", nil)
	}

	_, _, found, err := s.collectionMeta(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !found {
		// Searching a collection nobody wrote to yet is not an error.
		return []Hit{}, nil
	}

	cg, err := s.loadGraphLocked(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(query) != cg.dim {
		return nil, dimensionMismatch(collection, cg.dim, len(query))
	}
	if len(cg.idMap) == 0 {
		return []Hit{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	if cg.metric == MetricCosine {
		normalizeInPlace(q)
	}

	// Orphans from lazy deletion still occupy graph slots; pad k so
	// they cannot shadow live entries.
	orphans := cg.graph.Len() - len(cg.idMap)
	k := limit + orphans
	if filter != nil {
		k = cg.graph.Len()
	}

	nodes := cg.graph.Search(q, k)

	type scored struct {
		id    string
		seq   int64
		score float64
	}
	candidates := make([]scored, 0, len(nodes))
	for _, node := range nodes {
		id, live := cg.keyMap[node.Key]
		if !live {
			continue // orphaned by a replacement
		}
		distance := cg.graph.Distance(q, node.Value)
		candidates = append(candidates, scored{
			id:    id,
			seq:   cg.seqMap[id],
			score: distanceToScore(distance, cg.metric),
		})
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	payloads, skipped, err := s.fetchPayloads(ctx, collection, ids)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warn("search_skipped_records",
			slog.String("collection", collection), slog.Int("skipped", skipped))
	}

	hits := make([]Hit, 0, limit)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seq < candidates[j].seq
	})
	for _, c := range candidates {
		payload, ok := payloads[c.id]
		if !ok {
			continue // malformed record, already counted
		}
		if !filter.Matches(payload) {
			continue
		}
		hits = append(hits, Hit{ID: c.id, Score: c.score, Payload: payload})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// fetchPayloads loads payloads for the given ids, skipping and
// counting malformed records.
// payloadFetchBatch caps ids per IN clause, well under SQLite's
// bound-variable limit.
const payloadFetchBatch = 500

func (s *LocalStore) fetchPayloads(ctx context.Context, collection string, ids []string) (map[string]Payload, int, error) {
	out := make(map[string]Payload, len(ids))
	skipped := 0
	for start := 0; start < len(ids); start += payloadFetchBatch {
		end := start + payloadFetchBatch
		if end > len(ids) {
			end = len(ids)
		}
		n, err := s.fetchPayloadBatch(ctx, collection, ids[start:end], out)
		if err != nil {
			return nil, 0, err
		}
		skipped += n
	}
	return out, skipped, nil
}

// fetchPayloadBatch loads one IN-clause page into out, returning the
// skipped count.
func (s *LocalStore) fetchPayloadBatch(ctx context.Context, collection string, ids []string, out map[string]Payload) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, deck_id, source, extra FROM entries
		 WHERE collection = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, ragerr.New(ragerr.ErrCodeSearchFailed, "cannot load payloads", err)
	}
	defer func() { _ = rows.Close() }()

	skipped := 0
	for rows.Next() {
		var (
			id, text, deckID, source, extra string
		)
		if err := rows.Scan(&id, &text, &deckID, &source, &extra); err != nil {
			skipped++
			continue
		}
		payload := Payload{Text: text, DeckID: deckID, Source: source}
		if extra != "" && extra != "{}" {
			if err := json.Unmarshal([]byte(extra), &payload.Extra); err != nil {
				skipped++
				continue
			}
		}
		out[id] = payload
	}
	if err := rows.Err(); err != nil {
		return 0, ragerr.New(ragerr.ErrCodeSearchFailed, "cannot iterate payloads", err)
	}
	return skipped, nil
}

// Scroll pages through every entry of the collection, applying the
// filter in memory. The complete matching set is returned regardless
// of store size.
func (s *LocalStore) Scroll(ctx context.Context, collection string, filter *Filter, pageSize int) (*ScrollResult, error) {
	if pageSize <= 0 {
		pageSize = DefaultScrollPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "store is closed", nil)
	}

	result := &ScrollResult{}
	lastSeq := int64(-1)
	for {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, seq, text, deck_id, source, extra FROM entries
			 WHERE collection = ? AND seq > ? ORDER BY seq LIMIT ?`,
			collection, lastSeq, pageSize)
		if err != nil {
			return nil, ragerr.New(ragerr.ErrCodeSearchFailed, "cannot scroll entries", err)
		}

		fetched := 0
		for rows.Next() {
			var (
				id, text, deckID, source, extra string
				seq                             int64
			)
			if err := rows.Scan(&id, &seq, &text, &deckID, &source, &extra); err != nil {
				result.Skipped++
				continue
			}
			fetched++
			lastSeq = seq

			payload := Payload{Text: text, DeckID: deckID, Source: source}
			if extra != "" && extra != "{}" {
				if err := json.Unmarshal([]byte(extra), &payload.Extra); err != nil {
					result.Skipped++
					continue
				}
			}
			if filter.Matches(payload) {
				result.Entries = append(result.Entries, Entry{ID: id, Payload: payload})
			}
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, ragerr.New(ragerr.ErrCodeSearchFailed, "cannot iterate scroll page", err)
		}

		if fetched < pageSize {
			break
		}
	}

	if result.Skipped > 0 {
		s.logger.Warn("scroll_skipped_records",
			slog.String("collection", collection), slog.Int("skipped", result.Skipped))
	}
	return result, nil
}

// SearchKeyword runs a BM25 match over the lexical index. Scores are
// BM25 weights (higher is better), not cosine similarities.
func (s *LocalStore) SearchKeyword(ctx context.Context, collection string, query string, limit int, filter *Filter) ([]Hit, error) {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return []Hit{}, nil
	}

	terms := lexicalTerms(query)
	if len(terms) == 0 {
		return []Hit{}, nil
	}
	// OR semantics: question-style queries rarely match every term.
	match := strings.Join(terms, " OR ")

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "store is closed", nil)
	}

	fetch := limit
	if filter != nil {
		fetch = limit * 8
	}

	// bm25() is negative, lower = better; ORDER BY puts best first.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bm25(fts_entries) AS rank
		FROM fts_entries
		WHERE fts_entries MATCH ? AND collection = ?
		ORDER BY rank LIMIT ?`, match, collection, fetch)
	if err != nil {
		// FTS5 rejects some exotic query strings; treat as no results.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return []Hit{}, nil
		}
		return nil, ragerr.New(ragerr.ErrCodeSearchFailed, "keyword search failed", err)
	}

	type ranked struct {
		id   string
		rank float64
	}
	var matches []ranked
	for rows.Next() {
		var r ranked
		if err := rows.Scan(&r.id, &r.rank); err != nil {
			continue
		}
		matches = append(matches, r)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeSearchFailed, "cannot iterate keyword matches", err)
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	payloads, skipped, err := s.fetchPayloads(ctx, collection, ids)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warn("keyword_search_skipped_records",
			slog.String("collection", collection), slog.Int("skipped", skipped))
	}

	hits := make([]Hit, 0, limit)
	for _, m := range matches {
		payload, ok := payloads[m.id]
		if !ok {
			continue
		}
		if !filter.Matches(payload) {
			continue
		}
		hits = append(hits, Hit{ID: m.id, Score: -m.rank, Payload: payload})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// Count returns the number of entries in the collection.
func (s *LocalStore) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ragerr.New(ragerr.ErrCodeStoreOpen, "store is closed", nil)
	}

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, ragerr.New(ragerr.ErrCodeStoreOpen, "cannot count entries", err)
	}
	return n, nil
}

// Collections lists known collection names.
func (s *LocalStore) Collections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "cannot list collections", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, ragerr.New(ragerr.ErrCodeStoreOpen, "cannot scan collection name", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Health verifies the database answers queries.
func (s *LocalStore) Health(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ragerr.New(ragerr.ErrCodeStoreOpen, "store is closed", nil)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return ragerr.New(ragerr.ErrCodeStoreOpen, "store database unreachable", err)
	}
	return nil
}

// Close closes the database and releases the directory lock.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.db.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// lexicalTerms lowercases and extracts alphanumeric terms for FTS
// matching, dropping single-character noise.
func lexicalTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			terms = append(terms, `"`+f+`"`)
		}
	}
	return terms
}

// distanceToScore converts a graph distance into a ranking score.
// For cosine the score is the actual cosine similarity (1.0 maximum).
func distanceToScore(distance float32, metric Metric) float64 {
	switch metric {
	case MetricL2:
		return 1.0 / (1.0 + float64(distance))
	default:
		return 1.0 - float64(distance)
	}
}

// normalizeInPlace scales v to unit length, leaving the zero vector
// untouched.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return
	}
	for i, val := range v {
		v[i] = float32(float64(val) / magnitude)
	}
}

// encodeVector serializes a vector as little-endian float32 bits.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, val := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(val))
	}
	return buf
}

// decodeVector deserializes a vector, reporting malformed blobs.
func decodeVector(buf []byte, dim int) ([]float32, bool) {
	if len(buf) != 4*dim {
		return nil, false
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, true
}

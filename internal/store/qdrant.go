package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

// DefaultQdrantTimeout bounds each HTTP round trip to Qdrant.
const DefaultQdrantTimeout = 30 * time.Second

// QdrantConfig configures the remote vector store client.
type QdrantConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// QdrantStore talks to a Qdrant server over its REST API.
//
// Qdrant only accepts UUIDs or unsigned integers as point ids, so
// caller-supplied string ids are mapped to deterministic SHA1 UUIDs
// and the original id travels in the payload.
type QdrantStore struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

var _ VectorStore = (*QdrantStore)(nil)

// NewQdrant creates a Qdrant-backed store client.
func NewQdrant(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.BaseURL == "" {
		return nil, ragerr.New(ragerr.ErrCodeConfigInvalid, "qdrant base URL must not be empty", nil).
			WithSuggestion("set store.url in the config file or STUDYRAG_STORE_URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultQdrantTimeout
	}
	return &QdrantStore{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// pointID maps an arbitrary string id onto a UUID Qdrant will accept.
// The mapping is deterministic so re-ingesting the same content
// overwrites rather than duplicates.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (s *QdrantStore) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return ragerr.New(ragerr.ErrCodeInternal, "cannot encode qdrant request", err)
		}
		reader = bytes.NewReader(encoded)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, s.baseURL+path, reader)
	if err != nil {
		return ragerr.New(ragerr.ErrCodeInternal, "cannot build qdrant request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return ragerr.New(ragerr.ErrCodeServiceTimeout,
				fmt.Sprintf("qdrant request timed out after %s", s.timeout), err)
		}
		return ragerr.New(ragerr.ErrCodeServiceUnavailable, "qdrant unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ragerr.New(ragerr.ErrCodeServiceUnavailable, "cannot read qdrant response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ragerr.New(ragerr.ErrCodeInvalidInput,
			fmt.Sprintf("qdrant resource not found: %s", path), nil)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return ragerr.New(ragerr.ErrCodeServiceUnavailable,
			fmt.Sprintf("qdrant returned status %d", resp.StatusCode), nil).
			WithDetail("body", truncateBody(data))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return ragerr.New(ragerr.ErrCodeServiceRejected,
			fmt.Sprintf("qdrant rejected request with status %d", resp.StatusCode), nil).
			WithDetail("body", truncateBody(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return ragerr.New(ragerr.ErrCodeServiceRejected, "cannot decode qdrant response", err)
		}
	}
	return nil
}

func truncateBody(data []byte) string {
	const limit = 512
	if len(data) > limit {
		data = data[:limit]
	}
	return string(data)
}

func qdrantDistance(metric Metric) string {
	if metric == MetricL2 {
		return "Euclid"
	}
	return "Cosine"
}

// EnsureCollection creates the collection if absent and verifies its
// vector size if present.
func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, dim int, metric Metric) error {
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodGet, "/collections/"+name, nil, &info)
	if err == nil {
		if info.Result.Config.Params.Vectors.Size != dim {
			return dimensionMismatch(name, info.Result.Config.Params.Vectors.Size, dim)
		}
		return nil
	}
	if ragerr.CodeOf(err) != ragerr.ErrCodeInvalidInput {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": qdrantDistance(metric),
		},
	}
	return s.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
}

// Upsert writes all points in one request with wait=true so the write
// is visible to the next search.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, vectors [][]float32, payloads []Payload, ids []string) ([]string, error) {
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

	if ids == nil {
		ids = make([]string, len(vectors))
		for i := range ids {
			ids[i] = uuid.NewString()
		}
	}

	points := make([]map[string]any, len(vectors))
	for i := range vectors {
		points[i] = map[string]any{
			"id":      pointID(ids[i]),
			"vector":  vectors[i],
			"payload": encodeQdrantPayload(ids[i], payloads[i]),
		}
	}

	err := s.do(ctx, http.MethodPut,
		"/collections/"+collection+"/points?wait=true",
		map[string]any{"points": points}, nil)
	if err != nil {
		if ragerr.IsRetryable(err) {
			return nil, err
		}
		return nil, ragerr.New(ragerr.ErrCodeUpsertFailed, "qdrant upsert failed", err)
	}
	return ids, nil
}

func encodeQdrantPayload(id string, p Payload) map[string]any {
	payload := map[string]any{
		"chunk_id": id,
		"text":     p.Text,
		"deck_id":  p.DeckID,
		"source":   p.Source,
	}
	for k, v := range p.Extra {
		if _, taken := payload[k]; !taken {
			payload[k] = v
		}
	}
	return payload
}

func decodeQdrantPayload(raw map[string]any) (string, Payload, bool) {
	text, ok := raw["text"].(string)
	if !ok {
		return "", Payload{}, false
	}
	payload := Payload{Text: text}
	if deckID, ok := raw["deck_id"].(string); ok {
		payload.DeckID = deckID
	}
	if source, ok := raw["source"].(string); ok {
		payload.Source = source
	}
	for k, v := range raw {
		switch k {
		case "chunk_id", "text", "deck_id", "source":
			continue
		}
		if sv, ok := v.(string); ok {
			if payload.Extra == nil {
				payload.Extra = make(map[string]string)
			}
			payload.Extra[k] = sv
		}
	}
	id, _ := raw["chunk_id"].(string)
	return id, payload, true
}

func qdrantFilter(filter *Filter) map[string]any {
	if filter == nil {
		return nil
	}
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   filter.Field,
				"match": map[string]any{"value": filter.Value},
			},
		},
	}
}

// Search runs a similarity query; Qdrant applies the payload filter
// server-side.
func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, limit int, filter *Filter) ([]Hit, error) {
	if limit <= 0 {
		return []Hit{}, nil
	}

	body := map[string]any{
		"vector":       query,
		"limit":        limit,
		"with_payload": true,
	}
	if f := qdrantFilter(filter); f != nil {
		body["filter"] = f
	}

	var out struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body, &out)
	if err != nil {
		// A collection nobody wrote to yet is not an error.
		if ragerr.CodeOf(err) == ragerr.ErrCodeInvalidInput {
			return []Hit{}, nil
		}
		if ragerr.IsRetryable(err) {
			return nil, err
		}
		return nil, ragerr.New(ragerr.ErrCodeSearchFailed, "qdrant search failed", err)
	}

	hits := make([]Hit, 0, len(out.Result))
	for _, r := range out.Result {
		id, payload, ok := decodeQdrantPayload(r.Payload)
		if !ok {
			continue
		}
		if id == "" {
			id = fmt.Sprint(r.ID)
		}
		hits = append(hits, Hit{ID: id, Score: r.Score, Payload: payload})
	}
	return hits, nil
}

// Scroll pages through the collection with Qdrant's cursor, returning
// the complete matching set. Points with malformed payloads are
// skipped and counted.
func (s *QdrantStore) Scroll(ctx context.Context, collection string, filter *Filter, pageSize int) (*ScrollResult, error) {
	if pageSize <= 0 {
		pageSize = DefaultScrollPageSize
	}

	result := &ScrollResult{}
	var offset any
	for {
		body := map[string]any{
			"limit":        pageSize,
			"with_payload": true,
		}
		if f := qdrantFilter(filter); f != nil {
			body["filter"] = f
		}
		if offset != nil {
			body["offset"] = offset
		}

		var out struct {
			Result struct {
				Points []struct {
					ID      any            `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", body, &out)
		if err != nil {
			if ragerr.CodeOf(err) == ragerr.ErrCodeInvalidInput {
				return result, nil
			}
			if ragerr.IsRetryable(err) {
				return nil, err
			}
			return nil, ragerr.New(ragerr.ErrCodeSearchFailed, "qdrant scroll failed", err)
		}

		for _, p := range out.Result.Points {
			id, payload, ok := decodeQdrantPayload(p.Payload)
			if !ok {
				result.Skipped++
				continue
			}
			if id == "" {
				id = fmt.Sprint(p.ID)
			}
			result.Entries = append(result.Entries, Entry{ID: id, Payload: payload})
		}

		if out.Result.NextPageOffset == nil {
			break
		}
		offset = out.Result.NextPageOffset
	}
	return result, nil
}

// Health checks the server's liveness endpoint.
func (s *QdrantStore) Health(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (s *QdrantStore) Close() error {
	return nil
}

package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"companybuddy/internal/rag"
)

// Store is a REST client to a Qdrant collection. It assumes cosine distance
// and keeps one collection for all tenants; isolation comes from the tenant
// filter applied to every search and delete.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Point is one vector plus its typed payload, ready to upsert.
type Point struct {
	ID      string           `json:"id"`
	Vector  []float32        `json:"vector"`
	Payload rag.ChunkPayload `json:"payload"`
}

// PointID derives a deterministic UUID from the chunk's document and index,
// so re-ingesting the same chunk overwrites instead of duplicating.
func PointID(documentID uint, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d:%d", documentID, chunkIndex))).String()
}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection and the payload indexes used for
// filtering if they do not exist yet. Qdrant answers 200 for an existing
// collection with the same schema, so startup is idempotent.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("qdrant: invalid vector dimension %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body, nil); err != nil {
		return err
	}

	for field, schema := range map[string]string{
		"tenant_id":   "integer",
		"document_id": "integer",
	} {
		index := map[string]any{
			"field_name":   field,
			"field_schema": schema,
		}
		if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/index", s.collection), index, nil); err != nil {
			return err
		}
	}
	return nil
}

// Upsert writes the points and waits for them to be persisted.
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), body, nil)
}

// Search runs a tenant-filtered nearest-neighbour query. Implements
// rag.VectorIndex.
func (s *Store) Search(ctx context.Context, tenantID uint, vector []float32, limit int) ([]rag.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"filter":       tenantFilter(tenantID),
	}
	var resp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection), body, &resp); err != nil {
		return nil, err
	}

	hits := make([]rag.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		var payload rag.ChunkPayload
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, fmt.Errorf("qdrant: decode payload: %w", err)
		}
		hits = append(hits, rag.ScoredChunk{
			Payload: payload,
			Score:   r.Score,
			Source:  "vector",
		})
	}
	return hits, nil
}

// DeleteByDocument removes every point of the document, scoped to the tenant.
func (s *Store) DeleteByDocument(ctx context.Context, tenantID, documentID uint) error {
	filter := tenantFilter(tenantID)
	filter["must"] = append(filter["must"].([]map[string]any), map[string]any{
		"key":   "document_id",
		"match": map[string]any{"value": documentID},
	})
	body := map[string]any{"filter": filter}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection), body, nil)
}

// Scroll pages through every payload in the collection. offset is the opaque
// cursor from the previous page, empty for the first. Used to rebuild the
// in-memory lexical index at startup.
func (s *Store) Scroll(ctx context.Context, offset string, limit int) ([]rag.ChunkPayload, string, error) {
	if limit <= 0 {
		limit = 256
	}
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if offset != "" {
		body["offset"] = offset
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload json.RawMessage `json:"payload"`
			} `json:"points"`
			NextPageOffset any `json:"next_page_offset"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/scroll", s.collection), body, &resp); err != nil {
		return nil, "", err
	}

	payloads := make([]rag.ChunkPayload, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		var payload rag.ChunkPayload
		if err := json.Unmarshal(p.Payload, &payload); err != nil {
			return nil, "", fmt.Errorf("qdrant: decode payload: %w", err)
		}
		payloads = append(payloads, payload)
	}

	next := ""
	if s, ok := resp.Result.NextPageOffset.(string); ok {
		next = s
	} else if f, ok := resp.Result.NextPageOffset.(float64); ok {
		next = fmt.Sprintf("%.0f", f)
	}
	return payloads, next, nil
}

// Healthy checks that the collection is reachable.
func (s *Store) Healthy(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", s.collection), nil, nil)
}

func tenantFilter(tenantID uint) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   "tenant_id",
				"match": map[string]any{"value": tenantID},
			},
		},
	}
}

func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("qdrant: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: %s %s failed: %s", method, path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("qdrant: decode response: %w", err)
		}
	}
	return nil
}

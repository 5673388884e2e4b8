// ABOUTME: Qdrant REST backend for the vector index, one collection per namespace
// ABOUTME: Minimal client over net/http; assumes cosine distance
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/models"
	"github.com/docchat/docchat/internal/util"
)

// Store is a minimal REST client to Qdrant. Each namespace maps to its own
// collection, created on first upsert with cosine distance.
type Store struct {
	url        string
	apiKey     string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// Config contains connection details for a Qdrant server.
type Config struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// NewStore creates a Qdrant-backed index.
func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
	}
}

func collectionName(namespace string) string {
	return "docchat_" + namespace
}

// pointID derives a deterministic UUID from the chunk id so re-upserting the
// same chunk replaces the stored point.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// Upsert writes entries into the namespace collection, creating the
// collection on first write.
func (s *Store) Upsert(ctx context.Context, namespace string, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	if err := s.ensureCollection(ctx, namespace, entries[0].Embedding.Dimension); err != nil {
		return err
	}

	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     pointID(e.ChunkID),
			"vector": e.Embedding.Vector,
			"payload": map[string]any{
				"chunk_id":    e.ChunkID,
				"document_id": e.DocumentID,
				"seq":         e.Seq,
				"start":       e.Start,
				"end":         e.End,
				"token_count": e.TokenCount,
				"text":        e.Text,
				"model":       e.Embedding.Model,
				"dimension":   e.Embedding.Dimension,
			},
		}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", collectionName(namespace))
	return s.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil)
}

type queryResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			ChunkID    string `json:"chunk_id"`
			DocumentID string `json:"document_id"`
			Seq        int    `json:"seq"`
			Start      int    `json:"start"`
			End        int    `json:"end"`
			TokenCount int    `json:"token_count"`
			Text       string `json:"text"`
			Model      string `json:"model"`
			Dimension  int    `json:"dimension"`
		} `json:"payload"`
	} `json:"result"`
}

// Query runs a top-k similarity search in the namespace collection.
func (s *Store) Query(ctx context.Context, namespace string, query models.EmbeddingVector, topK int) ([]models.RetrievalResult, error) {
	if topK < 1 {
		return nil, fmt.Errorf("topK must be >= 1, got %d", topK)
	}

	body := map[string]any{
		"vector":       query.Vector,
		"limit":        topK,
		"with_payload": true,
	}

	var resp queryResponse
	path := fmt.Sprintf("/collections/%s/points/search", collectionName(namespace))
	if err := s.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	results := make([]models.RetrievalResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		if r.Payload.Model != query.Model || r.Payload.Dimension != query.Dimension {
			return nil, fmt.Errorf("%w: namespace %q holds %s/%d, query is %s/%d",
				models.ErrModelMismatch, namespace, r.Payload.Model, r.Payload.Dimension,
				query.Model, query.Dimension)
		}
		results = append(results, models.RetrievalResult{
			ChunkID:    r.Payload.ChunkID,
			DocumentID: r.Payload.DocumentID,
			Seq:        r.Payload.Seq,
			Start:      r.Payload.Start,
			End:        r.Payload.End,
			TokenCount: r.Payload.TokenCount,
			Text:       r.Payload.Text,
			Score:      r.Score,
		})
	}

	// Qdrant orders by score; re-sort to enforce deterministic tie breaks.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// DeleteDocument removes all points whose payload references the document.
func (s *Store) DeleteDocument(ctx context.Context, namespace, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", collectionName(namespace))
	return s.do(ctx, http.MethodPost, path, body, nil)
}

// DeleteNamespace drops the namespace collection entirely.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	return s.do(ctx, http.MethodDelete, "/collections/"+collectionName(namespace), nil, nil)
}

func (s *Store) ensureCollection(ctx context.Context, namespace string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Returns 200 when the collection already exists with the same schema.
	return s.do(ctx, http.MethodPut, "/collections/"+collectionName(namespace), body, nil)
}

// do executes one REST call with bounded retries. HTTP 404 maps to
// models.ErrInvalidNamespace without retrying; transport errors and 5xx
// responses retry and end in models.ErrIndexUnavailable.
func (s *Store) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding qdrant request: %w", err)
		}
	}

	var notFound bool
	var permErr error
	err := util.Do(ctx, s.maxRetries, s.retryDelay, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, s.url+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("api-key", s.apiKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			notFound = true
			return nil
		}
		if resp.StatusCode >= 400 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			reqErr := fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, b)
			// Retry server errors and rate limits; anything else is permanent.
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return reqErr
			}
			permErr = reqErr
			return nil
		}
		if out != nil {
			return json.NewDecoder(resp.Body).Decode(out)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	if notFound {
		return fmt.Errorf("%w: %q", models.ErrInvalidNamespace, path)
	}
	return permErr
}

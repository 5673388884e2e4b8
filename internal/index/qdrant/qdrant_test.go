// ABOUTME: Tests for the Qdrant REST backend against a stub HTTP server
// ABOUTME: Covers upsert payloads, search decoding, retries, and error mapping
package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docchat/docchat/internal/models"
)

func testEntry(seq int, vector []float64) models.IndexEntry {
	return models.IndexEntry{
		ChunkID:    "doc_abc:" + string(rune('0'+seq)),
		DocumentID: "doc_abc",
		Seq:        seq,
		Start:      seq * 10,
		End:        seq*10 + 10,
		TokenCount: 3,
		Text:       "chunk text",
		Embedding: models.EmbeddingVector{
			Model:     "test-embed",
			Dimension: len(vector),
			Vector:    vector,
		},
	}
}

func newTestStore(url string) *Store {
	return NewStore(Config{
		URL:        url,
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
}

func TestUpsertCreatesCollectionAndWritesPoints(t *testing.T) {
	var gotCreate, gotUpsert atomic.Bool
	var createBody, upsertBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docchat_team-a":
			gotCreate.Store(true)
			json.NewDecoder(r.Body).Decode(&createBody)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/docchat_team-a/points":
			gotUpsert.Store(true)
			json.NewDecoder(r.Body).Decode(&upsertBody)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	s := newTestStore(srv.URL)
	err := s.Upsert(context.Background(), "team-a", []models.IndexEntry{
		testEntry(0, []float64{1, 0, 0}),
		testEntry(1, []float64{0, 1, 0}),
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if !gotCreate.Load() || !gotUpsert.Load() {
		t.Fatalf("expected collection create and points upsert, got create=%v upsert=%v",
			gotCreate.Load(), gotUpsert.Load())
	}

	vectors, ok := createBody["vectors"].(map[string]any)
	if !ok || vectors["size"].(float64) != 3 || vectors["distance"] != "Cosine" {
		t.Errorf("unexpected collection schema: %v", createBody)
	}

	points, ok := upsertBody["points"].([]any)
	if !ok || len(points) != 2 {
		t.Fatalf("expected 2 points, got %v", upsertBody)
	}
	first := points[0].(map[string]any)
	payload := first["payload"].(map[string]any)
	if payload["chunk_id"] != "doc_abc:0" || payload["document_id"] != "doc_abc" {
		t.Errorf("unexpected point payload: %v", payload)
	}
	if first["id"] == "doc_abc:0" {
		t.Error("point id should be a derived UUID, not the raw chunk id")
	}
}

func TestUpsertEmptyEntriesIsNoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	if err := newTestStore(srv.URL).Upsert(context.Background(), "team-a", nil); err != nil {
		t.Fatalf("Upsert with no entries should be a no-op, got %v", err)
	}
}

func TestQueryDecodesAndRanksResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docchat_team-a/points/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["limit"].(float64) != 2 {
			t.Errorf("expected limit 2, got %v", body["limit"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.91, "payload": map[string]any{
					"chunk_id": "doc_abc:1", "document_id": "doc_abc", "seq": 1,
					"text": "best", "model": "test-embed", "dimension": 3,
				}},
				{"score": 0.42, "payload": map[string]any{
					"chunk_id": "doc_abc:0", "document_id": "doc_abc", "seq": 0,
					"text": "worse", "model": "test-embed", "dimension": 3,
				}},
			},
		})
	}))
	defer srv.Close()

	query := models.EmbeddingVector{Model: "test-embed", Dimension: 3, Vector: []float64{0, 1, 0}}
	results, err := newTestStore(srv.URL).Query(context.Background(), "team-a", query, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ChunkID != "doc_abc:1" || results[0].Rank != 1 {
		t.Errorf("expected doc_abc:1 at rank 1, got %q rank %d", results[0].ChunkID, results[0].Rank)
	}
	if results[1].Rank != 2 {
		t.Errorf("expected rank 2 on second result, got %d", results[1].Rank)
	}
}

func TestQueryModelMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.9, "payload": map[string]any{
					"chunk_id": "doc_abc:0", "document_id": "doc_abc",
					"model": "other-model", "dimension": 3,
				}},
			},
		})
	}))
	defer srv.Close()

	query := models.EmbeddingVector{Model: "test-embed", Dimension: 3, Vector: []float64{1, 0, 0}}
	_, err := newTestStore(srv.URL).Query(context.Background(), "team-a", query, 1)
	if !errors.Is(err, models.ErrModelMismatch) {
		t.Fatalf("expected ErrModelMismatch, got %v", err)
	}
}

func TestQueryUnknownNamespace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	query := models.EmbeddingVector{Model: "test-embed", Dimension: 3, Vector: []float64{1, 0, 0}}
	_, err := newTestStore(srv.URL).Query(context.Background(), "missing", query, 1)
	if !errors.Is(err, models.ErrInvalidNamespace) {
		t.Fatalf("expected ErrInvalidNamespace, got %v", err)
	}
}

func TestQueryInvalidTopK(t *testing.T) {
	_, err := newTestStore("http://unused").Query(context.Background(), "team-a",
		models.EmbeddingVector{Model: "m", Dimension: 1, Vector: []float64{1}}, 0)
	if err == nil {
		t.Fatal("expected error for topK 0")
	}
}

func TestServerErrorsRetryThenSucceed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"result": []map[string]any{}})
	}))
	defer srv.Close()

	query := models.EmbeddingVector{Model: "test-embed", Dimension: 3, Vector: []float64{1, 0, 0}}
	results, err := newTestStore(srv.URL).Query(context.Background(), "team-a", query, 1)
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestPersistentServerErrorMapsToIndexUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	query := models.EmbeddingVector{Model: "test-embed", Dimension: 3, Vector: []float64{1, 0, 0}}
	_, err := newTestStore(srv.URL).Query(context.Background(), "team-a", query, 1)
	if !errors.Is(err, models.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	query := models.EmbeddingVector{Model: "test-embed", Dimension: 3, Vector: []float64{1, 0, 0}}
	_, err := newTestStore(srv.URL).Query(context.Background(), "team-a", query, 1)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if errors.Is(err, models.ErrIndexUnavailable) {
		t.Errorf("400 should not map to ErrIndexUnavailable: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt for a client error, got %d", calls.Load())
	}
}

func TestAPIKeyHeader(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	s := NewStore(Config{URL: srv.URL, APIKey: "secret", RetryDelay: time.Millisecond})
	if err := s.DeleteNamespace(context.Background(), "team-a"); err != nil {
		t.Fatalf("DeleteNamespace failed: %v", err)
	}
	if gotKey != "secret" {
		t.Errorf("expected api-key header, got %q", gotKey)
	}
}

func TestDeleteDocumentFiltersByDocumentID(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docchat_team-a/points/delete" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	if err := newTestStore(srv.URL).DeleteDocument(context.Background(), "team-a", "doc_abc"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	filter := body["filter"].(map[string]any)
	must := filter["must"].([]any)
	match := must[0].(map[string]any)["match"].(map[string]any)
	if match["value"] != "doc_abc" {
		t.Errorf("expected filter on doc_abc, got %v", body)
	}
}

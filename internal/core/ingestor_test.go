// ABOUTME: Tests for the ingestion write path
// ABOUTME: Covers chunk indexing, idempotent re-ingest, and cascade deletion
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/docchat/docchat/internal/index/memory"
	"github.com/docchat/docchat/internal/models"
)

// lengthEmbedder produces a deterministic vector for any text, so ingestion
// tests do not need per-text fixtures.
type lengthEmbedder struct{}

func (lengthEmbedder) EmbedBatch(_ context.Context, texts []string) ([]models.EmbeddingVector, error) {
	out := make([]models.EmbeddingVector, len(texts))
	for i, text := range texts {
		out[i] = models.EmbeddingVector{
			Model:     "fake-embed",
			Dimension: 3,
			Vector:    []float64{float64(len(text)), 1, 0},
		}
	}
	return out, nil
}

func (lengthEmbedder) Model() string  { return "fake-embed" }
func (lengthEmbedder) Dimension() int { return 3 }

// failingEmbedder simulates an unavailable embedding provider.
type failingEmbedder struct{}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([]models.EmbeddingVector, error) {
	return nil, models.ErrEmbeddingUnavailable
}

func (failingEmbedder) Model() string  { return "fake-embed" }
func (failingEmbedder) Dimension() int { return 3 }

// fakeDocStore is an in-memory DocumentStore keyed by namespace/document id.
type fakeDocStore struct {
	docs map[string]*models.Document
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]*models.Document)}
}

func (f *fakeDocStore) key(namespace, documentID string) string {
	return namespace + "/" + documentID
}

func (f *fakeDocStore) SaveDocument(doc *models.Document, _ []models.Chunk) error {
	f.docs[f.key(doc.Namespace, doc.DocumentID)] = doc
	return nil
}

func (f *fakeDocStore) GetDocument(namespace, documentID string) (*models.Document, error) {
	return f.docs[f.key(namespace, documentID)], nil
}

func (f *fakeDocStore) DeleteDocument(namespace, documentID string) error {
	delete(f.docs, f.key(namespace, documentID))
	return nil
}

func newTestIngestor(t *testing.T, embedder Embedder, idx *memory.Store, store *fakeDocStore) *Ingestor {
	t.Helper()
	chunker, err := NewChunker(4, 1)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	return NewIngestor(store, embedder, idx, chunker, 2)
}

func wordsBytes(n int) []byte {
	text := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			text += " "
		}
		text += fmt.Sprintf("word%d", i)
	}
	return []byte(text)
}

func TestIngestIndexesChunks(t *testing.T) {
	idx := memory.NewStore()
	store := newFakeDocStore()
	ing := newTestIngestor(t, lengthEmbedder{}, idx, store)

	report, err := ing.Ingest(context.Background(), "ns1", "notes.txt", wordsBytes(10), models.FormatPlainText)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if report.ChunkCount != 3 {
		t.Errorf("expected 3 chunks for 10 words max 4 overlap 1, got %d", report.ChunkCount)
	}
	if report.Replaced {
		t.Error("first ingest must not report a replacement")
	}
	if report.TokenCount != 12 {
		t.Errorf("expected 12 tokens across overlapping windows, got %d", report.TokenCount)
	}

	if got := idx.EntryCount("ns1"); got != 3 {
		t.Errorf("expected 3 index entries, got %d", got)
	}
	doc, err := store.GetDocument("ns1", report.DocumentID)
	if err != nil || doc == nil {
		t.Fatalf("document not persisted: %v", err)
	}
}

func TestIngestReplaceShrinksEntries(t *testing.T) {
	idx := memory.NewStore()
	store := newFakeDocStore()
	ing := newTestIngestor(t, lengthEmbedder{}, idx, store)
	ctx := context.Background()

	if _, err := ing.Ingest(ctx, "ns1", "notes.txt", wordsBytes(10), models.FormatPlainText); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}

	report, err := ing.Ingest(ctx, "ns1", "notes.txt", wordsBytes(4), models.FormatPlainText)
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if !report.Replaced {
		t.Error("re-ingesting the same name must report replacement")
	}
	if report.ChunkCount != 1 {
		t.Errorf("expected 1 chunk for 4 words, got %d", report.ChunkCount)
	}
	// Shrinking the document must not leave the old tail behind.
	if got := idx.EntryCount("ns1"); got != 1 {
		t.Errorf("expected stale entries cleared, got %d entries", got)
	}
}

func TestIngestSameNameDifferentNamespace(t *testing.T) {
	idx := memory.NewStore()
	store := newFakeDocStore()
	ing := newTestIngestor(t, lengthEmbedder{}, idx, store)
	ctx := context.Background()

	r1, err := ing.Ingest(ctx, "ns1", "notes.txt", wordsBytes(4), models.FormatPlainText)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	r2, err := ing.Ingest(ctx, "ns2", "notes.txt", wordsBytes(4), models.FormatPlainText)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if r1.DocumentID == r2.DocumentID {
		t.Error("same name in different namespaces must get distinct document ids")
	}
	if r2.Replaced {
		t.Error("ingest into a second namespace is not a replacement")
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	ing := newTestIngestor(t, lengthEmbedder{}, memory.NewStore(), newFakeDocStore())

	_, err := ing.Ingest(context.Background(), "ns1", "blank.txt", []byte("   \n\t "), models.FormatPlainText)
	if !errors.Is(err, models.ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestIngestUnsupportedFormat(t *testing.T) {
	ing := newTestIngestor(t, lengthEmbedder{}, memory.NewStore(), newFakeDocStore())

	_, err := ing.Ingest(context.Background(), "ns1", "img.png", []byte("data"), models.DocumentFormat("png"))
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestIngestEmbedderFailure(t *testing.T) {
	idx := memory.NewStore()
	store := newFakeDocStore()
	ing := newTestIngestor(t, failingEmbedder{}, idx, store)

	_, err := ing.Ingest(context.Background(), "ns1", "notes.txt", wordsBytes(10), models.FormatPlainText)
	if !errors.Is(err, models.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	// Failed ingestion leaves nothing behind.
	if got := idx.EntryCount("ns1"); got != 0 {
		t.Errorf("expected no index entries after failure, got %d", got)
	}
	if doc, _ := store.GetDocument("ns1", models.DeterministicDocumentID("ns1", "notes.txt")); doc != nil {
		t.Error("expected no persisted document after failure")
	}
}

// keywordEmbedder scores text by whether it mentions the keyword, giving the
// matching chunk a strictly higher cosine similarity to the query.
type keywordEmbedder struct {
	keyword string
}

func (k keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([]models.EmbeddingVector, error) {
	out := make([]models.EmbeddingVector, len(texts))
	for i, text := range texts {
		hit := 0.0
		if strings.Contains(text, k.keyword) {
			hit = 1.0
		}
		out[i] = models.EmbeddingVector{
			Model:     "fake-embed",
			Dimension: 3,
			Vector:    []float64{hit, 1, 0},
		}
	}
	return out, nil
}

func (k keywordEmbedder) Model() string  { return "fake-embed" }
func (k keywordEmbedder) Dimension() int { return 3 }

func TestIngestThenRetrieve(t *testing.T) {
	idx := memory.NewStore()
	store := newFakeDocStore()
	embedder := keywordEmbedder{keyword: "gamma"}
	ing := newTestIngestor(t, embedder, idx, store)
	ctx := context.Background()

	text := []byte("w0 w1 w2 w3 w4 gamma w6 w7 w8 w9")
	report, err := ing.Ingest(ctx, "ns1", "notes.txt", text, models.FormatPlainText)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if report.ChunkCount != 3 {
		t.Fatalf("expected 3 chunks, got %d", report.ChunkCount)
	}

	retriever := NewRetriever(embedder, idx)
	results, err := retriever.Retrieve(ctx, "ns1", "gamma", 3)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Text != "w3 w4 gamma w6" {
		t.Errorf("expected the matching chunk verbatim, got %q", results[0].Text)
	}
	if results[0].Seq != 1 {
		t.Errorf("expected the middle chunk to rank first, got seq %d", results[0].Seq)
	}
}

func TestIngestorDeleteDocument(t *testing.T) {
	idx := memory.NewStore()
	store := newFakeDocStore()
	ing := newTestIngestor(t, lengthEmbedder{}, idx, store)
	ctx := context.Background()

	report, err := ing.Ingest(ctx, "ns1", "notes.txt", wordsBytes(10), models.FormatPlainText)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if err := ing.DeleteDocument(ctx, "ns1", report.DocumentID); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if got := idx.EntryCount("ns1"); got != 0 {
		t.Errorf("expected index entries removed, got %d", got)
	}
	if doc, _ := store.GetDocument("ns1", report.DocumentID); doc != nil {
		t.Error("expected document row removed")
	}
}

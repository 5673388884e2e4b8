// ABOUTME: Ingestor runs the write path: extract, chunk, embed, upsert
// ABOUTME: Embeds chunk groups concurrently; index writes stay serialized per namespace
package core

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/docchat/docchat/internal/extract"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/models"
)

// embedConcurrency bounds how many embedding batches are in flight per
// document during ingestion.
const embedConcurrency = 4

// DocumentStore is the ingestor-facing slice of document persistence.
type DocumentStore interface {
	SaveDocument(doc *models.Document, chunks []models.Chunk) error
	GetDocument(namespace, documentID string) (*models.Document, error)
	DeleteDocument(namespace, documentID string) error
}

// IngestReport summarizes a completed ingestion.
type IngestReport struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
	TokenCount int    `json:"token_count"`
	Replaced   bool   `json:"replaced"`
}

// Ingestor turns raw uploads into indexed, retrievable chunks.
type Ingestor struct {
	store     DocumentStore
	embedder  Embedder
	idx       index.Index
	chunker   *Chunker
	batchSize int
}

// NewIngestor creates an Ingestor.
func NewIngestor(store DocumentStore, embedder Embedder, idx index.Index, chunker *Chunker, batchSize int) *Ingestor {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Ingestor{
		store:     store,
		embedder:  embedder,
		idx:       idx,
		chunker:   chunker,
		batchSize: batchSize,
	}
}

// Ingest extracts text from raw bytes, chunks it, embeds the chunks, and
// upserts them into the namespace. The document id is derived from the
// namespace and name, so re-ingesting the same file replaces its entries
// instead of duplicating them.
func (ing *Ingestor) Ingest(ctx context.Context, namespace, name string, raw []byte, format models.DocumentFormat) (*IngestReport, error) {
	text, err := extract.Text(raw, format)
	if err != nil {
		return nil, fmt.Errorf("extracting %q: %w", name, err)
	}

	docID := models.DeterministicDocumentID(namespace, name)

	doc, err := models.NewDocument(namespace, name, format, text)
	if err != nil {
		return nil, fmt.Errorf("creating document %q: %w", name, err)
	}
	doc.DocumentID = docID

	chunks, err := ing.chunker.Chunk(docID, text)
	if err != nil {
		return nil, fmt.Errorf("chunking %q: %w", name, err)
	}

	vectors, err := ing.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %q: %w", name, err)
	}

	// A prior version of this document may hold more chunks than the new
	// text produces; clear its entries before upserting the fresh set.
	replaced := false
	if prev, err := ing.store.GetDocument(namespace, docID); err == nil && prev != nil {
		replaced = true
		if err := ing.idx.DeleteDocument(ctx, namespace, docID); err != nil {
			return nil, fmt.Errorf("clearing stale entries for %q: %w", name, err)
		}
	}

	entries := make([]models.IndexEntry, len(chunks))
	for i, c := range chunks {
		v := vectors[i]
		v.ChunkID = c.ID()
		entries[i] = models.IndexEntry{
			ChunkID:    c.ID(),
			DocumentID: c.DocumentID,
			Seq:        c.Seq,
			Start:      c.Start,
			End:        c.End,
			TokenCount: c.TokenCount,
			Text:       c.Text,
			Embedding:  v,
		}
	}

	if err := ing.idx.Upsert(ctx, namespace, entries); err != nil {
		return nil, fmt.Errorf("indexing %q: %w", name, err)
	}
	if err := ing.store.SaveDocument(doc, chunks); err != nil {
		return nil, fmt.Errorf("persisting %q: %w", name, err)
	}

	tokens := 0
	for _, c := range chunks {
		tokens += c.TokenCount
	}
	log.Printf("[Ingestor] indexed %q as %s: %d chunks, %d tokens", name, docID, len(chunks), tokens)

	return &IngestReport{
		DocumentID: docID,
		ChunkCount: len(chunks),
		TokenCount: tokens,
		Replaced:   replaced,
	}, nil
}

// embedChunks embeds chunk texts in bounded-concurrency batches, preserving
// chunk order in the returned slice.
func (ing *Ingestor) embedChunks(ctx context.Context, chunks []models.Chunk) ([]models.EmbeddingVector, error) {
	vectors := make([]models.EmbeddingVector, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = chunks[i].Text
			}
			batch, err := ing.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("expected %d vectors, got %d", end-start, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// DeleteDocument removes a document and all its chunks from both the store
// and the index. Index entries go first so a concurrent query can never see
// chunks of a document whose row is already gone.
func (ing *Ingestor) DeleteDocument(ctx context.Context, namespace, documentID string) error {
	if err := ing.idx.DeleteDocument(ctx, namespace, documentID); err != nil {
		return fmt.Errorf("removing index entries: %w", err)
	}
	if err := ing.store.DeleteDocument(namespace, documentID); err != nil {
		return fmt.Errorf("removing document: %w", err)
	}
	log.Printf("[Ingestor] deleted document %s from namespace %s", documentID, namespace)
	return nil
}

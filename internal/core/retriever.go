// ABOUTME: Retriever embeds a query, searches the index, and dedupes results
// ABOUTME: Maps a never-written namespace to "no context" instead of an error
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/models"
)

// Embedder converts text into fixed-dimension vectors under one model.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]models.EmbeddingVector, error)
	Model() string
	Dimension() int
}

// Retriever turns a query into ranked, deduplicated passages.
type Retriever struct {
	embedder Embedder
	idx      index.Index
}

// NewRetriever creates a Retriever over the given embedder and index.
func NewRetriever(embedder Embedder, idx index.Index) *Retriever {
	return &Retriever{embedder: embedder, idx: idx}
}

// Retrieve embeds queryText, queries the namespace, and returns ranked
// results. Overlapping spans from the same document collapse into their
// highest-scoring representative. A namespace with no uploads yields an
// empty list and no error; callers handle "no context available" explicitly.
func (r *Retriever) Retrieve(ctx context.Context, namespace, queryText string, topK int) ([]models.RetrievalResult, error) {
	if topK < 1 {
		return nil, fmt.Errorf("topK must be >= 1, got %d", topK)
	}

	vectors, err := r.embedder.EmbedBatch(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}

	results, err := r.idx.Query(ctx, namespace, vectors[0], topK)
	if err != nil {
		// No uploads yet reads as "no context", not a failure.
		if errors.Is(err, models.ErrInvalidNamespace) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying index: %w", err)
	}

	results = dedupeOverlapping(results)
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// dedupeOverlapping drops results whose text span overlaps an already kept
// span from the same document. Results arrive ordered best-first, so the
// kept representative is always the highest-scoring one.
func dedupeOverlapping(results []models.RetrievalResult) []models.RetrievalResult {
	kept := results[:0]
	for _, r := range results {
		overlapped := false
		for _, k := range kept {
			if k.DocumentID == r.DocumentID && spansOverlap(k.Start, k.End, r.Start, r.End) {
				overlapped = true
				break
			}
		}
		if !overlapped {
			kept = append(kept, r)
		}
	}
	return kept
}

func spansOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

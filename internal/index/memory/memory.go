// ABOUTME: In-memory vector index with per-namespace locking and cosine search
// ABOUTME: Chunk-id keyed entries make re-ingestion upserts idempotent
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/docchat/docchat/internal/models"
)

// Store is an in-process vector index. Namespaces are fully isolated; each
// carries its own lock so ingestion into one namespace never blocks queries
// against another.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]*namespaceIndex
}

type namespaceIndex struct {
	mu        sync.RWMutex
	model     string
	dimension int
	entries   map[string]models.IndexEntry
}

// NewStore creates an empty in-memory index.
func NewStore() *Store {
	return &Store{namespaces: make(map[string]*namespaceIndex)}
}

// Upsert writes entries into the namespace, creating it on first write.
// An entry with an existing chunk id replaces the stored one. Mixing
// embedding models or dimensions within a namespace fails with
// models.ErrModelMismatch and writes nothing.
func (s *Store) Upsert(_ context.Context, namespace string, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ns := s.getOrCreate(namespace)

	ns.mu.Lock()
	defer ns.mu.Unlock()

	// Pin the namespace to the first model/dimension it sees.
	if ns.model == "" {
		ns.model = entries[0].Embedding.Model
		ns.dimension = entries[0].Embedding.Dimension
	}
	for _, e := range entries {
		if e.Embedding.Model != ns.model || e.Embedding.Dimension != ns.dimension {
			return fmt.Errorf("%w: namespace %q holds %s/%d, got %s/%d",
				models.ErrModelMismatch, namespace, ns.model, ns.dimension,
				e.Embedding.Model, e.Embedding.Dimension)
		}
	}

	for _, e := range entries {
		ns.entries[e.ChunkID] = e
	}
	return nil
}

// Query returns the topK most similar entries, ordered by descending cosine
// similarity with ties broken by ascending chunk sequence index.
func (s *Store) Query(_ context.Context, namespace string, query models.EmbeddingVector, topK int) ([]models.RetrievalResult, error) {
	if topK < 1 {
		return nil, fmt.Errorf("topK must be >= 1, got %d", topK)
	}

	s.mu.RLock()
	ns, ok := s.namespaces[namespace]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidNamespace, namespace)
	}

	ns.mu.RLock()
	defer ns.mu.RUnlock()

	if len(ns.entries) == 0 {
		return nil, nil
	}
	if query.Model != ns.model || query.Dimension != ns.dimension {
		return nil, fmt.Errorf("%w: namespace %q holds %s/%d, query is %s/%d",
			models.ErrModelMismatch, namespace, ns.model, ns.dimension,
			query.Model, query.Dimension)
	}

	results := make([]models.RetrievalResult, 0, len(ns.entries))
	for _, e := range ns.entries {
		results = append(results, models.RetrievalResult{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Seq:        e.Seq,
			Start:      e.Start,
			End:        e.End,
			TokenCount: e.TokenCount,
			Text:       e.Text,
			Score:      cosineSimilarity(query.Vector, e.Embedding.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})

	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// DeleteDocument removes every entry belonging to the document. Runs under
// the namespace write lock, so a concurrent query sees either all of the
// document's chunks or none of them.
func (s *Store) DeleteDocument(_ context.Context, namespace, documentID string) error {
	s.mu.RLock()
	ns, ok := s.namespaces[namespace]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrInvalidNamespace, namespace)
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	for id, e := range ns.entries {
		if e.DocumentID == documentID {
			delete(ns.entries, id)
		}
	}
	return nil
}

// DeleteNamespace removes the namespace and all its entries.
func (s *Store) DeleteNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

// EntryCount reports the number of stored entries in a namespace. Used by
// ingestion status reporting and tests.
func (s *Store) EntryCount(namespace string) int {
	s.mu.RLock()
	ns, ok := s.namespaces[namespace]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.entries)
}

func (s *Store) getOrCreate(namespace string) *namespaceIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = &namespaceIndex{entries: make(map[string]models.IndexEntry)}
		s.namespaces[namespace] = ns
	}
	return ns
}

// cosineSimilarity calculates cosine similarity between two vectors
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

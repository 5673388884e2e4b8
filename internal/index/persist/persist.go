// ABOUTME: Index wrapper that writes entries through to SQLite
// ABOUTME: Rebuilds the wrapped in-process index from storage on startup
package persist

import (
	"context"
	"fmt"

	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/models"
)

// EntryStore is the storage surface the wrapper needs.
type EntryStore interface {
	SaveIndexEntries(namespace string, entries []models.IndexEntry) error
	LoadIndexEntries(namespace string) ([]models.IndexEntry, error)
	ListIndexNamespaces() ([]string, error)
	DeleteIndexEntriesForDocument(namespace, documentID string) error
	DeleteIndexNamespace(namespace string) error
}

// Store wraps an in-process index with write-through persistence, so a CLI
// invocation sees the entries indexed by previous invocations without
// re-embedding anything.
type Store struct {
	inner index.Index
	store EntryStore
}

// New hydrates inner with every stored namespace and returns the wrapper.
func New(ctx context.Context, inner index.Index, store EntryStore) (*Store, error) {
	namespaces, err := store.ListIndexNamespaces()
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}
	for _, ns := range namespaces {
		entries, err := store.LoadIndexEntries(ns)
		if err != nil {
			return nil, fmt.Errorf("loading namespace %s: %w", ns, err)
		}
		if len(entries) == 0 {
			continue
		}
		if err := inner.Upsert(ctx, ns, entries); err != nil {
			return nil, fmt.Errorf("rebuilding namespace %s: %w", ns, err)
		}
	}
	return &Store{inner: inner, store: store}, nil
}

// Upsert indexes entries and persists them.
func (s *Store) Upsert(ctx context.Context, namespace string, entries []models.IndexEntry) error {
	if err := s.inner.Upsert(ctx, namespace, entries); err != nil {
		return err
	}
	return s.store.SaveIndexEntries(namespace, entries)
}

// Query delegates to the wrapped index.
func (s *Store) Query(ctx context.Context, namespace string, query models.EmbeddingVector, topK int) ([]models.RetrievalResult, error) {
	return s.inner.Query(ctx, namespace, query, topK)
}

// DeleteDocument removes a document's entries from the index and storage.
func (s *Store) DeleteDocument(ctx context.Context, namespace, documentID string) error {
	if err := s.inner.DeleteDocument(ctx, namespace, documentID); err != nil {
		return err
	}
	return s.store.DeleteIndexEntriesForDocument(namespace, documentID)
}

// DeleteNamespace removes a namespace from the index and storage.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	if err := s.inner.DeleteNamespace(ctx, namespace); err != nil {
		return err
	}
	return s.store.DeleteIndexNamespace(namespace)
}

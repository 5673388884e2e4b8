// ABOUTME: Vector index contract: namespaced upsert, top-k query, teardown
// ABOUTME: Backends must keep writes serialized per namespace
package index

import (
	"context"

	"github.com/docchat/docchat/internal/models"
)

// Index stores chunk vectors with metadata in isolated namespaces and
// answers top-k cosine similarity queries. Implementations must make upserts
// idempotent per chunk id, serialize writes within a namespace, and reject
// vectors whose model or dimension differ from what the namespace holds.
//
// Query returns models.ErrInvalidNamespace for a namespace that has never
// been written to; an existing namespace with no entries yields an empty
// result list. Callers that want "no uploads yet" to read as "no context"
// handle that translation themselves.
type Index interface {
	Upsert(ctx context.Context, namespace string, entries []models.IndexEntry) error
	Query(ctx context.Context, namespace string, query models.EmbeddingVector, topK int) ([]models.RetrievalResult, error)
	DeleteDocument(ctx context.Context, namespace, documentID string) error
	DeleteNamespace(ctx context.Context, namespace string) error
}

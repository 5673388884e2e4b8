// ABOUTME: Sentinel errors for the document QA pipeline
// ABOUTME: Distinguishes user-correctable, provider-transient, and state errors
package models

import "errors"

var (
	// ErrEmptyDocument is returned when a document has no text after
	// whitespace normalization. User-correctable, never retried.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrUnsupportedFormat is returned for document formats the extractor
	// does not understand. User-correctable, never retried.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmbeddingUnavailable is returned after the embedding provider has
	// exhausted its bounded retries.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrIndexUnavailable is returned after the vector index backend has
	// exhausted its bounded retries.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrGenerationUnavailable is returned after the LLM provider has
	// exhausted its bounded retries.
	ErrGenerationUnavailable = errors.New("generation provider unavailable")

	// ErrInvalidNamespace is returned when querying a namespace that has
	// never been written to. State error, fatal to the request.
	ErrInvalidNamespace = errors.New("namespace does not exist")

	// ErrModelMismatch is returned when vectors from different embedding
	// models or dimensions would be compared for similarity.
	ErrModelMismatch = errors.New("embedding model mismatch")
)

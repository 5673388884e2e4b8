// ABOUTME: Embedding vectors, index entries, and retrieval results
// ABOUTME: Vectors carry their model id and dimension so mixing is detectable
package models

import "time"

// EmbeddingVector is a fixed-dimension vector produced by a specific
// embedding model. Vectors compared for similarity must share Model and
// Dimension; the index rejects mixing with ErrModelMismatch.
type EmbeddingVector struct {
	ChunkID   string    `json:"chunk_id,omitempty"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Vector    []float64 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// IndexEntry is what the vector index stores per chunk: the vector plus
// enough chunk metadata to build citations without re-reading the document.
type IndexEntry struct {
	ChunkID    string          `json:"chunk_id"`
	DocumentID string          `json:"document_id"`
	Seq        int             `json:"seq"`
	Start      int             `json:"start"`
	End        int             `json:"end"`
	TokenCount int             `json:"token_count"`
	Text       string          `json:"text"`
	Embedding  EmbeddingVector `json:"embedding"`
}

// RetrievalResult is one ranked similarity hit. Result lists are ordered by
// descending score, ties broken by ascending chunk sequence index.
type RetrievalResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Seq        int     `json:"seq"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	TokenCount int     `json:"token_count"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

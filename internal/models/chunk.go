// ABOUTME: Chunk is the atomic retrieval unit, a bounded span of document text
// ABOUTME: Identified deterministically by (document id, sequence index)
package models

import "fmt"

// Chunk is a bounded, overlapping passage cut from a document. Chunks are
// never mutated after creation; re-chunking the same text with the same
// parameters yields identical chunks.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Seq        int    `json:"seq"`
	Text       string `json:"text"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Overlap    int    `json:"overlap"`
	TokenCount int    `json:"token_count"`
}

// ID returns the deterministic chunk identifier. Re-ingesting an unchanged
// document produces the same ids, which makes index upserts idempotent.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s:%d", c.DocumentID, c.Seq)
}

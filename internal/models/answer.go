// ABOUTME: Answer is the orchestrator's output: text, citations, grounding flag
// ABOUTME: Carries query classification, confidence, and processing duration
package models

import "time"

// QueryType classifies a user question so the orchestrator can pick an
// appropriate prompt template.
type QueryType string

const (
	QueryGeneral QueryType = "general"
	QueryUrgent  QueryType = "urgent"
	QueryLookup  QueryType = "lookup"
)

// Citation points from an answer back to a retrieved passage.
type Citation struct {
	Marker     string `json:"marker"`
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// Answer is a generated assistant response. Grounded is false when no
// retrieved context backed the generation; such answers carry no citations.
type Answer struct {
	Text       string        `json:"text"`
	Citations  []Citation    `json:"citations"`
	Grounded   bool          `json:"grounded"`
	QueryType  QueryType     `json:"query_type"`
	Confidence float64       `json:"confidence"`
	Duration   time.Duration `json:"duration"`
}

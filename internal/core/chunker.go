// ABOUTME: Chunker splits normalized document text into overlapping token windows
// ABOUTME: Pure function over its input; identical input yields identical chunks
package core

import (
	"fmt"

	"github.com/docchat/docchat/internal/extract"
	"github.com/docchat/docchat/internal/models"
)

// Chunker cuts document text into consecutive windows of at most maxTokens
// whitespace-delimited tokens, each window starting overlapTokens before the
// previous one ended.
type Chunker struct {
	maxTokens     int
	overlapTokens int
}

// NewChunker creates a Chunker with validated parameters.
func NewChunker(maxTokens, overlapTokens int) (*Chunker, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("maxTokens must be positive, got %d", maxTokens)
	}
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		return nil, fmt.Errorf("overlapTokens must be in [0, maxTokens), got %d", overlapTokens)
	}
	return &Chunker{maxTokens: maxTokens, overlapTokens: overlapTokens}, nil
}

// span records a token's byte range in the normalized text.
type span struct {
	start int
	end   int
}

// Chunk splits text into overlapping windows. Offsets refer to the
// whitespace-normalized text. The last window may be shorter than maxTokens
// but is never empty. Persisting the chunks is the caller's job.
func (c *Chunker) Chunk(documentID, text string) ([]models.Chunk, error) {
	normalized := extract.Normalize(text)
	if normalized == "" {
		return nil, models.ErrEmptyDocument
	}

	tokens := tokenize(normalized)
	step := c.maxTokens - c.overlapTokens

	var chunks []models.Chunk
	for i := 0; i < len(tokens); i += step {
		end := i + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		overlap := c.overlapTokens
		if i == 0 {
			overlap = 0
		}

		chunks = append(chunks, models.Chunk{
			DocumentID: documentID,
			Seq:        len(chunks),
			Text:       normalized[tokens[i].start:tokens[end-1].end],
			Start:      tokens[i].start,
			End:        tokens[end-1].end,
			Overlap:    overlap,
			TokenCount: end - i,
		})

		if end == len(tokens) {
			break
		}
	}

	return chunks, nil
}

// tokenize returns the byte spans of whitespace-delimited tokens. Normalized
// text has exactly one space between tokens and none at the edges.
func tokenize(normalized string) []span {
	var spans []span
	start := -1
	for i := 0; i < len(normalized); i++ {
		if normalized[i] == ' ' {
			if start >= 0 {
				spans = append(spans, span{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, span{start: start, end: len(normalized)})
	}
	return spans
}

// CountTokens reports how many budget units a text costs. The same token
// definition drives chunk windows and the context assembler's budget.
func CountTokens(text string) int {
	return len(tokenize(extract.Normalize(text)))
}

// ABOUTME: Context assembler packs ranked passages into a token-bounded block
// ABOUTME: Chunks are included whole or not at all, each tagged with a citation marker
package core

import (
	"fmt"
	"strings"

	"github.com/docchat/docchat/internal/models"
)

// AssembledContext is the packed context block handed to the orchestrator.
// Grounded is false when no passage fit the budget; the context text is then
// empty and the citation list nil.
type AssembledContext struct {
	Text       string
	Citations  []models.Citation
	TokenCount int
	Grounded   bool
}

// AssembleContext greedily includes results in rank order until the next
// chunk would exceed tokenBudget. A chunk never appears truncated: it either
// fits whole or is excluded, and packing stops at the first chunk that does
// not fit. Markers [S1], [S2], ... identify each included passage.
func AssembleContext(results []models.RetrievalResult, tokenBudget int) AssembledContext {
	var sb strings.Builder
	var citations []models.Citation
	total := 0

	for _, r := range results {
		if total+r.TokenCount > tokenBudget {
			break
		}

		marker := fmt.Sprintf("[S%d]", len(citations)+1)
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("%s (%s) %s", marker, r.DocumentID, r.Text))

		citations = append(citations, models.Citation{
			Marker:     marker,
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Start:      r.Start,
			End:        r.End,
		})
		total += r.TokenCount
	}

	if len(citations) == 0 {
		return AssembledContext{}
	}
	return AssembledContext{
		Text:       sb.String(),
		Citations:  citations,
		TokenCount: total,
		Grounded:   true,
	}
}

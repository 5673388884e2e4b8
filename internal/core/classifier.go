// ABOUTME: Keyword-based query classification for prompt template selection
// ABOUTME: Urgent and lookup queries get specialized system instructions
package core

import (
	"strings"

	"github.com/docchat/docchat/internal/models"
)

var urgentKeywords = []string{
	"emergency", "urgent", "immediately", "critical", "severe",
	"right now", "as soon as possible",
}

var lookupKeywords = []string{
	"what is", "what are", "define", "definition of", "meaning of",
	"who is", "when was", "where is",
}

// ClassifyQuery picks a query type from keyword detection. Lookup phrasing
// only counts when it opens the question; urgency words count anywhere.
func ClassifyQuery(query string) models.QueryType {
	q := strings.ToLower(strings.TrimSpace(query))

	for _, kw := range urgentKeywords {
		if strings.Contains(q, kw) {
			return models.QueryUrgent
		}
	}
	for _, kw := range lookupKeywords {
		if strings.HasPrefix(q, kw) {
			return models.QueryLookup
		}
	}
	return models.QueryGeneral
}

// ABOUTME: Metrics for faithfulness, context recall, and grounding correctness
// ABOUTME: Simplified deterministic evaluation based on ground truth comparison

package ragas

import (
	"fmt"
	"strings"

	"github.com/docchat/docchat/internal/models"
)

// MetricsCalculator computes benchmark scores
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateFaithfulness computes faithfulness score (0.0-1.0).
// Faithfulness = does the answer state the expected facts without leaking
// unrelated or forbidden material?
func (m *MetricsCalculator) CalculateFaithfulness(
	response string,
	expectedInResponse []string,
	forbiddenInResponse []string,
) (float64, string) {
	responseUpper := strings.ToUpper(response)

	missingItems := []string{}
	for _, expected := range expectedInResponse {
		if !strings.Contains(responseUpper, strings.ToUpper(expected)) {
			missingItems = append(missingItems, expected)
		}
	}

	forbiddenFound := []string{}
	for _, forbidden := range forbiddenInResponse {
		if strings.Contains(responseUpper, strings.ToUpper(forbidden)) {
			forbiddenFound = append(forbiddenFound, forbidden)
		}
	}

	if len(missingItems) == 0 && len(forbiddenFound) == 0 {
		return 1.0, "Perfect faithfulness - answer matches expected ground truth"
	}
	if len(missingItems) > 0 && len(forbiddenFound) > 0 {
		return 0.0, fmt.Sprintf(
			"Faithfulness failure - missing expected items: %v, forbidden items found: %v",
			missingItems, forbiddenFound,
		)
	}
	if len(missingItems) > 0 {
		return 0.5, fmt.Sprintf("Partial faithfulness - missing expected items: %v", missingItems)
	}
	return 0.5, fmt.Sprintf("Partial faithfulness - forbidden items found: %v", forbiddenFound)
}

// CalculateContextRecall computes context recall score (0.0-1.0).
// Context recall = did retrieval surface the passages the answer needs?
func (m *MetricsCalculator) CalculateContextRecall(
	retrievedContext []string,
	expectedContextItems []string,
) (float64, string) {
	if len(expectedContextItems) == 0 {
		return 1.0, "No context retrieval required"
	}

	allContext := strings.ToUpper(strings.Join(retrievedContext, " "))

	foundCount := 0
	missingItems := []string{}
	for _, expectedItem := range expectedContextItems {
		if strings.Contains(allContext, strings.ToUpper(expectedItem)) {
			foundCount++
		} else {
			missingItems = append(missingItems, expectedItem)
		}
	}

	recall := float64(foundCount) / float64(len(expectedContextItems))
	if recall == 1.0 {
		return 1.0, "Perfect context recall - all expected items retrieved"
	}
	return recall, fmt.Sprintf("Partial context recall (%.2f) - missing items: %v", recall, missingItems)
}

// CalculateGrounding scores the grounded flag and citation targets.
// A grounded answer must cite only the expected documents; an ungrounded
// answer must carry no citations at all.
func (m *MetricsCalculator) CalculateGrounding(
	answer *models.Answer,
	expectGrounded bool,
	expectedCitedDocuments []string,
	docNameByID map[string]string,
) (float64, string) {
	if answer.Grounded != expectGrounded {
		return 0.0, fmt.Sprintf("Grounded flag = %v, expected %v", answer.Grounded, expectGrounded)
	}

	if !expectGrounded {
		if len(answer.Citations) != 0 {
			return 0.0, fmt.Sprintf("Ungrounded answer carries %d citations", len(answer.Citations))
		}
		return 1.0, "Correctly flagged as not document-backed"
	}

	if len(expectedCitedDocuments) == 0 {
		return 1.0, "Grounded as expected"
	}
	if len(answer.Citations) == 0 {
		return 0.5, "Grounded but the answer cites no sources"
	}

	expected := make(map[string]bool, len(expectedCitedDocuments))
	for _, name := range expectedCitedDocuments {
		expected[name] = true
	}
	for _, c := range answer.Citations {
		name := docNameByID[c.DocumentID]
		if !expected[name] {
			return 0.5, fmt.Sprintf("Citation points at unexpected document %q", name)
		}
	}
	return 1.0, "Citations point at the expected documents"
}

// EvaluateQuestion runs the full evaluation for one answered question
func (m *MetricsCalculator) EvaluateQuestion(
	scenario TestScenario,
	question ScenarioQuestion,
	answer *models.Answer,
	retrievedContext []string,
	docNameByID map[string]string,
) TestResult {
	faithfulness, faithfulnessDetail := m.CalculateFaithfulness(
		answer.Text,
		question.GroundTruth.ExpectedInResponse,
		question.GroundTruth.ForbiddenInResponse,
	)

	recall, recallDetail := m.CalculateContextRecall(
		retrievedContext,
		question.GroundTruth.ExpectedContextItems,
	)

	grounding, groundingDetail := m.CalculateGrounding(
		answer,
		question.GroundTruth.ExpectGrounded,
		question.GroundTruth.ExpectedCitedDocuments,
		docNameByID,
	)

	overallScore := (faithfulness + recall + grounding) / 3.0

	status := "FAIL"
	if faithfulness >= 0.9 && recall >= 0.9 && grounding >= 0.9 {
		status = "PASS"
	}

	preview := answer.Text
	if len(preview) > 200 {
		preview = preview[:200]
	}

	return TestResult{
		TestID:             scenario.ID,
		TestName:           scenario.Name,
		FaithfulnessScore:  faithfulness,
		ContextRecallScore: recall,
		GroundingScore:     grounding,
		OverallScore:       overallScore,
		Status:             status,
		Details: map[string]interface{}{
			"question":            question.Question,
			"faithfulness_detail": faithfulnessDetail,
			"recall_detail":       recallDetail,
			"grounding_detail":    groundingDetail,
			"answer_preview":      preview,
			"context_items":       len(retrievedContext),
			"confidence":          answer.Confidence,
		},
	}
}

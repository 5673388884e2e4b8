// ABOUTME: Generation orchestrator: builds the grounded prompt, calls the LLM,
// ABOUTME: parses citations, and appends the exchange to the session atomically
package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/docchat/docchat/internal/models"
)

// Completer produces answer text from prompt messages.
type Completer interface {
	Complete(ctx context.Context, prompt []models.PromptMessage) (string, error)
}

// SessionStore is the orchestrator-facing slice of session persistence.
type SessionStore interface {
	GetSession(sessionID string) (*models.Session, error)
	AppendExchange(sessionID string, user, assistant models.Message) error
	TruncateSession(sessionID string, maxMessages int) error
}

// OrchestratorConfig carries the tunables the orchestrator needs.
type OrchestratorConfig struct {
	TopK               int
	ContextTokenBudget int
	HistoryMaxMessages int
}

// Orchestrator runs the read path end to end: retrieve, assemble, generate,
// record. It holds no locks across provider calls.
type Orchestrator struct {
	retriever *Retriever
	completer Completer
	sessions  SessionStore
	cfg       OrchestratorConfig
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(retriever *Retriever, completer Completer, sessions SessionStore, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		retriever: retriever,
		completer: completer,
		sessions:  sessions,
		cfg:       cfg,
	}
}

const groundedInstructions = `You are a document question answering assistant.
Answer using ONLY the context passages provided below. Each passage is tagged
with a marker like [S1]. When your answer draws on a passage, cite it by
including its marker in the answer text. If the passages do not contain the
information needed, say so plainly instead of guessing. Never invent a marker
that is not in the context.`

const urgentInstructions = `This question sounds time-critical. Lead with the
most actionable information from the context and keep the answer short. If
the situation could require professional help, say so explicitly before
anything else.`

const lookupInstructions = `This is a factual lookup. Answer concisely, a
definition or direct fact first, elaboration only if the context provides it.`

const ungroundedInstructions = `You are a document question answering assistant.
No supporting passages were retrieved for this question. State clearly at the
start of your answer that it is NOT backed by the uploaded documents, then
either decline or give a clearly marked general answer. Do not cite sources
and do not fabricate citations.`

// markerPattern matches citation markers the model echoes back, e.g. [S2].
var markerPattern = regexp.MustCompile(`\[S(\d+)\]`)

// Generate answers userQuery within the session's namespace. On success the
// user query and the answer are appended to the session as one exchange; on
// error or cancellation nothing is appended.
func (o *Orchestrator) Generate(ctx context.Context, sessionID, userQuery string) (*models.Answer, error) {
	if strings.TrimSpace(userQuery) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	start := time.Now()

	session, err := o.sessions.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	queryType := ClassifyQuery(userQuery)

	results, err := o.retriever.Retrieve(ctx, session.Namespace, userQuery, o.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	assembled := AssembleContext(results, o.cfg.ContextTokenBudget)
	prompt := o.buildPrompt(session, assembled, queryType, userQuery)

	text, err := o.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	citations := o.resolveCitations(text, assembled)

	answer := &models.Answer{
		Text:       text,
		Citations:  citations,
		Grounded:   assembled.Grounded,
		QueryType:  queryType,
		Confidence: confidence(len(citations), len(text), assembled.Grounded),
		Duration:   time.Since(start),
	}

	// All-or-nothing: a cancelled request must not leave a partial exchange.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userMsg, err := models.NewMessage(models.RoleUser, userQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("building user message: %w", err)
	}
	assistantMsg, err := models.NewMessage(models.RoleAssistant, text, citationIDs(citations))
	if err != nil {
		return nil, fmt.Errorf("building assistant message: %w", err)
	}
	if err := o.sessions.AppendExchange(sessionID, *userMsg, *assistantMsg); err != nil {
		return nil, fmt.Errorf("recording exchange: %w", err)
	}
	if err := o.sessions.TruncateSession(sessionID, o.cfg.HistoryMaxMessages); err != nil {
		return nil, fmt.Errorf("truncating history: %w", err)
	}

	return answer, nil
}

// buildPrompt composes system instructions, truncated history, the context
// block, and the user query.
func (o *Orchestrator) buildPrompt(session *models.Session, assembled AssembledContext, queryType models.QueryType, userQuery string) []models.PromptMessage {
	var system strings.Builder
	if assembled.Grounded {
		system.WriteString(groundedInstructions)
		switch queryType {
		case models.QueryUrgent:
			system.WriteString("\n\n")
			system.WriteString(urgentInstructions)
		case models.QueryLookup:
			system.WriteString("\n\n")
			system.WriteString(lookupInstructions)
		}
	} else {
		system.WriteString(ungroundedInstructions)
	}

	prompt := []models.PromptMessage{{Role: models.SystemRole, Content: system.String()}}

	for _, m := range truncateHistory(session.Messages, o.cfg.HistoryMaxMessages) {
		prompt = append(prompt, models.PromptMessage{Role: m.Role, Content: m.Text})
	}

	if assembled.Grounded {
		prompt = append(prompt, models.PromptMessage{
			Role:    models.SystemRole,
			Content: "Context passages:\n\n" + assembled.Text,
		})
	}

	prompt = append(prompt, models.PromptMessage{Role: models.RoleUser, Content: userQuery})
	return prompt
}

// truncateHistory drops oldest messages first and never starts the retained
// window on an assistant message whose user message was dropped.
func truncateHistory(messages []models.Message, maxMessages int) []models.Message {
	if len(messages) <= maxMessages {
		return messages
	}
	retained := messages[len(messages)-maxMessages:]
	if len(retained) > 0 && retained[0].Role == models.RoleAssistant {
		retained = retained[1:]
	}
	return retained
}

// resolveCitations maps markers echoed in the answer back to chunk ids,
// ordered by marker index. Markers the assembler never issued are ignored;
// ungrounded answers resolve to no citations.
func (o *Orchestrator) resolveCitations(answerText string, assembled AssembledContext) []models.Citation {
	if !assembled.Grounded {
		return nil
	}

	byMarker := make(map[string]models.Citation, len(assembled.Citations))
	for _, c := range assembled.Citations {
		byMarker[c.Marker] = c
	}

	seen := make(map[string]bool)
	var cited []models.Citation
	for _, match := range markerPattern.FindAllString(answerText, -1) {
		if seen[match] {
			continue
		}
		seen[match] = true
		if c, ok := byMarker[match]; ok {
			cited = append(cited, c)
		}
	}
	return cited
}

func citationIDs(citations []models.Citation) []string {
	if len(citations) == 0 {
		return nil
	}
	ids := make([]string, len(citations))
	for i, c := range citations {
		ids[i] = c.ChunkID
	}
	return ids
}

// confidence scores an answer from its citation count and length. Ungrounded
// answers are capped low so callers can rank them below any grounded one.
func confidence(citationCount, answerLen int, grounded bool) float64 {
	if !grounded {
		return 0.2
	}
	lengthPart := float64(answerLen)
	if lengthPart > 1000 {
		lengthPart = 1000
	}
	score := float64(citationCount)*0.2 + lengthPart/1000*0.5 + 0.3
	if score > 0.95 {
		score = 0.95
	}
	return score
}

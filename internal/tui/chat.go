// ABOUTME: Bubble Tea chat interface over a conversation session
// ABOUTME: Questions run asynchronously; the transcript marks ungrounded answers
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/docchat/docchat/internal/models"
)

// Answerer is the TUI-facing slice of the generation pipeline.
type Answerer interface {
	Generate(ctx context.Context, sessionID, userQuery string) (*models.Answer, error)
}

// answerMsg carries a completed generation back into the update loop.
type answerMsg struct {
	question string
	answer   *models.Answer
	err      error
}

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	answerer   Answerer
	sessionID  string
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	status     string
	waiting    bool
	ready      bool
}

// New creates a chat model bound to one session.
func New(answerer Answerer, sessionID string, history []models.Message) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)

	m := Model{
		answerer:  answerer,
		sessionID: sessionID,
		input:     ti,
		viewport:  vp,
		status:    "Ready.",
	}
	for _, msg := range history {
		m.transcript = append(m.transcript, renderMessage(msg))
	}
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header, spacer, input frame, status
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = maxInt(3, vh-th)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.viewport.SetContent(m.renderTranscript())
			return m, nil
		}
		m.transcript = append(m.transcript,
			userStyle.Render("you: ")+msg.question,
			renderAnswer(msg.answer))
		m.status = fmt.Sprintf("Answered in %s (confidence %.2f)", msg.answer.Duration.Round(10*time.Millisecond), msg.answer.Confidence)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.waiting {
				m.input.SetValue("")
				m.waiting = true
				m.status = "Thinking..."
				return m, m.ask(q)
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs generation off the update loop and reports back as an answerMsg.
func (m Model) ask(question string) tea.Cmd {
	answerer, sessionID := m.answerer, m.sessionID
	return func() tea.Msg {
		answer, err := answerer.Generate(context.Background(), sessionID, question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docchat session " + m.sessionID)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No messages yet. Ingest documents with `docchat ingest`, then ask away."
	}
	return strings.Join(m.transcript, "\n\n")
}

func renderMessage(msg models.Message) string {
	if msg.Role == models.RoleUser {
		return userStyle.Render("you: ") + msg.Text
	}
	return assistantStyle.Render("docchat: ") + msg.Text
}

func renderAnswer(answer *models.Answer) string {
	text := assistantStyle.Render("docchat: ") + answer.Text
	if !answer.Grounded {
		return text + "\n" + ungroundedStyle.Render("(not backed by your documents)")
	}
	if len(answer.Citations) > 0 {
		refs := make([]string, len(answer.Citations))
		for i, c := range answer.Citations {
			refs[i] = fmt.Sprintf("%s %s", c.Marker, c.DocumentID)
		}
		text += "\n" + citationStyle.Render("sources: "+strings.Join(refs, ", "))
	}
	return text
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	citationStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	ungroundedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Italic(true)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

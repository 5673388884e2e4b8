// ABOUTME: CLI command that opens the interactive chat interface
// ABOUTME: Runs the Bubble Tea program over one session
package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/tui"
)

var chatSession string

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively with your documents",
		Long: `Open an interactive chat over a session's documents.

Earlier messages in the session are shown and answers stream into the
transcript with their sources. Press Ctrl+C to leave.`,
		RunE: runChat,
	}

	cmd.Flags().StringVarP(&chatSession, "session", "s", "default", "Session to chat in")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	session, err := p.store.GetSession(chatSession)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	model := tui.New(p.orchestrator, session.SessionID, session.Messages)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat interface: %w", err)
	}
	return nil
}

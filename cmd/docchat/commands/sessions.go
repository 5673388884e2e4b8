// ABOUTME: CLI commands to list and clear conversation sessions
// ABOUTME: Clearing a sole-owner session tears down its document namespace
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSessionsCmd creates the sessions command group
func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage conversation sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all sessions",
		RunE:  runSessionsList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear [session-id]",
		Short: "Delete a session and its history",
		Long: `Delete a session and its message history.

If no other session shares the session's document namespace, its documents
and index entries are removed as well.`,
		Args: cobra.ExactArgs(1),
		RunE: runSessionsClear,
	})

	return cmd
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	sessions, err := p.store.ListSessions()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if jsonOutput() {
		out, err := json.Marshal(sessions)
		if err != nil {
			return fmt.Errorf("encoding sessions: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions yet.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s namespace=%-20s updated %s\n",
			s.SessionID, s.Namespace, formatTime(s.UpdatedAt))
	}
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sessionID := args[0]

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	namespace, soleOwner, err := p.store.ClearSession(sessionID)
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if namespace == "" {
		return fmt.Errorf("session %s not found", sessionID)
	}

	if soleOwner {
		if err := p.idx.DeleteNamespace(ctx, namespace); err != nil {
			return fmt.Errorf("removing index namespace: %w", err)
		}
		if err := p.store.DeleteNamespaceDocuments(namespace); err != nil {
			return fmt.Errorf("removing namespace documents: %w", err)
		}
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared session %s\n", sessionID)
		if soleOwner {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed documents and index entries for namespace %s\n", namespace)
		}
	}
	return nil
}

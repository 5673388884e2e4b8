// ABOUTME: CLI command to export a session transcript
// ABOUTME: Writes the conversation as YAML to a file or stdout
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportOutput string

// transcript is the exported document shape.
type transcript struct {
	SessionID  string              `yaml:"session_id"`
	Namespace  string              `yaml:"namespace"`
	ExportedAt string              `yaml:"exported_at"`
	Messages   []transcriptMessage `yaml:"messages"`
}

type transcriptMessage struct {
	Role      string   `yaml:"role"`
	Text      string   `yaml:"text"`
	Timestamp string   `yaml:"timestamp"`
	Citations []string `yaml:"citations,omitempty"`
}

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Export a session transcript as YAML",
		Long: `Export a session's conversation history as YAML.

Examples:
  docchat export work
  docchat export work -o work-transcript.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	session, err := p.store.GetSession(args[0])
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	out := transcript{
		SessionID:  session.SessionID,
		Namespace:  session.Namespace,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, m := range session.Messages {
		out.Messages = append(out.Messages, transcriptMessage{
			Role:      string(m.Role),
			Text:      m.Text,
			Timestamp: m.Timestamp.Format(time.RFC3339),
			Citations: m.Citations,
		})
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}

	if exportOutput == "" {
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	}
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", exportOutput, err)
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d messages to %s\n", len(out.Messages), exportOutput)
	}
	return nil
}

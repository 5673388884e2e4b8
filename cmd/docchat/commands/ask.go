// ABOUTME: CLI command to ask a single question over a session's documents
// ABOUTME: Prints the answer with citations and flags ungrounded answers
package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var askSession string

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question over the session's documents",
		Long: `Ask a question and get an answer grounded in the session's documents.

The answer cites the passages it draws on with markers like [S1]. If no
relevant passages are found, the answer is flagged as not document-backed.

Examples:
  docchat ask "what were the action items?"
  docchat ask --session work "who owns the rollout?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().StringVarP(&askSession, "session", "s", "default", "Session to ask within")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	answer, err := p.orchestrator.Generate(ctx, askSession, question)
	if err != nil {
		return err
	}

	if jsonOutput() {
		out, err := json.Marshal(map[string]interface{}{
			"answer":      answer.Text,
			"grounded":    answer.Grounded,
			"citations":   answer.Citations,
			"query_type":  string(answer.QueryType),
			"confidence":  answer.Confidence,
			"duration_ms": answer.Duration.Milliseconds(),
		})
		if err != nil {
			return fmt.Errorf("encoding answer: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer.Text)

	if !answer.Grounded {
		fmt.Fprintln(cmd.OutOrStdout(), "\n⚠ This answer is not backed by your documents.")
		return nil
	}
	if len(answer.Citations) > 0 && !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "\nSources:")
		for _, c := range answer.Citations {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", c.Marker, c.ChunkID)
		}
	}
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "\n(%s query, confidence %.2f, %s)\n",
			answer.QueryType, answer.Confidence, answer.Duration.Round(time.Millisecond))
	}

	return nil
}

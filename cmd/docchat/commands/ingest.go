// ABOUTME: CLI command to ingest documents into a session's document set
// ABOUTME: Reads files or stdin, infers format, and reports the chunk count
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/extract"
	"github.com/docchat/docchat/internal/models"
)

var (
	ingestSession string
	ingestName    string
	ingestFormat  string
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest documents for question answering",
		Long: `Ingest one or more documents into a session's document set.

Each document is chunked, embedded, and indexed. Re-ingesting a file with
the same name replaces the previous version instead of duplicating it.

Examples:
  docchat ingest --session work notes.md report.pdf
  cat notes.txt | docchat ingest --session work --name notes.txt`,
		RunE: runIngest,
	}

	cmd.Flags().StringVarP(&ingestSession, "session", "s", "default", "Session to ingest into")
	cmd.Flags().StringVar(&ingestName, "name", "", "Document name when reading from stdin")
	cmd.Flags().StringVar(&ingestFormat, "format", "", "Force document format: text, markdown, or pdf")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	session, err := p.store.GetSession(ingestSession)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	type upload struct {
		name string
		data []byte
	}
	var uploads []upload

	if len(args) == 0 {
		if ingestName == "" {
			return fmt.Errorf("reading from stdin requires --name")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		uploads = append(uploads, upload{name: ingestName, data: data})
	} else {
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			uploads = append(uploads, upload{name: filepath.Base(path), data: data})
		}
	}

	for _, u := range uploads {
		docFormat := models.DocumentFormat(ingestFormat)
		if docFormat == "" {
			docFormat, err = extract.FormatFromExtension(filepath.Ext(u.name))
			if err != nil {
				return fmt.Errorf("%s: %w (use --format to override)", u.name, err)
			}
		}

		report, err := p.ingestor.Ingest(ctx, session.Namespace, u.name, u.data, docFormat)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", u.name, err)
		}

		if jsonOutput() {
			out, err := json.Marshal(report)
			if err != nil {
				return fmt.Errorf("encoding report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			continue
		}
		if !quiet {
			action := "Ingested"
			if report.Replaced {
				action = "Replaced"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s (%s): %d chunks, %d tokens\n",
				action, u.name, report.DocumentID, report.ChunkCount, report.TokenCount)
		}
	}

	return nil
}

// ABOUTME: CLI commands to list and delete a session's documents
// ABOUTME: Deletion removes both stored rows and index entries
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsSession string

// NewDocumentsCmd creates the documents command group
func NewDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage a session's documents",
	}

	cmd.PersistentFlags().StringVarP(&documentsSession, "session", "s", "default", "Session whose documents to manage")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		RunE:  runDocumentsList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [document-id]",
		Short: "Delete a document and its index entries",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocumentsDelete,
	})

	return cmd
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	session, err := p.store.GetSession(documentsSession)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	docs, err := p.store.ListDocuments(session.Namespace)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if jsonOutput() {
		out, err := json.Marshal(docs)
		if err != nil {
			return fmt.Errorf("encoding documents: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents ingested yet.")
		return nil
	}
	for _, doc := range docs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %-30s %s\n",
			doc.DocumentID, doc.Format, truncate(doc.Name, 30), formatTime(doc.UploadedAt))
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	session, err := p.store.GetSession(documentsSession)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	documentID := args[0]
	doc, err := p.store.GetDocument(session.Namespace, documentID)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document %s not found in this session", documentID)
	}

	if err := p.ingestor.DeleteDocument(ctx, session.Namespace, documentID); err != nil {
		return err
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s (%s)\n", doc.Name, documentID)
	}
	return nil
}

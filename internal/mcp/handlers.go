// ABOUTME: MCP tool handler implementations for the docchat server
// ABOUTME: Each handler resolves the session's namespace before touching documents
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docchat/docchat/internal/core"
	"github.com/docchat/docchat/internal/extract"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/models"
	"github.com/docchat/docchat/internal/storage"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	storage      *storage.Storage
	ingestor     *core.Ingestor
	orchestrator *core.Orchestrator
	idx          index.Index
}

// IngestDocument handles the ingest_document tool
func (h *Handlers) IngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name argument is required and must be a string"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required and must be a string"), nil
	}

	format := models.DocumentFormat(request.GetString("format", ""))
	if format == "" {
		format, err = extract.FormatFromExtension(filepath.Ext(name))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cannot infer format: %v", err)), nil
		}
	}

	session, err := h.storage.GetSession(sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load session: %v", err)), nil
	}

	report, err := h.ingestor.Ingest(ctx, session.Namespace, name, []byte(content), format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingestion failed: %v", err)), nil
	}

	responseJSON, err := json.Marshal(report)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// AskQuestion handles the ask_question tool
func (h *Handlers) AskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}

	answer, err := h.orchestrator.Generate(ctx, sessionID, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	citations := make([]map[string]interface{}, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		citations = append(citations, map[string]interface{}{
			"marker":      c.Marker,
			"chunk_id":    c.ChunkID,
			"document_id": c.DocumentID,
		})
	}

	response := map[string]interface{}{
		"answer":      answer.Text,
		"grounded":    answer.Grounded,
		"citations":   citations,
		"query_type":  string(answer.QueryType),
		"confidence":  answer.Confidence,
		"duration_ms": answer.Duration.Milliseconds(),
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// ListDocuments handles the list_documents tool
func (h *Handlers) ListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	session, err := h.storage.GetSession(sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load session: %v", err)), nil
	}

	docs, err := h.storage.ListDocuments(session.Namespace)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err)), nil
	}

	documents := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		documents = append(documents, map[string]interface{}{
			"document_id": doc.DocumentID,
			"name":        doc.Name,
			"format":      string(doc.Format),
			"uploaded_at": doc.UploadedAt.Format(time.RFC3339),
		})
	}

	responseJSON, err := json.Marshal(map[string]interface{}{"documents": documents})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// DeleteDocument handles the delete_document tool
func (h *Handlers) DeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}
	documentID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id argument is required and must be a string"), nil
	}

	session, err := h.storage.GetSession(sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load session: %v", err)), nil
	}

	if err := h.ingestor.DeleteDocument(ctx, session.Namespace, documentID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("deletion failed: %v", err)), nil
	}

	responseJSON, _ := json.Marshal(map[string]interface{}{
		"deleted":     true,
		"document_id": documentID,
	})
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// ListSessions handles the list_sessions tool
func (h *Handlers) ListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := h.storage.ListSessions()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	list := make([]map[string]interface{}, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, map[string]interface{}{
			"session_id": s.SessionID,
			"namespace":  s.Namespace,
			"created_at": s.CreatedAt.Format(time.RFC3339),
			"updated_at": s.UpdatedAt.Format(time.RFC3339),
		})
	}

	responseJSON, err := json.Marshal(map[string]interface{}{"sessions": list})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// ClearSession handles the clear_session tool
func (h *Handlers) ClearSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id argument is required and must be a string"), nil
	}

	namespace, soleOwner, err := h.storage.ClearSession(sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear session: %v", err)), nil
	}

	namespaceCleared := false
	if soleOwner && namespace != "" {
		if err := h.idx.DeleteNamespace(ctx, namespace); err != nil {
			log.Printf("[MCP] failed to tear down index namespace %s: %v", namespace, err)
		} else if err := h.storage.DeleteNamespaceDocuments(namespace); err != nil {
			log.Printf("[MCP] failed to delete documents in namespace %s: %v", namespace, err)
		} else {
			namespaceCleared = true
		}
	}

	responseJSON, _ := json.Marshal(map[string]interface{}{
		"cleared":           namespace != "",
		"namespace_cleared": namespaceCleared,
	})
	return mcp.NewToolResultText(string(responseJSON)), nil
}

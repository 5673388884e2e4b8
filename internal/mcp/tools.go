// ABOUTME: MCP tool definitions and registration for the docchat server
// ABOUTME: Defines JSON schemas for the document and conversation tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/docchat/docchat/internal/core"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/storage"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, store *storage.Storage, ingestor *core.Ingestor, orchestrator *core.Orchestrator, idx index.Index) *Handlers {
	handlers := &Handlers{
		storage:      store,
		ingestor:     ingestor,
		orchestrator: orchestrator,
		idx:          idx,
	}

	// 1. ingest_document - Upload a document into a session's namespace
	server.AddTool(mcp.Tool{
		Name:        "ingest_document",
		Description: "Ingest a document into a session's document set. The document is chunked, embedded, and indexed; re-ingesting the same name replaces the previous version.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session whose document set receives the document",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Document name, e.g. notes.md",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Document text content",
				},
				"format": map[string]interface{}{
					"type":        "string",
					"description": "Document format: text or markdown (default: inferred from name)",
				},
			},
			Required: []string{"session_id", "name", "content"},
		},
	}, handlers.IngestDocument)

	// 2. ask_question - Answer a question over the session's documents
	server.AddTool(mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question using the session's ingested documents. The answer carries citation markers and a grounded flag; the exchange is recorded in the session history.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to ask within",
				},
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer",
				},
			},
			Required: []string{"session_id", "question"},
		},
	}, handlers.AskQuestion)

	// 3. list_documents - List documents in a session's namespace
	server.AddTool(mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents ingested into a session's document set.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session whose documents to list",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.ListDocuments)

	// 4. delete_document - Remove a document and its index entries
	server.AddTool(mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document from a session's document set, removing all of its chunks from the index.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session the document belongs to",
				},
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document id to delete",
				},
			},
			Required: []string{"session_id", "document_id"},
		},
	}, handlers.DeleteDocument)

	// 5. list_sessions - List all conversation sessions
	server.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all conversation sessions with their namespaces and timestamps.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.ListSessions)

	// 6. clear_session - Delete a session and tear down its namespace
	server.AddTool(mcp.Tool{
		Name:        "clear_session",
		Description: "Delete a session and its message history. If the session was the sole owner of its document namespace, the namespace's documents and index entries are removed as well.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session to clear",
				},
			},
			Required: []string{"session_id"},
		},
	}, handlers.ClearSession)

	return handlers
}

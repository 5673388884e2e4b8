// ABOUTME: Tests for SQLite document and session persistence
// ABOUTME: Covers chunk replacement, exchange atomicity, truncation pairing, namespace teardown
package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/docchat/docchat/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorageAt(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStorageAt failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument(namespace, name string) *models.Document {
	return &models.Document{
		DocumentID: models.DeterministicDocumentID(namespace, name),
		Namespace:  namespace,
		Name:       name,
		Format:     models.FormatPlainText,
		Text:       "alpha beta gamma delta",
		UploadedAt: time.Now().UTC(),
	}
}

func testChunks(documentID string, n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{
			DocumentID: documentID,
			Seq:        i,
			Text:       "chunk text",
			Start:      i * 10,
			End:        i*10 + 10,
			TokenCount: 2,
		}
	}
	return chunks
}

func TestSaveAndGetDocument(t *testing.T) {
	store := newTestStorage(t)

	doc := testDocument("ns1", "notes.txt")
	if err := store.SaveDocument(doc, testChunks(doc.DocumentID, 3)); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	got, err := store.GetDocument("ns1", doc.DocumentID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected document, got nil")
	}
	if got.Name != "notes.txt" || got.Format != models.FormatPlainText || got.Text != doc.Text {
		t.Errorf("document round-trip mismatch: %+v", got)
	}

	chunks, err := store.GetChunks(doc.DocumentID)
	if err != nil {
		t.Fatalf("GetChunks failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Seq != i {
			t.Errorf("chunk %d out of order, seq=%d", i, c.Seq)
		}
	}
}

func TestGetDocumentMissing(t *testing.T) {
	store := newTestStorage(t)

	got, err := store.GetDocument("ns1", "doc_missing")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing document, got %+v", got)
	}
}

func TestSaveDocumentReplacesChunks(t *testing.T) {
	store := newTestStorage(t)

	doc := testDocument("ns1", "notes.txt")
	if err := store.SaveDocument(doc, testChunks(doc.DocumentID, 5)); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	// Re-ingesting a shrunk document must not leave stale chunks behind
	if err := store.SaveDocument(doc, testChunks(doc.DocumentID, 2)); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	chunks, err := store.GetChunks(doc.DocumentID)
	if err != nil {
		t.Fatalf("GetChunks failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks after replacement, got %d", len(chunks))
	}
}

func TestGetDocumentNamespaceIsolation(t *testing.T) {
	store := newTestStorage(t)

	doc := testDocument("ns1", "notes.txt")
	if err := store.SaveDocument(doc, nil); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	got, err := store.GetDocument("ns2", doc.DocumentID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got != nil {
		t.Error("document visible from wrong namespace")
	}
}

func TestDeleteDocument(t *testing.T) {
	store := newTestStorage(t)

	doc := testDocument("ns1", "notes.txt")
	if err := store.SaveDocument(doc, testChunks(doc.DocumentID, 3)); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if err := store.DeleteDocument("ns1", doc.DocumentID); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}

	got, err := store.GetDocument("ns1", doc.DocumentID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got != nil {
		t.Error("document still present after delete")
	}
	chunks, err := store.GetChunks(doc.DocumentID)
	if err != nil {
		t.Fatalf("GetChunks failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks after delete, got %d", len(chunks))
	}
}

func TestListDocuments(t *testing.T) {
	store := newTestStorage(t)

	for _, name := range []string{"a.txt", "b.txt"} {
		if err := store.SaveDocument(testDocument("ns1", name), nil); err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}
	}
	if err := store.SaveDocument(testDocument("ns2", "c.txt"), nil); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	docs, err := store.ListDocuments("ns1")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents in ns1, got %d", len(docs))
	}
}

func TestDeleteNamespaceDocuments(t *testing.T) {
	store := newTestStorage(t)

	doc1 := testDocument("ns1", "a.txt")
	doc2 := testDocument("ns1", "b.txt")
	keep := testDocument("ns2", "c.txt")
	for _, d := range []*models.Document{doc1, doc2, keep} {
		if err := store.SaveDocument(d, testChunks(d.DocumentID, 2)); err != nil {
			t.Fatalf("SaveDocument failed: %v", err)
		}
	}

	if err := store.DeleteNamespaceDocuments("ns1"); err != nil {
		t.Fatalf("DeleteNamespaceDocuments failed: %v", err)
	}

	docs, err := store.ListDocuments("ns1")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected ns1 empty, got %d documents", len(docs))
	}
	chunks, err := store.GetChunks(doc1.DocumentID)
	if err != nil {
		t.Fatalf("GetChunks failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Error("chunks survived namespace deletion")
	}

	kept, err := store.GetDocument("ns2", keep.DocumentID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if kept == nil {
		t.Error("other namespace was affected by deletion")
	}
}

func TestGetSessionCreatesOnFirstAccess(t *testing.T) {
	store := newTestStorage(t)

	session, err := store.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.SessionID != "sess-1" {
		t.Errorf("expected session id sess-1, got %q", session.SessionID)
	}
	if session.Namespace != "sess-1" {
		t.Errorf("expected namespace to default to session id, got %q", session.Namespace)
	}
	if len(session.Messages) != 0 {
		t.Errorf("fresh session should have no messages, got %d", len(session.Messages))
	}

	again, err := store.GetSession("sess-1")
	if err != nil {
		t.Fatalf("second GetSession failed: %v", err)
	}
	if !again.CreatedAt.Equal(session.CreatedAt) {
		t.Error("second access created a new session")
	}
}

func TestGetSessionEmptyID(t *testing.T) {
	store := newTestStorage(t)

	if _, err := store.GetSession("  "); err == nil {
		t.Error("expected error for blank session id")
	}
}

func mustMessage(t *testing.T, role models.Role, text string, citations []string) models.Message {
	t.Helper()
	m, err := models.NewMessage(role, text, citations)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	return *m
}

func TestAppendExchange(t *testing.T) {
	store := newTestStorage(t)

	user := mustMessage(t, models.RoleUser, "what is chunking?", nil)
	assistant := mustMessage(t, models.RoleAssistant, "splitting text into pieces [S1]", []string{"doc_abc:1"})

	if err := store.AppendExchange("sess-1", user, assistant); err != nil {
		t.Fatalf("AppendExchange failed: %v", err)
	}

	session, err := store.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(session.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(session.Messages))
	}
	if session.Messages[0].Role != models.RoleUser || session.Messages[1].Role != models.RoleAssistant {
		t.Error("messages out of order or wrong roles")
	}
	if len(session.Messages[1].Citations) != 1 || session.Messages[1].Citations[0] != "doc_abc:1" {
		t.Errorf("citations not round-tripped: %v", session.Messages[1].Citations)
	}
	if session.Messages[0].Citations != nil {
		t.Error("user message should have no citations")
	}
}

func appendExchanges(t *testing.T, store *Storage, sessionID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		user := mustMessage(t, models.RoleUser, "question", nil)
		assistant := mustMessage(t, models.RoleAssistant, "answer", nil)
		if err := store.AppendExchange(sessionID, user, assistant); err != nil {
			t.Fatalf("AppendExchange failed: %v", err)
		}
	}
}

func TestTruncateSession(t *testing.T) {
	store := newTestStorage(t)
	appendExchanges(t, store, "sess-1", 5) // 10 messages

	if err := store.TruncateSession("sess-1", 4); err != nil {
		t.Fatalf("TruncateSession failed: %v", err)
	}

	session, err := store.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(session.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(session.Messages))
	}
	if session.Messages[0].Role != models.RoleUser {
		t.Error("truncated history should start with a user message")
	}
}

func TestTruncateSessionDropsDanglingAssistant(t *testing.T) {
	store := newTestStorage(t)
	appendExchanges(t, store, "sess-1", 3) // 6 messages

	// An odd cap would leave an assistant message first; pairing drops it
	if err := store.TruncateSession("sess-1", 3); err != nil {
		t.Fatalf("TruncateSession failed: %v", err)
	}

	session, err := store.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(session.Messages) != 2 {
		t.Fatalf("expected 2 messages after pairing, got %d", len(session.Messages))
	}
	if session.Messages[0].Role != models.RoleUser {
		t.Error("truncated history should start with a user message")
	}
}

func TestTruncateSessionUnderLimit(t *testing.T) {
	store := newTestStorage(t)
	appendExchanges(t, store, "sess-1", 2)

	if err := store.TruncateSession("sess-1", 10); err != nil {
		t.Fatalf("TruncateSession failed: %v", err)
	}

	session, err := store.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(session.Messages) != 4 {
		t.Errorf("expected all 4 messages kept, got %d", len(session.Messages))
	}
}

func TestClearSessionSoleOwner(t *testing.T) {
	store := newTestStorage(t)
	appendExchanges(t, store, "sess-1", 2)

	namespace, soleOwner, err := store.ClearSession("sess-1")
	if err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	if namespace != "sess-1" {
		t.Errorf("expected namespace sess-1, got %q", namespace)
	}
	if !soleOwner {
		t.Error("expected sole ownership of namespace")
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions after clear, got %d", len(sessions))
	}
}

func TestClearSessionMissing(t *testing.T) {
	store := newTestStorage(t)

	namespace, soleOwner, err := store.ClearSession("nope")
	if err != nil {
		t.Fatalf("ClearSession failed: %v", err)
	}
	if namespace != "" || soleOwner {
		t.Errorf("expected empty result for missing session, got %q %v", namespace, soleOwner)
	}
}

func TestListSessions(t *testing.T) {
	store := newTestStorage(t)

	if _, err := store.GetSession("a"); err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if _, err := store.GetSession("b"); err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}

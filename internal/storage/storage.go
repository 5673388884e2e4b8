// ABOUTME: SQLite-backed persistence for documents, chunks, sessions, messages
// ABOUTME: Uses XDG data directory; writes are serialized behind a mutex
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"

	"github.com/docchat/docchat/internal/models"
)

// Storage manages all persistent data for docchat.
type Storage struct {
	db *sql.DB
	mu sync.Mutex // Protects multi-statement write operations
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	document_id TEXT PRIMARY KEY,
	namespace   TEXT NOT NULL,
	name        TEXT NOT NULL,
	format      TEXT NOT NULL,
	text        TEXT NOT NULL,
	uploaded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_namespace ON documents(namespace);

CREATE TABLE IF NOT EXISTS chunks (
	chunk_id     TEXT PRIMARY KEY,
	document_id  TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	overlap      INTEGER NOT NULL,
	token_count  INTEGER NOT NULL,
	text         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

CREATE TABLE IF NOT EXISTS index_entries (
	namespace    TEXT NOT NULL,
	chunk_id     TEXT NOT NULL,
	document_id  TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	token_count  INTEGER NOT NULL,
	text         TEXT NOT NULL,
	model        TEXT NOT NULL,
	dimension    INTEGER NOT NULL,
	vector       TEXT NOT NULL,
	PRIMARY KEY (namespace, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_entries_document ON index_entries(namespace, document_id);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	namespace  TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL,
	timestamp  TIMESTAMP NOT NULL,
	citations  TEXT
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`

// NewStorage initializes storage with XDG-compliant paths
func NewStorage() (*Storage, error) {
	// Use XDG data directory: ~/.local/share/docchat/
	// Respects XDG_DATA_HOME environment variable override for testing
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	basePath := filepath.Join(dataHome, "docchat")
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", basePath, err)
	}
	return NewStorageAt(filepath.Join(basePath, "docchat.db"))
}

// NewStorageAt opens (or creates) the database at an explicit path.
func NewStorageAt(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveDocument stores a document and its chunks, replacing any previous
// version of the same document in one transaction.
func (s *Storage) SaveDocument(doc *models.Document, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO documents
		(document_id, namespace, name, format, text, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.DocumentID, doc.Namespace, doc.Name, string(doc.Format), doc.Text, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM chunks WHERE document_id = ?`, doc.DocumentID); err != nil {
		return fmt.Errorf("clearing old chunks: %w", err)
	}
	for _, c := range chunks {
		_, err := tx.Exec(`INSERT INTO chunks
			(chunk_id, document_id, seq, start_offset, end_offset, overlap, token_count, text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID(), c.DocumentID, c.Seq, c.Start, c.End, c.Overlap, c.TokenCount, c.Text)
		if err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID(), err)
		}
	}

	return tx.Commit()
}

// GetDocument loads a document by id within a namespace. Returns nil without
// error when the document does not exist.
func (s *Storage) GetDocument(namespace, documentID string) (*models.Document, error) {
	row := s.db.QueryRow(`SELECT document_id, namespace, name, format, text, uploaded_at
		FROM documents WHERE namespace = ? AND document_id = ?`, namespace, documentID)

	var doc models.Document
	var format string
	err := row.Scan(&doc.DocumentID, &doc.Namespace, &doc.Name, &format, &doc.Text, &doc.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	doc.Format = models.DocumentFormat(format)
	return &doc, nil
}

// ListDocuments returns the documents in a namespace, newest first.
func (s *Storage) ListDocuments(namespace string) ([]models.Document, error) {
	rows, err := s.db.Query(`SELECT document_id, namespace, name, format, text, uploaded_at
		FROM documents WHERE namespace = ? ORDER BY uploaded_at DESC`, namespace)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var format string
		if err := rows.Scan(&doc.DocumentID, &doc.Namespace, &doc.Name, &format, &doc.Text, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Format = models.DocumentFormat(format)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetChunks loads a document's chunks ordered by sequence.
func (s *Storage) GetChunks(documentID string) ([]models.Chunk, error) {
	rows, err := s.db.Query(`SELECT document_id, seq, start_offset, end_offset, overlap, token_count, text
		FROM chunks WHERE document_id = ? ORDER BY seq ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.DocumentID, &c.Seq, &c.Start, &c.End, &c.Overlap, &c.TokenCount, &c.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document and its chunks in one transaction.
func (s *Storage) DeleteDocument(namespace, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE namespace = ? AND document_id = ?`, namespace, documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	return tx.Commit()
}

// DeleteNamespaceDocuments removes every document and chunk in a namespace.
func (s *Storage) DeleteNamespaceDocuments(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chunks WHERE document_id IN
		(SELECT document_id FROM documents WHERE namespace = ?)`, namespace); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE namespace = ?`, namespace); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	return tx.Commit()
}

// SaveIndexEntries stores embedded chunks so an in-process vector index can
// be rebuilt across restarts. Entries replace by (namespace, chunk id).
func (s *Storage) SaveIndexEntries(namespace string, entries []models.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		vector, err := json.Marshal(e.Embedding.Vector)
		if err != nil {
			return fmt.Errorf("encoding vector for %s: %w", e.ChunkID, err)
		}
		_, err = tx.Exec(`INSERT OR REPLACE INTO index_entries
			(namespace, chunk_id, document_id, seq, start_offset, end_offset, token_count, text, model, dimension, vector)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			namespace, e.ChunkID, e.DocumentID, e.Seq, e.Start, e.End, e.TokenCount,
			e.Text, e.Embedding.Model, e.Embedding.Dimension, string(vector))
		if err != nil {
			return fmt.Errorf("saving index entry %s: %w", e.ChunkID, err)
		}
	}

	return tx.Commit()
}

// LoadIndexEntries returns all stored entries for a namespace.
func (s *Storage) LoadIndexEntries(namespace string) ([]models.IndexEntry, error) {
	rows, err := s.db.Query(`SELECT chunk_id, document_id, seq, start_offset, end_offset, token_count, text, model, dimension, vector
		FROM index_entries WHERE namespace = ? ORDER BY chunk_id ASC`, namespace)
	if err != nil {
		return nil, fmt.Errorf("loading index entries: %w", err)
	}
	defer rows.Close()

	var entries []models.IndexEntry
	for rows.Next() {
		var e models.IndexEntry
		var vector string
		err := rows.Scan(&e.ChunkID, &e.DocumentID, &e.Seq, &e.Start, &e.End, &e.TokenCount,
			&e.Text, &e.Embedding.Model, &e.Embedding.Dimension, &vector)
		if err != nil {
			return nil, fmt.Errorf("scanning index entry: %w", err)
		}
		if err := json.Unmarshal([]byte(vector), &e.Embedding.Vector); err != nil {
			return nil, fmt.Errorf("decoding vector for %s: %w", e.ChunkID, err)
		}
		e.Embedding.ChunkID = e.ChunkID
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListIndexNamespaces returns every namespace with stored entries.
func (s *Storage) ListIndexNamespaces() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT namespace FROM index_entries ORDER BY namespace ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing index namespaces: %w", err)
	}
	defer rows.Close()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scanning namespace: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

// DeleteIndexEntriesForDocument removes a document's stored entries.
func (s *Storage) DeleteIndexEntriesForDocument(namespace, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM index_entries WHERE namespace = ? AND document_id = ?`, namespace, documentID)
	if err != nil {
		return fmt.Errorf("deleting index entries: %w", err)
	}
	return nil
}

// DeleteIndexNamespace removes every stored entry in a namespace.
func (s *Storage) DeleteIndexNamespace(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM index_entries WHERE namespace = ?`, namespace)
	if err != nil {
		return fmt.Errorf("deleting index namespace: %w", err)
	}
	return nil
}

// GetSession loads a session, creating it on first access. A fresh session's
// namespace defaults to its own id, giving each conversation an isolated
// document set until the caller binds it elsewhere.
func (s *Storage) GetSession(sessionID string) (*models.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id cannot be empty")
	}

	session, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	s.mu.Lock()
	now := time.Now().UTC()
	_, err = s.db.Exec(`INSERT OR IGNORE INTO sessions (session_id, namespace, created_at, updated_at)
		VALUES (?, ?, ?, ?)`, sessionID, sessionID, now, now)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return s.loadSession(sessionID)
}

func (s *Storage) loadSession(sessionID string) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT session_id, namespace, created_at, updated_at
		FROM sessions WHERE session_id = ?`, sessionID)

	var session models.Session
	err := row.Scan(&session.SessionID, &session.Namespace, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	rows, err := s.db.Query(`SELECT role, text, timestamp, citations
		FROM messages WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Message
		var role string
		var citations sql.NullString
		if err := rows.Scan(&role, &m.Text, &m.Timestamp, &citations); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = models.Role(role)
		if citations.Valid && citations.String != "" {
			if err := json.Unmarshal([]byte(citations.String), &m.Citations); err != nil {
				return nil, fmt.Errorf("decoding citations: %w", err)
			}
		}
		session.Messages = append(session.Messages, m)
	}
	return &session, rows.Err()
}

// AppendExchange appends a user/assistant message pair in one transaction,
// so a failed or cancelled request never leaves half an exchange behind.
func (s *Storage) AppendExchange(sessionID string, user, assistant models.Message) error {
	if _, err := s.GetSession(sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range []models.Message{user, assistant} {
		var citations any
		if len(m.Citations) > 0 {
			b, err := json.Marshal(m.Citations)
			if err != nil {
				return fmt.Errorf("encoding citations: %w", err)
			}
			citations = string(b)
		}
		_, err := tx.Exec(`INSERT INTO messages (session_id, role, text, timestamp, citations)
			VALUES (?, ?, ?, ?, ?)`, sessionID, string(m.Role), m.Text, m.Timestamp, citations)
		if err != nil {
			return fmt.Errorf("appending message: %w", err)
		}
	}

	if _, err := tx.Exec(`UPDATE sessions SET updated_at = ? WHERE session_id = ?`,
		time.Now().UTC(), sessionID); err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	return tx.Commit()
}

// TruncateSession drops oldest messages until at most maxMessages remain.
// If the cut would leave a leading assistant message without its user
// message, that assistant message is dropped as well.
func (s *Storage) TruncateSession(sessionID string, maxMessages int) error {
	if maxMessages < 0 {
		return fmt.Errorf("maxMessages cannot be negative, got %d", maxMessages)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, role FROM messages WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return fmt.Errorf("listing messages: %w", err)
	}

	type msgRow struct {
		id   int64
		role string
	}
	var all []msgRow
	for rows.Next() {
		var m msgRow
		if err := rows.Scan(&m.id, &m.role); err != nil {
			rows.Close()
			return fmt.Errorf("scanning message: %w", err)
		}
		all = append(all, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(all) <= maxMessages {
		return nil
	}

	drop := len(all) - maxMessages
	// Role pairing: never leave a dangling assistant message at the cut.
	if drop < len(all) && all[drop].role == string(models.RoleAssistant) {
		drop++
	}

	cutoff := all[drop-1].id
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ? AND id <= ?`, sessionID, cutoff); err != nil {
		return fmt.Errorf("truncating messages: %w", err)
	}
	return nil
}

// ClearSession deletes a session and its messages. It reports the session's
// namespace and whether this session was that namespace's sole owner, so the
// caller can tear down the namespace's index entries and documents.
func (s *Storage) ClearSession(sessionID string) (namespace string, soleOwner bool, err error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return "", false, err
	}
	if session == nil {
		return "", false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var owners int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE namespace = ?`,
		session.Namespace).Scan(&owners); err != nil {
		return "", false, fmt.Errorf("counting namespace owners: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return "", false, fmt.Errorf("deleting messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return "", false, fmt.Errorf("deleting session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, err
	}

	return session.Namespace, owners == 1, nil
}

// ListSessions returns all sessions without their messages, newest first.
func (s *Storage) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(`SELECT session_id, namespace, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(&session.SessionID, &session.Namespace, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

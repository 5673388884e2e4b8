// ABOUTME: Document represents an uploaded source file scoped to a namespace
// ABOUTME: Immutable once its plain text has been extracted
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentFormat identifies the declared format of uploaded bytes.
type DocumentFormat string

const (
	FormatPlainText DocumentFormat = "text"
	FormatMarkdown  DocumentFormat = "markdown"
	FormatPDF       DocumentFormat = "pdf"
)

// Document is an uploaded source document after text extraction.
type Document struct {
	DocumentID string         `json:"document_id"`
	Namespace  string         `json:"namespace"`
	Name       string         `json:"name"`
	Format     DocumentFormat `json:"format"`
	Text       string         `json:"text"`
	UploadedAt time.Time      `json:"uploaded_at"`
}

// NewDocument creates a Document with validation. The extracted text must be
// non-empty after trimming.
func NewDocument(namespace, name string, format DocumentFormat, text string) (*Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}
	if namespace == "" {
		return nil, errors.New("namespace cannot be empty")
	}
	if name == "" {
		return nil, errors.New("document name cannot be empty")
	}
	switch format {
	case FormatPlainText, FormatMarkdown, FormatPDF:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &Document{
		DocumentID: generateDocumentID(),
		Namespace:  namespace,
		Name:       name,
		Format:     format,
		Text:       text,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// generateDocumentID generates a unique document identifier
func generateDocumentID() string {
	return "doc_" + uuid.New().String()[:8]
}

// DeterministicDocumentID derives a stable document id from the namespace
// and document name. Re-ingesting the same file yields the same id, which
// keeps chunk ids stable and index upserts idempotent.
func DeterministicDocumentID(namespace, name string) string {
	sum := sha256.Sum256([]byte(namespace + "/" + name))
	return "doc_" + hex.EncodeToString(sum[:])[:12]
}

// ABOUTME: Text extraction from uploaded document bytes by declared format
// ABOUTME: Supports plain text, markdown, and PDF; normalizes whitespace
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	pdf "github.com/ledongthuc/pdf"

	"github.com/docchat/docchat/internal/models"
)

// Text extracts plain text from raw document bytes. The declared format
// decides the extraction path; unknown formats fail with
// models.ErrUnsupportedFormat and bytes that yield no text fail with
// models.ErrEmptyDocument.
func Text(raw []byte, format models.DocumentFormat) (string, error) {
	if len(raw) == 0 {
		return "", models.ErrEmptyDocument
	}

	var text string
	var err error

	switch format {
	case models.FormatPlainText, models.FormatMarkdown:
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%w: %s input is not valid UTF-8", models.ErrUnsupportedFormat, format)
		}
		text = string(raw)
	case models.FormatPDF:
		text, err = extractPDF(raw)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, format)
	}

	text = Normalize(text)
	if text == "" {
		return "", models.ErrEmptyDocument
	}
	return text, nil
}

// FormatFromExtension maps a file extension (with or without dot) to a
// document format.
func FormatFromExtension(ext string) (models.DocumentFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "txt", "text":
		return models.FormatPlainText, nil
	case "md", "markdown":
		return models.FormatMarkdown, nil
	case "pdf":
		return models.FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: extension %q", models.ErrUnsupportedFormat, ext)
	}
}

// Normalize collapses runs of whitespace into single spaces and trims the
// result. Chunk offsets are relative to this normalized text.
func Normalize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		inSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf reader: %v", models.ErrUnsupportedFormat, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: pdf plaintext: %v", models.ErrUnsupportedFormat, err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return string(b), nil
}

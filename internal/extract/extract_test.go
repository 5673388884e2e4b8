// ABOUTME: Tests for document text extraction and whitespace normalization
// ABOUTME: Covers plain text, markdown, unknown formats, and empty inputs
package extract

import (
	"errors"
	"testing"

	"github.com/docchat/docchat/internal/models"
)

func TestText_PlainText(t *testing.T) {
	text, err := Text([]byte("hello   world\n\nsecond  line"), models.FormatPlainText)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "hello world second line" {
		t.Errorf("Text() = %q, want normalized text", text)
	}
}

func TestText_Markdown(t *testing.T) {
	text, err := Text([]byte("# Title\n\nBody text here."), models.FormatMarkdown)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != "# Title Body text here." {
		t.Errorf("Text() = %q", text)
	}
}

func TestText_EmptyInputs(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"nil bytes", nil},
		{"empty bytes", []byte{}},
		{"whitespace only", []byte("  \n\t  ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Text(tt.raw, models.FormatPlainText)
			if !errors.Is(err, models.ErrEmptyDocument) {
				t.Errorf("expected ErrEmptyDocument, got %v", err)
			}
		})
	}
}

func TestText_UnsupportedFormat(t *testing.T) {
	_, err := Text([]byte("content"), models.DocumentFormat("docx"))
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestText_InvalidUTF8(t *testing.T) {
	_, err := Text([]byte{0xff, 0xfe, 0xfd}, models.FormatPlainText)
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for invalid UTF-8, got %v", err)
	}
}

func TestText_MalformedPDF(t *testing.T) {
	_, err := Text([]byte("not a pdf at all"), models.FormatPDF)
	if !errors.Is(err, models.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for malformed PDF, got %v", err)
	}
}

func TestFormatFromExtension(t *testing.T) {
	tests := []struct {
		ext     string
		want    models.DocumentFormat
		wantErr bool
	}{
		{".txt", models.FormatPlainText, false},
		{"txt", models.FormatPlainText, false},
		{".md", models.FormatMarkdown, false},
		{".markdown", models.FormatMarkdown, false},
		{".PDF", models.FormatPDF, false},
		{".docx", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, err := FormatFromExtension(tt.ext)
			if tt.wantErr {
				if !errors.Is(err, models.ErrUnsupportedFormat) {
					t.Errorf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatFromExtension() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatFromExtension() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "a b c", "a b c"},
		{"collapse spaces", "a   b", "a b"},
		{"tabs and newlines", "a\t\nb\r\nc", "a b c"},
		{"leading and trailing", "  a b  ", "a b"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

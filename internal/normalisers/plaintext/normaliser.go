package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text artifacts.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Type returns the document type this normaliser produces.
func (n *Normaliser) Type() domain.Type {
	return domain.TypeText
}

// Extensions returns the file extensions this normaliser handles.
// Markdown is treated as plain text: the chunker keeps its paragraph
// structure and the markup itself is searchable.
func (n *Normaliser) Extensions() []string {
	return []string{".txt", ".md"}
}

// MIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) MIMETypes() []string {
	return []string{"text/plain", "text/markdown"}
}

// Normalise reads a text file and returns it as a single document.
// Empty files produce no documents.
func (n *Normaliser) Normalise(_ context.Context, path, rel string) ([]domain.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}

	content := strings.TrimSpace(DecodeBytes(raw))
	if content == "" {
		return nil, nil
	}

	return []domain.Document{{
		Content: content,
		Metadata: domain.Metadata{
			Source: rel,
			Type:   domain.TypeText,
		},
	}}, nil
}

// DecodeBytes converts raw file bytes to a string, trying UTF-16 (by BOM),
// then UTF-8, then falling back to a lossy Latin-1 read. It never fails:
// every byte sequence decodes to something searchable.
func DecodeBytes(raw []byte) string {
	if s, ok := decodeUTF16(raw); ok {
		return s
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	// Latin-1: every byte maps directly to a code point.
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// decodeUTF16 decodes UTF-16 input when a byte order mark is present.
func decodeUTF16(raw []byte) (string, bool) {
	if len(raw) < 2 {
		return "", false
	}

	var le bool
	switch {
	case raw[0] == 0xFF && raw[1] == 0xFE:
		le = true
	case raw[0] == 0xFE && raw[1] == 0xFF:
		le = false
	default:
		return "", false
	}

	raw = raw[2:]
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		if le {
			units = append(units, uint16(raw[i])|uint16(raw[i+1])<<8)
		} else {
			units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
	}
	return string(utf16.Decode(units)), true
}

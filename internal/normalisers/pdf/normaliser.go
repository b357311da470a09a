package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// DefaultMinTextChars is the minimum extracted length for a page to be
// kept. Shorter pages are almost always cover sheets, page numbers or
// scan noise and would pollute retrieval.
const DefaultMinTextChars = 200

// Normaliser extracts text from PDF artifacts, one document per page.
type Normaliser struct {
	minTextChars int
}

// Option configures the normaliser.
type Option func(*Normaliser)

// WithMinTextChars overrides the minimum page text length.
func WithMinTextChars(n int) Option {
	return func(p *Normaliser) {
		if n >= 0 {
			p.minTextChars = n
		}
	}
}

// New creates a new PDF normaliser.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{minTextChars: DefaultMinTextChars}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Type returns the document type this normaliser produces.
func (n *Normaliser) Type() domain.Type {
	return domain.TypePDF
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".pdf"}
}

// MIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) MIMETypes() []string {
	return []string{"application/pdf"}
}

// Normalise extracts text page by page. Pages that fail to parse or
// yield too little text are skipped; a PDF where every page is skipped
// produces no documents rather than an error.
func (n *Normaliser) Normalise(ctx context.Context, path, rel string) ([]domain.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rel, err)
	}
	defer f.Close()

	var docs []domain.Document
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := extractPage(reader, i)
		if err != nil {
			logger.Warn("skipping page %d of %s: %v", i, rel, err)
			continue
		}

		text = strings.TrimSpace(text)
		if len(text) < n.minTextChars {
			logger.Debug("skipping page %d of %s: %d chars below threshold", i, rel, len(text))
			continue
		}

		docs = append(docs, domain.Document{
			Content: fmt.Sprintf("TYPE: pdf\nSOURCE: %s\nPAGE: %d\n\n%s", rel, i, text),
			Metadata: domain.Metadata{
				Source: rel,
				Type:   domain.TypePDF,
				Page:   i,
			},
		})
	}
	return docs, nil
}

// extractPage pulls the plain text of one page. The underlying parser
// panics on some malformed font tables, so the panic is converted to a
// recoverable per-page error.
func extractPage(reader *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page parse panic: %v", r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d is null", num)
	}
	return page.GetPlainText(nil)
}

package html

import (
	"context"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
	"github.com/corpora-labs/corpora-cli/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser converts HTML artifacts to Markdown text.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Type returns the document type this normaliser produces.
func (n *Normaliser) Type() domain.Type {
	return domain.TypeHTML
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".html", ".htm"}
}

// MIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) MIMETypes() []string {
	return []string{"text/html"}
}

// Normalise reads an HTML file and converts it to Markdown. If the
// converter rejects the input, the markup is stripped with regexes
// instead and the document is marked degraded.
func (n *Normaliser) Normalise(_ context.Context, path, rel string) ([]domain.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}

	source := plaintext.DecodeBytes(raw)
	degraded := false

	content, err := htmltomarkdown.ConvertString(source)
	if err != nil {
		logger.Warn("markdown conversion failed for %s, stripping tags: %v", rel, err)
		content = stripHTML(source)
		degraded = true
	}

	content = collapseBlankLines(strings.TrimSpace(content))
	if content == "" {
		return nil, nil
	}

	return []domain.Document{{
		Content: content,
		Metadata: domain.Metadata{
			Source:   rel,
			Type:     domain.TypeHTML,
			Degraded: degraded,
		},
	}}, nil
}

var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brTags        = regexp.MustCompile(`(?i)<br\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// stripHTML is the last-resort text extraction: remove non-content
// sections, turn block boundaries into newlines, drop remaining tags.
func stripHTML(content string) string {
	content = headTag.ReplaceAllString(content, "")
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")
	content = brTags.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, " ")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

// collapseBlankLines reduces runs of blank lines to a single blank line
// so paragraph separators stay meaningful for the chunker.
func collapseBlankLines(s string) string {
	return multiNewlines.ReplaceAllString(s, "\n\n")
}

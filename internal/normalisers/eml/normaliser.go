package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser parses RFC 822 email files. Parsed output is cached so
// unchanged messages are not re-read on every ingestion run.
type Normaliser struct {
	cache driven.DerivedCache
}

// New creates a new EML normaliser backed by the given cache.
func New(cache driven.DerivedCache) *Normaliser {
	return &Normaliser{cache: cache}
}

// Type returns the document type this normaliser produces.
func (n *Normaliser) Type() domain.Type {
	return domain.TypeEmail
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".eml"}
}

// MIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) MIMETypes() []string {
	return []string{"message/rfc822"}
}

// cachedEmail is the derived payload stored in the cache.
type cachedEmail struct {
	Content string    `json:"content_text"`
	Meta    emailMeta `json:"metadata"`
}

type emailMeta struct {
	Subject string `json:"subject,omitempty"`
	Date    string `json:"date,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// Normalise parses the email into a single searchable document with the
// headers folded into the content. A valid cache entry short-circuits
// the parse entirely.
func (n *Normaliser) Normalise(_ context.Context, path, rel string) ([]domain.Document, error) {
	var cached cachedEmail
	if n.cache != nil && n.cache.GetJSON(path, rel, &cached) {
		logger.Debug("email cache hit for %s", rel)
		return []domain.Document{docFromPayload(rel, cached)}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rel, err)
	}

	meta := emailMeta{
		Subject: decodeHeader(msg.Header.Get("Subject")),
		Date:    msg.Header.Get("Date"),
		From:    decodeHeader(msg.Header.Get("From")),
		To:      decodeHeader(msg.Header.Get("To")),
	}

	body, err := extractBody(msg)
	if err != nil {
		return nil, fmt.Errorf("extract body of %s: %w", rel, err)
	}

	payload := cachedEmail{
		Content: renderEmail(rel, meta, strings.TrimSpace(body)),
		Meta:    meta,
	}

	if n.cache != nil {
		if err := n.cache.PutJSON(path, rel, payload); err != nil {
			logger.Warn("caching email %s failed: %v", rel, err)
		}
	}

	return []domain.Document{docFromPayload(rel, payload)}, nil
}

func docFromPayload(rel string, payload cachedEmail) domain.Document {
	return domain.Document{
		Content: payload.Content,
		Metadata: domain.Metadata{
			Source:  rel,
			Type:    domain.TypeEmail,
			Subject: payload.Meta.Subject,
			Date:    payload.Meta.Date,
			From:    payload.Meta.From,
			To:      payload.Meta.To,
		},
	}
}

// renderEmail builds the searchable block: headers first so queries on
// sender or subject hit, body last.
func renderEmail(rel string, meta emailMeta, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TYPE: email\nSOURCE: %s\n", rel)
	fmt.Fprintf(&b, "SUBJECT: %s\n", meta.Subject)
	fmt.Fprintf(&b, "DATE: %s\n", meta.Date)
	fmt.Fprintf(&b, "FROM: %s\n", meta.From)
	fmt.Fprintf(&b, "TO: %s\n", meta.To)
	b.WriteString("\nBODY:\n")
	b.WriteString(body)
	return b.String()
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody extracts the text content from an email message.
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unparseable content type, read as plain text.
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", readErr
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"])
	}

	body, err := io.ReadAll(decodeTransfer(msg.Body, msg.Header.Get("Content-Transfer-Encoding")))
	if err != nil {
		return "", err
	}

	if mediaType == "text/html" {
		return stripHTMLTags(string(body)), nil
	}
	return string(body), nil
}

// extractMultipartBody walks the parts, preferring plain text over
// stripped HTML. Nested multiparts are handled recursively.
func extractMultipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts []string
	var htmlParts []string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		mediaType, params, parseErr := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding")))
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, stripHTMLTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			nested, nestedErr := extractMultipartBody(bytes.NewReader(content), params["boundary"])
			if nestedErr == nil && nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	if len(htmlParts) > 0 {
		return strings.Join(htmlParts, "\n"), nil
	}
	return "", nil
}

// decodeTransfer wraps the reader according to the part's
// Content-Transfer-Encoding. Unknown encodings pass through untouched.
func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// stripHTMLTags removes HTML tags for basic text extraction.
func stripHTMLTags(html string) string {
	var result strings.Builder
	inTag := false

	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	lines := strings.Split(result.String(), "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

package image

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser turns images into searchable text by asking a vision model
// for a structured description. No OCR library is involved. Descriptions
// are cached against the image's modification time because each one is
// a billed API call.
type Normaliser struct {
	vision driven.VisionService
	cache  driven.DerivedCache
}

// New creates a new image normaliser.
func New(vision driven.VisionService, cache driven.DerivedCache) *Normaliser {
	return &Normaliser{vision: vision, cache: cache}
}

// Type returns the document type this normaliser produces.
func (n *Normaliser) Type() domain.Type {
	return domain.TypeImage
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".webp"}
}

// MIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) MIMETypes() []string {
	return []string{"image/jpeg", "image/png", "image/webp"}
}

// description is the structured payload the vision model is asked for,
// and the shape persisted in the cache.
type description struct {
	VisibleText []string `json:"visible_text"`
	Entities    entities `json:"entities"`
	Summary     string   `json:"image_summary"`
	Details     []string `json:"details"`
	Keywords    []string `json:"search_keywords"`
	Fallback    bool     `json:"fallback,omitempty"`
}

type entities struct {
	Places        []string `json:"places"`
	Addresses     []string `json:"addresses"`
	Organizations []string `json:"organizations"`
	Transport     []string `json:"transport"`
}

const visionPrompt = `You are analyzing an image for a document retrieval dataset.

Rules:
- Do NOT invent unreadable text.
- If you are unsure about a word, omit it or mark it as uncertain.
- Keep it grounded in what is visible.

Return ONLY valid JSON with this exact schema:
{
  "visible_text": ["..."],
  "entities": {
    "places": ["..."],
    "addresses": ["..."],
    "organizations": ["..."],
    "transport": ["..."]
  },
  "image_summary": "...",
  "details": ["..."],
  "search_keywords": ["..."]
}

Now analyze the image.`

// fallbackExcerptLimit caps how much raw model output is preserved when
// it fails to parse as JSON.
const fallbackExcerptLimit = 2000

// Normalise describes the image and returns one document. Vision
// failures are fatal: without the description there is nothing to
// index, and silently skipping a paid artifact would hide data loss.
func (n *Normaliser) Normalise(ctx context.Context, path, rel string) ([]domain.Document, error) {
	var desc description
	if n.cache != nil && n.cache.GetJSON(path, rel, &desc) {
		logger.Debug("image cache hit for %s", rel)
		return []domain.Document{docFromDescription(rel, desc)}, nil
	}

	dataURL, err := toDataURL(path)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", rel, err)
	}

	raw, err := n.vision.Describe(ctx, visionPrompt, dataURL)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", rel, err)
	}

	desc = parseDescription(raw)
	if desc.Fallback {
		logger.Warn("vision output for %s was not valid JSON, storing raw excerpt", rel)
	}

	if n.cache != nil {
		if err := n.cache.PutJSON(path, rel, desc); err != nil {
			logger.Warn("caching description of %s failed: %v", rel, err)
		}
	}

	return []domain.Document{docFromDescription(rel, desc)}, nil
}

// parseDescription decodes the model's JSON reply, tolerating markdown
// code fences. A reply that still refuses to parse is preserved as a
// tagged fallback payload so the raw text remains searchable.
func parseDescription(raw string) description {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var desc description
	if err := json.Unmarshal([]byte(cleaned), &desc); err == nil {
		return desc
	}

	excerpt := cleaned
	if len(excerpt) > fallbackExcerptLimit {
		excerpt = excerpt[:fallbackExcerptLimit]
	}
	return description{
		Summary:  "Model returned non-JSON output. Raw content stored in details.",
		Details:  []string{excerpt},
		Fallback: true,
	}
}

// toDataURL base64-encodes the image as a data URL for the vision API.
func toDataURL(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "jpg" {
		ext = "jpeg"
	}
	return fmt.Sprintf("data:image/%s;base64,%s", ext, base64.StdEncoding.EncodeToString(raw)), nil
}

func docFromDescription(rel string, desc description) domain.Document {
	return domain.Document{
		Content: renderDescription(rel, desc),
		Metadata: domain.Metadata{
			Source:   rel,
			Type:     domain.TypeImage,
			Degraded: desc.Fallback,
		},
	}
}

// renderDescription flattens the structured description into the text
// block that gets chunked and embedded. Sections with no content are
// omitted.
func renderDescription(rel string, desc description) string {
	var lines []string
	lines = append(lines, "TYPE: image", "SOURCE: "+rel, "")

	if s := strings.TrimSpace(desc.Summary); s != "" {
		lines = append(lines, "SUMMARY:", s, "")
	}

	if items := cleanList(desc.VisibleText); len(items) > 0 {
		lines = append(lines, "VISIBLE_TEXT:")
		for _, t := range items {
			lines = append(lines, "- "+t)
		}
		lines = append(lines, "")
	}

	places := cleanList(desc.Entities.Places)
	addresses := cleanList(desc.Entities.Addresses)
	orgs := cleanList(desc.Entities.Organizations)
	transport := cleanList(desc.Entities.Transport)
	if len(places)+len(addresses)+len(orgs)+len(transport) > 0 {
		lines = append(lines, "ENTITIES:")
		if len(places) > 0 {
			lines = append(lines, "Places: "+strings.Join(places, "; "))
		}
		if len(addresses) > 0 {
			lines = append(lines, "Addresses: "+strings.Join(addresses, "; "))
		}
		if len(orgs) > 0 {
			lines = append(lines, "Organizations: "+strings.Join(orgs, "; "))
		}
		if len(transport) > 0 {
			lines = append(lines, "Transport: "+strings.Join(transport, "; "))
		}
		lines = append(lines, "")
	}

	if items := cleanList(desc.Details); len(items) > 0 {
		lines = append(lines, "DETAILS:")
		for _, d := range items {
			lines = append(lines, "- "+d)
		}
		lines = append(lines, "")
	}

	if items := cleanList(desc.Keywords); len(items) > 0 {
		lines = append(lines, "SEARCH_KEYWORDS:", strings.Join(items, ", "))
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// cleanList trims entries and drops empties.
func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package driven

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// Normaliser converts raw artifacts of one format into normalised
// documents. Implementations must be pure given the artifact bytes and
// must degrade to best-effort text for recoverable extraction issues
// (undecodable bytes, malformed structured model output) instead of
// failing; only unreadable artifacts and external capability faults
// surface as errors.
type Normaliser interface {
	// Type returns the artifact type this normaliser produces.
	Type() domain.Type

	// Extensions returns the lower-case file extensions handled,
	// including the leading dot.
	Extensions() []string

	// MIMETypes returns the MIME types handled, used as a routing
	// fallback when the extension is ambiguous.
	MIMETypes() []string

	// Normalise reads the artifact at path and returns zero or more
	// documents. rel is the stable source identifier recorded in
	// metadata (the path relative to the corpus root).
	Normalise(ctx context.Context, path, rel string) ([]domain.Document, error)
}

package driving

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// Answerer is the query entry point: retrieve the top-k chunks for a
// question and generate a citation-constrained answer from them.
type Answerer interface {
	// Ask answers a natural-language question. k bounds the number of
	// evidence chunks; k <= 0 selects the configured default.
	Ask(ctx context.Context, query string, k int) (*domain.Answer, error)
}

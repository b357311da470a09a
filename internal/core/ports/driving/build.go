package driving

import "context"

// Builder runs the full ingestion pipeline: adapt raw artifacts (via the
// derived-text cache), chunk, derive identities, embed and upsert.
type Builder interface {
	// BuildOrRefresh ingests the corpus into the index. reset controls
	// destructive rebuild versus skip-if-nonempty.
	BuildOrRefresh(ctx context.Context, reset bool) (*BuildReport, error)
}

// BuildReport summarises one build run.
type BuildReport struct {
	// Documents is the number of normalised documents produced.
	Documents int `json:"documents"`

	// Chunks is the number of chunks produced from them.
	Chunks int `json:"chunks"`

	// CountBefore and CountAfter are the collection record counts
	// observed before and after the run.
	CountBefore int `json:"count_before"`
	CountAfter  int `json:"count_after"`

	// Skipped is true when insertion was skipped because the
	// collection was already populated and reset was false.
	Skipped bool `json:"skipped"`
}

package driven

import (
	"context"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// ChunkIndex is the persistent vector index holding one named collection
// of chunk records. It survives process restarts and supports count,
// upsert and nearest-neighbour search.
//
// The design assumes a single writer: no locking is provided, and
// concurrent builds against the same collection risk lost updates.
// Read-only searches may run concurrently with each other but must not
// overlap an in-progress Reset.
type ChunkIndex interface {
	// Count returns the number of records in the collection. An
	// unreachable index reads as zero, biasing toward re-insertion
	// rather than silent data loss.
	Count(ctx context.Context) int

	// Upsert inserts records, overwriting any record with the same id
	// rather than duplicating it.
	Upsert(ctx context.Context, records []domain.ChunkRecord) error

	// Reset destroys and recreates the collection. Idempotent when the
	// collection does not exist; destruction failure is swallowed.
	Reset(ctx context.Context) error

	// Search returns up to k records nearest to the query vector,
	// ordered by descending cosine similarity.
	Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error)

	// Close releases resources.
	Close() error
}

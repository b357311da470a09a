// Package sqlite provides a persistent chunk index backed by SQLite.
// Embeddings are stored as little-endian float32 blobs and searched
// with brute-force cosine similarity, which is plenty for collections
// of a few thousand chunks.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.ChunkIndex = (*Index)(nil)

// Index stores chunk records for one named collection. Multiple
// collections share the same database file, separated by the
// collection column.
type Index struct {
	db         *sql.DB
	path       string
	collection string
}

// NewIndex opens (or creates) the chunk database under dataDir and
// scopes all operations to the given collection.
func NewIndex(dataDir, collection string) (*Index, error) {
	if collection == "" {
		return nil, fmt.Errorf("sqlite: collection name is required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "chunks.db")

	// WAL mode so a query can run while an ingestion writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := &Index{db: db, path: dbPath, collection: collection}
	if err := idx.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	source     TEXT NOT NULL,
	type       TEXT NOT NULL,
	chunk_idx  INTEGER NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
`

func (idx *Index) ensureSchema(ctx context.Context) error {
	if _, err := idx.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Count returns the number of records in the collection. Probe
// failures read as zero so callers treat an unreadable collection
// like an empty one.
func (idx *Index) Count(ctx context.Context) int {
	var n int
	err := idx.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ?`, idx.collection).Scan(&n)
	if err != nil {
		logger.Warn("counting chunks in %s failed: %v", idx.collection, err)
		return 0
	}
	return n
}

// Reset drops every record in the collection and recreates the schema.
// Destruction failures are swallowed: a collection that never existed
// is already in the desired state.
func (idx *Index) Reset(ctx context.Context) error {
	if _, err := idx.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection = ?`, idx.collection); err != nil {
		logger.Warn("dropping collection %s failed: %v", idx.collection, err)
	}
	return idx.ensureSchema(ctx)
}

// Upsert writes the records in one transaction. Records whose ID
// already exists are overwritten, so re-ingesting unchanged content
// never duplicates entries.
func (idx *Index) Upsert(ctx context.Context, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, source, type, chunk_idx, content, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			source    = excluded.source,
			type      = excluded.type,
			chunk_idx = excluded.chunk_idx,
			content   = excluded.content,
			metadata  = excluded.metadata,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("record %s has no embedding", rec.ID)
		}
		metaJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			idx.collection,
			rec.ID,
			rec.Metadata.Source,
			string(rec.Metadata.Type),
			rec.Metadata.ChunkIndex,
			rec.Content,
			string(metaJSON),
			float32SliceToBytes(rec.Embedding),
		); err != nil {
			return fmt.Errorf("upserting %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// Search scans the collection and returns the k records most similar
// to the query vector, best first.
func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if len(vector) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := idx.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding FROM chunks WHERE collection = ?`,
		idx.collection)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var (
			rec      domain.ChunkRecord
			metaJSON string
			blob     []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Content, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", rec.ID, err)
		}
		rec.Embedding = bytesToFloat32Slice(blob)

		results = append(results, domain.SearchResult{
			Record:     rec,
			Similarity: cosineSimilarity(vector, rec.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Close closes the database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Path returns the database file path.
func (idx *Index) Path() string {
	return idx.path
}

// cosineSimilarity computes the cosine of the angle between two
// vectors. Mismatched or zero-length vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// float32SliceToBytes converts a []float32 to a little-endian byte
// slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

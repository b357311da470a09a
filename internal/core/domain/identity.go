package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ChunkID derives the stable identity of a chunk from its source, its
// per-source index and its exact content. Identical inputs always produce
// the same id across runs and processes, so re-upserting unchanged chunks
// is a no-op; changed content yields a new id rather than overwriting.
func ChunkID(source string, index int, content string) string {
	raw := fmt.Sprintf("%s::chunk=%d:::%s", source, index, content)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RecordFromChunk builds the persistable record for a chunk. The embedding
// is attached later, once the batch has been embedded.
func RecordFromChunk(c Chunk) ChunkRecord {
	return ChunkRecord{
		ID:       ChunkID(c.Metadata.Source, c.Metadata.ChunkIndex, c.Content),
		Content:  c.Content,
		Metadata: c.Metadata,
	}
}

// Package file provides a file-backed implementation of the derived-text
// cache. One record is written per artifact, named deterministically from
// the artifact's identity, with the artifact's modification time as the
// freshness token.
package file

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/djherbis/times"

	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
	"github.com/corpora-labs/corpora-cli/internal/logger"
)

// Ensure Cache implements the interface.
var _ driven.DerivedCache = (*Cache)(nil)

// Cache stores derived payloads under a single directory.
type Cache struct {
	dir string
}

// record is the on-disk shape of a structured cache entry.
type record struct {
	// ModTime is the artifact's modification time at compute time,
	// in unix nanoseconds. Compared for exact equality.
	ModTime int64 `json:"freshness_token"`

	// Payload is the adapter-specific derived output.
	Payload json.RawMessage `json:"payload"`
}

// NewCache creates a cache rooted at dir, creating it if needed.
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// GetJSON loads the cached payload for the artifact at path into out.
// Missing records, stale freshness tokens and unparseable content are
// all reported as misses.
func (c *Cache) GetJSON(path, rel string, out any) bool {
	token, ok := freshnessToken(path)
	if !ok {
		return false
	}

	data, err := os.ReadFile(c.jsonPath(rel))
	if err != nil {
		return false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		logger.Debug("cache record for %s unreadable, recomputing: %v", rel, err)
		return false
	}
	if rec.ModTime != token {
		logger.Debug("cache record for %s stale (artifact modified), recomputing", rel)
		return false
	}
	if err := json.Unmarshal(rec.Payload, out); err != nil {
		logger.Debug("cache payload for %s unreadable, recomputing: %v", rel, err)
		return false
	}
	return true
}

// PutJSON persists payload with the artifact's current freshness token.
// The write replaces the whole record file.
func (c *Cache) PutJSON(path, rel string, payload any) error {
	token, ok := freshnessToken(path)
	if !ok {
		return fmt.Errorf("cache: stat %s failed", path)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling cache payload: %w", err)
	}
	data, err := json.MarshalIndent(record{ModTime: token, Payload: raw}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling cache record: %w", err)
	}

	if err := os.WriteFile(c.jsonPath(rel), data, 0o644); err != nil {
		return fmt.Errorf("writing cache record: %w", err)
	}
	return nil
}

// GetText loads a plain-text record. Text records carry no freshness
// token: an existing file is trusted verbatim so operators can correct
// transcripts by hand.
func (c *Cache) GetText(rel string) (string, bool) {
	data, err := os.ReadFile(c.textPath(rel))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// PutText persists a plain-text record.
func (c *Cache) PutText(rel, text string) error {
	if err := os.WriteFile(c.textPath(rel), []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}

func (c *Cache) jsonPath(rel string) string {
	return filepath.Join(c.dir, recordName(rel)+".json")
}

// textPath keys text records by artifact stem alone. The predictable
// name is what makes manual transcript edits practical.
func (c *Cache) textPath(rel string) string {
	return filepath.Join(c.dir, stem(rel)+".txt")
}

// recordName derives a unique record name from the artifact identity:
// the file stem plus a short hash of the full relative path, so two
// artifacts sharing a stem in different directories cannot collide.
func recordName(rel string) string {
	sum := sha1.Sum([]byte(filepath.ToSlash(rel)))
	return fmt.Sprintf("%s_%s", stem(rel), hex.EncodeToString(sum[:])[:12])
}

func stem(rel string) string {
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// freshnessToken returns the artifact's modification time in unix
// nanoseconds, or false when the artifact cannot be statted.
func freshnessToken(path string) (int64, bool) {
	ts, err := times.Stat(path)
	if err != nil {
		return 0, false
	}
	return ts.ModTime().UnixNano(), true
}

package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// mockNormaliser is a stub format adapter.
type mockNormaliser struct {
	typ   domain.Type
	exts  []string
	docs  map[string][]domain.Document // keyed by rel path
	err   error
	calls int
}

func (m *mockNormaliser) Type() domain.Type    { return m.typ }
func (m *mockNormaliser) Extensions() []string { return m.exts }
func (m *mockNormaliser) MIMETypes() []string  { return nil }

func (m *mockNormaliser) Normalise(_ context.Context, _, rel string) ([]domain.Document, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.docs[rel], nil
}

// mockEmbedder returns fixed-size vectors.
type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(len(texts[i])), 1}
	}
	return vecs, nil
}

func (m *mockEmbedder) ModelName() string { return "mock-embedder" }
func (m *mockEmbedder) Close() error      { return nil }

// mockIndex is an in-memory chunk index.
type mockIndex struct {
	records  map[string]domain.ChunkRecord
	results  []domain.SearchResult
	resets   int
	upserts  int
	countErr bool
}

func newMockIndex() *mockIndex {
	return &mockIndex{records: map[string]domain.ChunkRecord{}}
}

func (m *mockIndex) Count(context.Context) int {
	if m.countErr {
		return 0
	}
	return len(m.records)
}

func (m *mockIndex) Upsert(_ context.Context, recs []domain.ChunkRecord) error {
	m.upserts++
	for _, r := range recs {
		m.records[r.ID] = r
	}
	return nil
}

func (m *mockIndex) Reset(context.Context) error {
	m.resets++
	m.records = map[string]domain.ChunkRecord{}
	return nil
}

func (m *mockIndex) Search(_ context.Context, _ []float32, k int) ([]domain.SearchResult, error) {
	if k < len(m.results) {
		return m.results[:k], nil
	}
	return m.results, nil
}

func (m *mockIndex) Close() error { return nil }

// passthroughSplitter turns each document into one chunk.
type passthroughSplitter struct{}

func (passthroughSplitter) Split(docs []domain.Document) []domain.Chunk {
	counters := map[string]int{}
	chunks := make([]domain.Chunk, 0, len(docs))
	for _, d := range docs {
		counters[d.Metadata.Source]++
		meta := d.Metadata
		meta.ChunkIndex = counters[d.Metadata.Source]
		chunks = append(chunks, domain.Chunk{Content: d.Content, Metadata: meta})
	}
	return chunks
}

func seedDataDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o644))
	}
	return dir
}

func textDoc(rel, content string) domain.Document {
	return domain.Document{
		Content:  content,
		Metadata: domain.Metadata{Source: rel, Type: domain.TypeText},
	}
}

func TestBuildOrRefresh_IndexesDocuments(t *testing.T) {
	dir := seedDataDir(t, "notes.txt", "faq.txt")
	normaliser := &mockNormaliser{
		typ:  domain.TypeText,
		exts: []string{".txt"},
		docs: map[string][]domain.Document{
			"notes.txt": {textDoc("notes.txt", "Room 204 is on floor 2.")},
			"faq.txt":   {textDoc("faq.txt", "The library opens at 9am.")},
		},
	}
	index := newMockIndex()
	embedder := &mockEmbedder{}

	svc := NewIngestService(dir, []driven.Normaliser{normaliser}, passthroughSplitter{}, embedder, index)
	report, err := svc.BuildOrRefresh(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 2, report.Chunks)
	assert.Equal(t, 0, report.CountBefore)
	assert.Equal(t, 2, report.CountAfter)
	assert.False(t, report.Skipped)

	// Record IDs are the deterministic chunk identities.
	id := domain.ChunkID("notes.txt", 1, "Room 204 is on floor 2.")
	rec, ok := index.records[id]
	require.True(t, ok)
	assert.NotEmpty(t, rec.Embedding)
}

func TestBuildOrRefresh_SkipsWhenNonEmpty(t *testing.T) {
	dir := seedDataDir(t, "notes.txt")
	normaliser := &mockNormaliser{typ: domain.TypeText, exts: []string{".txt"}}
	index := newMockIndex()
	index.records["existing"] = domain.ChunkRecord{ID: "existing"}
	embedder := &mockEmbedder{}

	svc := NewIngestService(dir, []driven.Normaliser{normaliser}, passthroughSplitter{}, embedder, index)
	report, err := svc.BuildOrRefresh(context.Background(), false)
	require.NoError(t, err)

	assert.True(t, report.Skipped)
	assert.Equal(t, 1, report.CountBefore)
	assert.Equal(t, 1, report.CountAfter)
	assert.Equal(t, 0, normaliser.calls, "skip must not touch adapters")
	assert.Equal(t, 0, embedder.calls)
}

func TestBuildOrRefresh_ResetRebuilds(t *testing.T) {
	dir := seedDataDir(t, "notes.txt")
	normaliser := &mockNormaliser{
		typ:  domain.TypeText,
		exts: []string{".txt"},
		docs: map[string][]domain.Document{
			"notes.txt": {textDoc("notes.txt", "fresh content")},
		},
	}
	index := newMockIndex()
	index.records["stale"] = domain.ChunkRecord{ID: "stale"}

	svc := NewIngestService(dir, []driven.Normaliser{normaliser}, passthroughSplitter{}, &mockEmbedder{}, index)
	report, err := svc.BuildOrRefresh(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, index.resets)
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, report.CountBefore)
	assert.Equal(t, 1, report.CountAfter)
	_, staleRemains := index.records["stale"]
	assert.False(t, staleRemains)
}

func TestBuildOrRefresh_EmbedFailureAborts(t *testing.T) {
	dir := seedDataDir(t, "notes.txt")
	normaliser := &mockNormaliser{
		typ:  domain.TypeText,
		exts: []string{".txt"},
		docs: map[string][]domain.Document{
			"notes.txt": {textDoc("notes.txt", "content")},
		},
	}
	index := newMockIndex()
	embedder := &mockEmbedder{err: errors.New("quota exceeded")}

	svc := NewIngestService(dir, []driven.Normaliser{normaliser}, passthroughSplitter{}, embedder, index)
	_, err := svc.BuildOrRefresh(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed chunks")
	assert.Equal(t, 0, index.upserts, "failed embedding must not reach the index")
}

func TestBuildOrRefresh_LocalAdapterErrorAbsorbed(t *testing.T) {
	dir := seedDataDir(t, "broken.txt", "good.md")
	broken := &mockNormaliser{typ: domain.TypeText, exts: []string{".txt"}, err: errors.New("parse error")}
	good := &mockNormaliser{
		typ:  domain.TypeHTML,
		exts: []string{".md"},
		docs: map[string][]domain.Document{
			"good.md": {textDoc("good.md", "still indexed")},
		},
	}
	index := newMockIndex()

	svc := NewIngestService(dir, []driven.Normaliser{broken, good}, passthroughSplitter{}, &mockEmbedder{}, index)
	report, err := svc.BuildOrRefresh(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.CountAfter)
}

func TestBuildOrRefresh_ExternalCapabilityErrorFatal(t *testing.T) {
	dir := seedDataDir(t, "map.png")
	image := &mockNormaliser{typ: domain.TypeImage, exts: []string{".png"}, err: errors.New("rate limited")}
	index := newMockIndex()

	svc := NewIngestService(dir, []driven.Normaliser{image}, passthroughSplitter{}, &mockEmbedder{}, index)
	_, err := svc.BuildOrRefresh(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, 0, index.upserts)
}

func TestBuildOrRefresh_UnknownExtensionSkipped(t *testing.T) {
	dir := seedDataDir(t, "archive.zip")
	index := newMockIndex()

	svc := NewIngestService(dir, nil, passthroughSplitter{}, &mockEmbedder{}, index)
	report, err := svc.BuildOrRefresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Documents)
}

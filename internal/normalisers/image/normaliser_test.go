package image

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// fakeVision is a test double for VisionService.
type fakeVision struct {
	reply string
	err   error
	calls int
}

func (f *fakeVision) Describe(_ context.Context, _ string, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

// fakeCache is an in-memory DerivedCache.
type fakeCache struct {
	json map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{json: map[string][]byte{}} }

func (f *fakeCache) GetJSON(_ string, rel string, out any) bool {
	raw, ok := f.json[rel]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (f *fakeCache) PutJSON(_ string, rel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.json[rel] = raw
	return nil
}

func (f *fakeCache) GetText(string) (string, bool) { return "", false }
func (f *fakeCache) PutText(string, string) error  { return nil }

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	// Content does not matter; the fake vision never decodes it.
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))
	return path
}

const goodReply = `{
  "visible_text": ["Building C", "Entrance 2"],
  "entities": {
    "places": ["North Campus"],
    "addresses": [],
    "organizations": ["Facilities Dept"],
    "transport": ["Bus 32"]
  },
  "image_summary": "A campus map showing building C and nearby bus stops.",
  "details": ["Arrow points to entrance 2"],
  "search_keywords": ["campus", "map", "building c"]
}`

func TestNormalise_StructuredDescription(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "map.png")
	vision := &fakeVision{reply: goodReply}

	docs, err := New(vision, newFakeCache()).Normalise(context.Background(), path, "map.png")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, domain.TypeImage, doc.Metadata.Type)
	assert.Equal(t, "map.png", doc.Metadata.Source)
	assert.False(t, doc.Metadata.Degraded)

	assert.Contains(t, doc.Content, "TYPE: image")
	assert.Contains(t, doc.Content, "SOURCE: map.png")
	assert.Contains(t, doc.Content, "SUMMARY:\nA campus map")
	assert.Contains(t, doc.Content, "- Building C")
	assert.Contains(t, doc.Content, "Places: North Campus")
	assert.Contains(t, doc.Content, "Transport: Bus 32")
	assert.Contains(t, doc.Content, "SEARCH_KEYWORDS:\ncampus, map, building c")
}

func TestNormalise_CodeFencedReply(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "sign.jpg")
	vision := &fakeVision{reply: "```json\n" + goodReply + "\n```"}

	docs, err := New(vision, newFakeCache()).Normalise(context.Background(), path, "sign.jpg")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.False(t, docs[0].Metadata.Degraded)
	assert.Contains(t, docs[0].Content, "SUMMARY:")
}

func TestNormalise_NonJSONReplyFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "blur.png")
	vision := &fakeVision{reply: "I see a blurry photograph of a corridor."}

	docs, err := New(vision, newFakeCache()).Normalise(context.Background(), path, "blur.png")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.True(t, doc.Metadata.Degraded)
	assert.Contains(t, doc.Content, "non-JSON output")
	assert.Contains(t, doc.Content, "blurry photograph")
}

func TestNormalise_CacheHitSkipsVisionCall(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "map.png")
	vision := &fakeVision{reply: goodReply}
	cache := newFakeCache()
	n := New(vision, cache)

	_, err := n.Normalise(context.Background(), path, "map.png")
	require.NoError(t, err)
	_, err = n.Normalise(context.Background(), path, "map.png")
	require.NoError(t, err)

	assert.Equal(t, 1, vision.calls)
}

func TestNormalise_VisionErrorIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "map.png")
	vision := &fakeVision{err: errors.New("rate limited")}

	_, err := New(vision, newFakeCache()).Normalise(context.Background(), path, "map.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestParseDescription_ExcerptCapped(t *testing.T) {
	desc := parseDescription(strings.Repeat("x", fallbackExcerptLimit+500))
	require.True(t, desc.Fallback)
	require.Len(t, desc.Details, 1)
	assert.Len(t, desc.Details[0], fallbackExcerptLimit)
}

func TestToDataURL(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "photo.jpg")

	url, err := toDataURL(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))
}

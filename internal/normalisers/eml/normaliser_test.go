package eml

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

// fakeCache is an in-memory DerivedCache for tests.
type fakeCache struct {
	json map[string][]byte
	text map[string]string
	hits int
	puts int
}

func newFakeCache() *fakeCache {
	return &fakeCache{json: map[string][]byte{}, text: map[string]string{}}
}

func (f *fakeCache) GetJSON(_ string, rel string, out any) bool {
	raw, ok := f.json[rel]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	f.hits++
	return true
}

func (f *fakeCache) PutJSON(_ string, rel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.json[rel] = raw
	f.puts++
	return nil
}

func (f *fakeCache) GetText(rel string) (string, bool) {
	s, ok := f.text[rel]
	return s, ok
}

func (f *fakeCache) PutText(rel, text string) error {
	f.text[rel] = text
	return nil
}

const plainEmail = `From: Alice <alice@example.com>
To: Bob <bob@example.com>
Date: Mon, 12 May 2025 10:00:00 +0000
Subject: Parking permit renewal
Content-Type: text/plain; charset=utf-8

Your parking permit expires on 31 May. Renew at the front desk.
`

const multipartEmail = `From: ops@example.com
To: all@example.com
Subject: Maintenance window
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain

Servers go down Saturday at 02:00.
--b1
Content-Type: text/html

<html><body><p>Servers go down <b>Saturday</b> at 02:00.</p></body></html>
--b1--
`

func writeEmail(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalise_PlainEmail(t *testing.T) {
	dir := t.TempDir()
	path := writeEmail(t, dir, "permit.eml", plainEmail)
	cache := newFakeCache()

	docs, err := New(cache).Normalise(context.Background(), path, "permit.eml")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, domain.TypeEmail, doc.Metadata.Type)
	assert.Equal(t, "permit.eml", doc.Metadata.Source)
	assert.Equal(t, "Parking permit renewal", doc.Metadata.Subject)
	assert.Equal(t, "Alice <alice@example.com>", doc.Metadata.From)
	assert.Equal(t, "Bob <bob@example.com>", doc.Metadata.To)

	assert.Contains(t, doc.Content, "TYPE: email")
	assert.Contains(t, doc.Content, "SUBJECT: Parking permit renewal")
	assert.Contains(t, doc.Content, "BODY:\nYour parking permit expires")
	assert.Equal(t, 1, cache.puts)
}

func TestNormalise_MultipartPrefersPlainText(t *testing.T) {
	dir := t.TempDir()
	path := writeEmail(t, dir, "maint.eml", multipartEmail)

	docs, err := New(newFakeCache()).Normalise(context.Background(), path, "maint.eml")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Contains(t, docs[0].Content, "Servers go down Saturday at 02:00.")
	assert.NotContains(t, docs[0].Content, "<b>")
}

func TestNormalise_CacheHitSkipsParse(t *testing.T) {
	dir := t.TempDir()
	path := writeEmail(t, dir, "permit.eml", plainEmail)
	cache := newFakeCache()
	n := New(cache)

	first, err := n.Normalise(context.Background(), path, "permit.eml")
	require.NoError(t, err)

	// Corrupt the file on disk; a cache hit must not touch it.
	require.NoError(t, os.WriteFile(path, []byte("not an email"), 0o644))

	second, err := n.Normalise(context.Background(), path, "permit.eml")
	require.NoError(t, err)
	assert.Equal(t, first[0].Content, second[0].Content)
	assert.Equal(t, first[0].Metadata, second[0].Metadata)
	assert.Equal(t, 1, cache.hits)
}

func TestNormalise_QuotedPrintableBody(t *testing.T) {
	email := "Subject: Caf=C3=A9 menu\nContent-Type: text/plain\nContent-Transfer-Encoding: quoted-printable\n\nThe caf=C3=A9 opens at noon.\n"
	dir := t.TempDir()
	path := writeEmail(t, dir, "menu.eml", email)

	docs, err := New(newFakeCache()).Normalise(context.Background(), path, "menu.eml")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "The café opens at noon.")
}

func TestNormalise_InvalidEmail(t *testing.T) {
	dir := t.TempDir()
	path := writeEmail(t, dir, "junk.eml", "no headers here at all")

	_, err := New(newFakeCache()).Normalise(context.Background(), path, "junk.eml")
	assert.Error(t, err)
}

func TestStripHTMLTags(t *testing.T) {
	got := stripHTMLTags("<p>Hello</p>\n<div>world</div>")
	assert.Equal(t, "Hello\nworld", got)
}

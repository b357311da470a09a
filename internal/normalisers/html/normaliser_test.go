package html

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalise_ConvertsToMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "faq.html", `<html><body>
<h1>Opening Hours</h1>
<p>The library opens at <strong>9am</strong>.</p>
</body></html>`)

	docs, err := New().Normalise(context.Background(), path, "faq.html")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "faq.html", doc.Metadata.Source)
	assert.Equal(t, domain.TypeHTML, doc.Metadata.Type)
	assert.False(t, doc.Metadata.Degraded)
	assert.Contains(t, doc.Content, "Opening Hours")
	assert.Contains(t, doc.Content, "**9am**")
	assert.NotContains(t, doc.Content, "<p>")
}

func TestNormalise_EmptyBody(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "blank.html", "<html><body>   </body></html>")

	docs, err := New().Normalise(context.Background(), path, "blank.html")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestNormalise_MissingFile(t *testing.T) {
	_, err := New().Normalise(context.Background(), "/nonexistent/x.html", "x.html")
	assert.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	input := `<html><head><title>ignored</title></head><body>
<script>var x = 1;</script>
<p>First paragraph.</p>
<p>Second &amp; final.</p>
</body></html>`

	got := stripHTML(input)
	assert.Contains(t, got, "First paragraph.")
	assert.Contains(t, got, "Second & final.")
	assert.NotContains(t, got, "var x")
	assert.NotContains(t, got, "ignored")
	assert.NotContains(t, got, "<")
}

func TestCollapseBlankLines(t *testing.T) {
	got := collapseBlankLines("a\n\n\n\n\nb")
	assert.Equal(t, "a\n\nb", got)
	assert.Equal(t, 2, strings.Count(got, "\n"))
}

package extractor_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/types"
	"github.com/docsage/docsage/pkg/extractor"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistryLookup(t *testing.T) {
	r := extractor.NewRegistry()

	for _, ext := range []string{".txt", ".md", ".csv", ".pdf", ".docx", ".pptx", ".html"} {
		_, err := r.Lookup("some/file" + ext)
		assert.NoError(t, err, "extension %s should be registered", ext)
	}

	_, err := r.Lookup("some/file.xyz")
	assert.ErrorIs(t, err, types.ErrUnsupportedFormat)

	assert.True(t, r.Supported("A/B/C.TXT"), "extension matching is case-insensitive")
	assert.False(t, r.Supported("noextension"))
}

func TestRegistryExtensions(t *testing.T) {
	exts := extractor.NewRegistry().Extensions()
	assert.Contains(t, exts, ".pdf")
	assert.Contains(t, exts, ".docx")
	assert.Contains(t, exts, ".md")
}

func TestPlaintextExtract(t *testing.T) {
	path := writeTemp(t, "plain.txt", "hello\n\nworld")

	text, err := (&extractor.Plaintext{}).Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n\nworld", text)
}

func TestMarkdownExtract(t *testing.T) {
	md := "# Title\n\nSome **bold** and *italic* text with a [link](https://example.com).\n\n```go\ncode here\n```\n\n> a quote\n"
	path := writeTemp(t, "doc.md", md)

	text, err := (&extractor.Markdown{}).Extract(path)
	require.NoError(t, err)

	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Some bold and italic text with a link.")
	assert.Contains(t, text, "code here")
	assert.Contains(t, text, "a quote")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "](")
	assert.NotContains(t, text, "```")
	assert.NotContains(t, text, "# ")
}

func TestCSVExtract(t *testing.T) {
	path := writeTemp(t, "data.csv", "name,role\nalice,admin\nbob,viewer\n")

	text, err := (&extractor.CSV{}).Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "name, role\nalice, admin\nbob, viewer", text)
}

func TestHTMLExtract(t *testing.T) {
	html := `<html><head><title>T</title><style>p{color:red}</style></head>
<body><nav>menu items</nav><main><p>First paragraph.</p><p>Second   paragraph.</p></main>
<footer>footer junk</footer></body></html>`
	path := writeTemp(t, "page.html", html)

	text, err := (&extractor.HTML{}).Extract(path)
	require.NoError(t, err)

	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
	assert.NotContains(t, text, "menu items")
	assert.NotContains(t, text, "footer junk")
	assert.NotContains(t, text, "color:red")
}

func writeZip(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for file, content := range files {
		fw, err := w.Create(file)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestDocxExtract(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph of the report.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph </w:t></w:r><w:r><w:t>split across runs.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	path := writeZip(t, "report.docx", map[string]string{
		"word/document.xml": docXML,
	})

	text, err := (&extractor.Docx{}).Extract(path)
	require.NoError(t, err)

	assert.Contains(t, text, "First paragraph of the report.")
	assert.Contains(t, text, "Second paragraph split across runs.")
	assert.Contains(t, text, "\n\n", "paragraphs are separated by blank lines")
}

func TestDocxNotAnArchive(t *testing.T) {
	path := writeTemp(t, "fake.docx", "not a zip")

	_, err := (&extractor.Docx{}).Extract(path)
	assert.Error(t, err)
}

func TestPptxExtract(t *testing.T) {
	slide := func(body string) string {
		return `<?xml version="1.0"?>` +
			`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"` +
			` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">` +
			`<p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + body +
			`</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	path := writeZip(t, "deck.pptx", map[string]string{
		"ppt/slides/slide2.xml": slide("Second slide"),
		"ppt/slides/slide1.xml": slide("First slide"),
		"ppt/other.xml":         `<x xmlns:a="y"><a:t>ignored</a:t></x>`,
	})

	text, err := (&extractor.Pptx{}).Extract(path)
	require.NoError(t, err)

	assert.Contains(t, text, "First slide")
	assert.Contains(t, text, "Second slide")
	assert.NotContains(t, text, "ignored")
	assert.Less(t, strings.Index(text, "First slide"), strings.Index(text, "Second slide"),
		"slides come out in order")
}

func TestLegacyFormats(t *testing.T) {
	r := extractor.NewRegistry()

	e, err := r.Lookup("old.doc")
	require.NoError(t, err)
	_, err = e.Extract("old.doc")
	assert.ErrorContains(t, err, "convert")
}

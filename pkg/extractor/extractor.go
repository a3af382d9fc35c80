package extractor

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/docsage/docsage/internal/types"
)

// Registry maps lowercase file extensions to TextExtractor implementations.
// Adding a format means registering one implementation.
type Registry struct {
	byExt map[string]types.TextExtractor
}

// NewRegistry returns a registry with all built-in formats registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]types.TextExtractor)}

	r.Register(".txt", &Plaintext{})
	r.Register(".md", &Markdown{})
	r.Register(".markdown", &Markdown{})
	r.Register(".csv", &CSV{})
	r.Register(".pdf", &PDF{})
	r.Register(".docx", &Docx{})
	r.Register(".pptx", &Pptx{})
	r.Register(".html", &HTML{})
	r.Register(".htm", &HTML{})
	r.Register(".doc", &legacy{hint: ".docx"})
	r.Register(".ppt", &legacy{hint: ".pptx"})

	return r
}

func (r *Registry) Register(ext string, e types.TextExtractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Lookup returns the extractor for a path's extension, or
// ErrUnsupportedFormat when none is registered.
func (r *Registry) Lookup(path string) (types.TextExtractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, ext)
	}
	return e, nil
}

// Supported reports whether the path's extension has a registered extractor.
func (r *Registry) Supported(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions lists the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// legacy covers the pre-OOXML binary Office formats, which we do not parse.
type legacy struct {
	hint string
}

func (l *legacy) Extract(path string) (string, error) {
	return "", fmt.Errorf("legacy binary Office format %q is not supported, convert %s to %s",
		filepath.Ext(path), filepath.Base(path), l.hint)
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}

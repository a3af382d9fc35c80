package extractor

import (
	"os"
	"regexp"
	"strings"
)

// Markdown strips formatting down to plain text while keeping line and
// paragraph structure, so chunk boundaries can still prefer paragraphs.
type Markdown struct{}

var (
	mdCodeFence  = regexp.MustCompile("(?m)^```[^\n]*$")
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdEmphasis   = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+)(\*{1,3}|_{1,3})`)
	mdInlineCode = regexp.MustCompile("`([^`]*)`")
	mdHTMLTag    = regexp.MustCompile(`<[^>]+>`)
	mdRule       = regexp.MustCompile(`(?m)^(\s*[-*_]){3,}\s*$`)
	mdBlockquote = regexp.MustCompile(`(?m)^>\s?`)
)

func (m *Markdown) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	text := sanitizeUTF8(string(data))
	text = mdCodeFence.ReplaceAllString(text, "")
	text = mdImage.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdEmphasis.ReplaceAllString(text, "$2")
	text = mdInlineCode.ReplaceAllString(text, "$1")
	text = mdHTMLTag.ReplaceAllString(text, "")
	text = mdRule.ReplaceAllString(text, "")
	text = mdBlockquote.ReplaceAllString(text, "")

	return strings.TrimSpace(text), nil
}

package extractor

import (
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTML extracts the main content area of an HTML file, falling back to the
// whole body when no content landmark is present.
type HTML struct{}

func (h *HTML) Extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, header, footer").Remove()

	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	if content == "" {
		content = doc.Find("body").Text()
	}

	return cleanHTMLText(content), nil
}

// cleanHTMLText collapses runs of whitespace within lines but keeps blank
// lines so paragraph structure survives for chunking.
func cleanHTMLText(content string) string {
	lines := strings.Split(content, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return sanitizeUTF8(strings.TrimSpace(strings.Join(out, "\n")))
}

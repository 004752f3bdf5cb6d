package extract

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	"github.com/microcosm-cc/bluemonday"
)

// LoadHTML extracts plain context text from an HTML document. Script and
// style subtrees are dropped, the remaining markup is sanitized down to text.
func LoadHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("render html body: %w", err)
	}
	if strings.TrimSpace(body) == "" {
		body, err = doc.Html()
		if err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}

	text := bluemonday.StrictPolicy().Sanitize(body)
	return collapseWhitespace(html.UnescapeString(text)), nil
}

// LoadMarkdown extracts plain context text from a Markdown document by
// rendering it to HTML and stripping the markup
func LoadMarkdown(src []byte) (string, error) {
	rendered := markdown.ToHTML(src, nil, nil)
	text := bluemonday.StrictPolicy().Sanitize(string(rendered))
	return collapseWhitespace(html.UnescapeString(text)), nil
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if t := strings.Join(strings.Fields(line), " "); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n")
}

package normalize

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelector = "p, br, li, div, tr, h1, h2, h3, h4, h5, h6, ul, ol, section, article"

// PlainText converts HTML (or HTML-escaped HTML, as Greenhouse serves it) to
// plain text. Line structure is kept; runs of spaces are collapsed and blank
// lines squeezed. Text without markup is only whitespace-cleaned.
func PlainText(s string) string {
	if !strings.Contains(s, "<") && strings.Contains(s, "&lt;") {
		s = html.UnescapeString(s)
	}
	if !strings.ContainsAny(s, "<&") {
		return cleanLines(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return cleanLines(s)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	return cleanLines(doc.Text())
}

// CollapseWhitespace joins all whitespace runs, including newlines, into
// single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = CollapseWhitespace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

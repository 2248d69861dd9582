package goquery

import (
	"regexp"
	"strings"
)

// blockTagRe matches opening and closing tags that bound paragraphs.
var blockTagRe = regexp.MustCompile(`(?i)<\s*(/)?\s*(p|h[1-6]|figure|blockquote)\b[^>]*>`)

// Balance closes paragraphs that authors left open before a following
// block element. An opening p, h1-h6, figure or blockquote tag while a
// paragraph is open gets a </p> inserted in front of it, and a paragraph
// still open at the end is closed. Balance is idempotent.
func Balance(markup string) string {
	var b strings.Builder
	b.Grow(len(markup) + 16)

	open := false
	last := 0
	for _, m := range blockTagRe.FindAllStringSubmatchIndex(markup, -1) {
		start, end := m[0], m[1]
		closing := m[2] >= 0
		tag := strings.ToLower(markup[m[4]:m[5]])

		b.WriteString(markup[last:start])
		if !closing && open {
			b.WriteString("</p>")
			open = false
		}
		b.WriteString(markup[start:end])
		if tag == "p" {
			open = !closing
		}
		last = end
	}
	b.WriteString(markup[last:])
	if open {
		b.WriteString("</p>")
	}
	return b.String()
}

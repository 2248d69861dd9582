package newsgrab

import (
	"html"
	"strings"
)

// Converter renders HTML and structured articles as Markdown for
// previews.
type Converter interface {
	Convert(html string) (string, error)
	ConvertArticle(article *Article) (string, error)
}

// Render returns the HTML of an article with its content in key order and
// image placeholders resolved to figures. It is the input for previews.
func Render(a *Article) string {
	images := make(map[string]*Image, len(a.Images))
	for _, img := range a.Images {
		images[img.ID] = img
	}

	var b strings.Builder
	writeElement(&b, "h1", html.EscapeString(a.Title))
	for _, key := range a.Content.Keys() {
		value, _ := a.Content.Get(key)
		switch kind := KeyKind(key); kind {
		case "img":
			img, ok := images[key]
			if !ok {
				continue
			}
			inner := `<img src="` + html.EscapeString(img.URL) + `">`
			if img.Caption != "" {
				inner += "<figcaption>" + html.EscapeString(img.Caption) + "</figcaption>"
			}
			writeElement(&b, "figure", inner)
		case "blockquote":
			writeElement(&b, "blockquote", value)
		case "li":
			writeElement(&b, "ul", "<li>"+html.EscapeString(value)+"</li>")
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			writeElement(&b, kind, html.EscapeString(value))
		}
	}
	return b.String()
}

// KeyKind returns the element kind of a content key: "h2" for "h2_0",
// "p" for "p12", "img" for "img3".
func KeyKind(key string) string {
	kind := strings.TrimRight(key, "0123456789")
	return strings.TrimSuffix(kind, "_")
}

func writeElement(b *strings.Builder, tag, inner string) {
	b.WriteString("<" + tag + ">")
	b.WriteString(inner)
	b.WriteString("</" + tag + ">\n")
}

// Package htmltomarkdown renders article previews as Markdown with
// github.com/JohannesKaufmann/html-to-markdown/v2.
package htmltomarkdown

import (
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/newsgrab"
)

var _ newsgrab.Converter = (*Converter)(nil)

// Converter turns article HTML into CommonMark with table support.
type Converter struct {
	md *converter.Converter
}

// NewConverter creates a Converter.
func NewConverter() *Converter {
	return &Converter{md: converter.NewConverter(converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	))}
}

// Convert transforms an HTML fragment into Markdown.
// Returns EINVALID for blank input.
func (c *Converter) Convert(html string) (string, error) {
	return c.convert(html, "")
}

// ConvertArticle renders a structured article: its title, the content in
// key order with image placeholders resolved, and a tag line. Relative
// links resolve against the article's source site.
func (c *Converter) ConvertArticle(article *newsgrab.Article) (string, error) {
	md, err := c.convert(newsgrab.Render(article), siteOf(article.SourceURL))
	if err != nil {
		return "", err
	}
	if len(article.Tags) == 0 {
		return md, nil
	}
	tags := make([]string, len(article.Tags))
	for i, t := range article.Tags {
		tags[i] = "`" + t + "`"
	}
	return md + "\n\nTags: " + strings.Join(tags, " "), nil
}

func (c *Converter) convert(html, domain string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", newsgrab.Errorf(newsgrab.EINVALID, "empty HTML input")
	}
	var opts []converter.ConvertOptionFunc
	if domain != "" {
		opts = append(opts, converter.WithDomain(domain))
	}
	md, err := c.md.ConvertString(html, opts...)
	if err != nil {
		return "", newsgrab.Errorf(newsgrab.EEXTRACT, "converting to markdown: %v", err)
	}
	return strings.TrimSpace(md), nil
}

// siteOf returns the scheme and host of rawURL, or "" when it has none.
func siteOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Package trafilatura extracts article metadata and main content with
// github.com/markusmobius/go-trafilatura.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/newsgrab"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements newsgrab.Extractor at compile time.
var _ newsgrab.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura. Its metadata backs up the title, author,
// thumbnail and tag selectors of a site.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the page metadata and main content of rawHTML.
func (e *Extractor) Extract(rawHTML string) (*newsgrab.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, newsgrab.Errorf(newsgrab.EINVALID, "empty HTML input")
	}

	opts := trafilatura.Options{
		EnableFallback: true,
		IncludeImages:  true,
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EEXTRACT, "trafilatura: %v", err)
	}

	var contentHTML string
	if result.ContentNode != nil {
		contentHTML, err = renderNode(result.ContentNode)
		if err != nil {
			return nil, err
		}
	}

	meta := result.Metadata
	tags := make([]string, 0, len(meta.Categories)+len(meta.Tags))
	tags = append(tags, meta.Categories...)
	tags = append(tags, meta.Tags...)

	return &newsgrab.ExtractResult{
		Title:       meta.Title,
		Author:      meta.Author,
		ImageURL:    meta.Image,
		Tags:        tags,
		ContentHTML: contentHTML,
	}, nil
}

// renderNode converts an html.Node to a string.
func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

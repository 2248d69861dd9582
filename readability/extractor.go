// Package readability extracts article bodies with
// github.com/go-shiori/go-readability.
package readability

import (
	"strings"

	"github.com/fwojciec/newsgrab"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements newsgrab.Extractor at compile time.
var _ newsgrab.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability. It backs up a site's body selector.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the readable body of rawHTML with its title, byline and
// lead image.
func (e *Extractor) Extract(rawHTML string) (*newsgrab.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, newsgrab.Errorf(newsgrab.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EEXTRACT, "readability: %v", err)
	}

	return &newsgrab.ExtractResult{
		Title:       article.Title,
		Author:      article.Byline,
		ImageURL:    article.Image,
		ContentHTML: article.Content,
	}, nil
}

package mock

import "github.com/fwojciec/newsgrab"

var _ newsgrab.Converter = (*Converter)(nil)

// Converter is a mock implementation of newsgrab.Converter.
type Converter struct {
	ConvertFn        func(html string) (string, error)
	ConvertArticleFn func(article *newsgrab.Article) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

func (c *Converter) ConvertArticle(article *newsgrab.Article) (string, error) {
	return c.ConvertArticleFn(article)
}

package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/fs"
	"github.com/fwojciec/newsgrab/goquery"
)

// Run executes the preview command. Nothing is submitted.
func (c *PreviewCmd) Run(deps *Dependencies) error {
	site, err := goquery.LookupSite(c.Site)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s (known sites: %s)\n", newsgrab.ErrorMessage(err), strings.Join(goquery.SiteNames(), ", "))
		return err
	}

	cfg := newsgrab.SourceConfig{Name: site.Name, Enabled: true, ListingURL: c.URL}
	src := newSource(site, cfg, deps.Globals, deps.Fetcher, deps.Dates, deps.Logger)

	raw, err := src.FetchRaw(deps.Ctx, &newsgrab.Link{URL: c.URL})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", newsgrab.ErrorMessage(err))
		return err
	}
	article, err := src.ToStructured(raw)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", newsgrab.ErrorMessage(err))
		return err
	}
	markdown, err := deps.Converter.ConvertArticle(article)
	if err != nil {
		return err
	}

	doc, err := fs.FormatArticle(article, markdown)
	if err != nil {
		return err
	}
	fmt.Fprintln(deps.Stdout, doc)
	fmt.Fprintf(deps.Stdout, "Content keys: %s\n", strings.Join(article.Content.Keys(), ", "))
	fmt.Fprintf(deps.Stdout, "Images: %d\n", len(article.Images))

	if c.Out != "" {
		path, err := fs.NewWriter(c.Out).WriteArticle(article, markdown)
		if err != nil {
			return err
		}
		fmt.Fprintf(deps.Stdout, "Wrote %s\n", path)
	}
	return nil
}

package goquery

import (
	"context"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/newsgrab"
)

// Ensure Source implements newsgrab.Source at compile time.
var _ newsgrab.Source = (*Source)(nil)

// Source is the generic site adapter. It interprets a newsgrab.Site
// selector table; all site-specific knowledge lives in that table.
type Source struct {
	Site   *newsgrab.Site
	Config newsgrab.SourceConfig

	Fetcher newsgrab.Fetcher
	Dates   newsgrab.DateParser

	// Feeds and Sitemaps serve the feed and sitemap discovery modes.
	Feeds    newsgrab.FeedService
	Sitemaps newsgrab.SitemapService

	// Metadata fills title, author, thumbnail and tags when the site
	// selectors find nothing. Optional.
	Metadata newsgrab.Extractor

	// Body extracts the article body when the body selector finds nothing.
	// Optional.
	Body newsgrab.Extractor

	Segmenter newsgrab.Segmenter
	Logger    *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewSource creates a Source for site configured by cfg.
func NewSource(site *newsgrab.Site, cfg newsgrab.SourceConfig, fetcher newsgrab.Fetcher, dates newsgrab.DateParser) *Source {
	return &Source{
		Site:      site,
		Config:    cfg,
		Fetcher:   fetcher,
		Dates:     dates,
		Segmenter: NewSegmenter(site),
		Now:       time.Now,
	}
}

// Name returns the configured source name, falling back to the site name.
func (s *Source) Name() string {
	if s.Config.Name != "" {
		return s.Config.Name
	}
	return s.Site.Name
}

// Order returns the processing order: the configured order if set, then
// the site default, then newest first.
func (s *Source) Order() newsgrab.Order {
	switch {
	case s.Config.Order != "":
		return s.Config.Order
	case s.Site.Order != "":
		return s.Site.Order
	}
	return newsgrab.NewestFirst
}

// Discovery returns the discovery mode: the configured mode if set, then
// the site default, then listing.
func (s *Source) Discovery() newsgrab.DiscoveryMode {
	switch {
	case s.Config.Discovery != "":
		return s.Config.Discovery
	case s.Site.Discovery != "":
		return s.Site.Discovery
	}
	return newsgrab.DiscoverListing
}

// Discover returns the links at listingURL that fall inside the age
// window, sorted in processing order. Undated links, links with
// unparsable dates and skipped prefixes are dropped and logged.
func (s *Source) Discover(ctx context.Context, listingURL string) ([]*newsgrab.Link, error) {
	var links []*newsgrab.Link
	var err error
	switch s.Discovery() {
	case newsgrab.DiscoverFeed:
		if s.Feeds == nil {
			return nil, newsgrab.Errorf(newsgrab.EINVALID, "%s: feed discovery not configured", s.Name())
		}
		feedURL := listingURL
		if s.Config.FeedURL != "" {
			feedURL = s.Config.FeedURL
		}
		links, err = s.Feeds.DiscoverLinks(ctx, feedURL)
	case newsgrab.DiscoverSitemap:
		if s.Sitemaps == nil {
			return nil, newsgrab.Errorf(newsgrab.EINVALID, "%s: sitemap discovery not configured", s.Name())
		}
		links, err = s.Sitemaps.DiscoverLinks(ctx, listingURL, s.Site.Filter)
	default:
		links, err = s.discoverListing(ctx, listingURL)
	}
	if err != nil {
		if newsgrab.ErrorCode(err) != newsgrab.EINTERNAL {
			return nil, err
		}
		return nil, newsgrab.Errorf(newsgrab.EFETCH, "discovering %s: %v", listingURL, err)
	}

	maxAge := s.Site.MaxAge(s.Config.MaxAgeDays)
	now := s.now()
	seen := make(map[string]bool)
	out := make([]*newsgrab.Link, 0, len(links))
	for i, l := range links {
		switch {
		case seen[l.URL]:
			continue
		case s.Site.SkipLink(l.URL) || !s.Site.Filter.Match(l.URL):
			s.logger().Debug("skipping link", "source", s.Name(), "url", l.URL)
			continue
		case l.PublishedAt.IsZero():
			s.logger().Debug("skipping undated link", "source", s.Name(), "url", l.URL)
			continue
		case !newsgrab.IsWithinAge(l.PublishedAt, now, maxAge):
			continue
		}
		seen[l.URL] = true
		out = append(out, &newsgrab.Link{URL: l.URL, PublishedAt: l.PublishedAt, Seq: i})
	}
	newsgrab.SortLinks(out, s.Order())
	return out, nil
}

func (s *Source) discoverListing(ctx context.Context, listingURL string) ([]*newsgrab.Link, error) {
	page, err := s.Fetcher.Fetch(ctx, listingURL)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EFETCH, "fetching listing %s: %v", listingURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EEXTRACT, "parsing listing %s: %v", listingURL, err)
	}
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EINVALID, "invalid listing URL %q", listingURL)
	}

	var links []*newsgrab.Link
	doc.Find(s.Site.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		href := resolve(base, linkIn(item, s.Site.LinkSelector).AttrOr("href", ""))
		if href == "" {
			return
		}
		text := dateIn(item, s.Site.DateSelector, s.Site.DateAttr)
		published, err := s.Dates.ParseDate(text, s.Site.Calendar)
		if err != nil {
			s.logger().Warn("skipping link with unparsable date",
				"source", s.Name(),
				"url", href,
				"date", text,
				"err", err,
			)
			return
		}
		links = append(links, &newsgrab.Link{URL: href, PublishedAt: published})
	})
	return links, nil
}

// FetchRaw downloads the article page and locates its parts.
func (s *Source) FetchRaw(ctx context.Context, link *newsgrab.Link) (*newsgrab.RawArticle, error) {
	page, err := s.Fetcher.Fetch(ctx, link.URL)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EFETCH, "fetching %s: %v", link.URL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EEXTRACT, "parsing %s: %v", link.URL, err)
	}
	base, err := url.Parse(link.URL)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EINVALID, "invalid article URL %q", link.URL)
	}

	p := &pageParts{source: s, doc: doc, html: page}
	body := p.body()
	if strings.TrimSpace(body) == "" {
		return nil, newsgrab.Errorf(newsgrab.ENOTFOUND, "no article body at %s", link.URL)
	}

	return &newsgrab.RawArticle{
		URL:          link.URL,
		PublishedAt:  link.PublishedAt,
		Author:       p.author(),
		Title:        p.title(),
		BodyHTML:     body,
		ThumbnailURL: resolve(base, p.thumbnail()),
		Tags:         p.tags(),
	}, nil
}

// ToStructured segments the raw body and assembles the article.
func (s *Source) ToStructured(raw *newsgrab.RawArticle) (*newsgrab.Article, error) {
	res, err := s.Segmenter.Segment(raw.BodyHTML, raw.URL)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EEXTRACT, "segmenting %s: %v", raw.URL, err)
	}

	tags := raw.Tags
	if tags == nil {
		tags = []string{}
	}
	return &newsgrab.Article{
		Title:          CleanText(raw.Title),
		SourceURL:      raw.URL,
		SourceDate:     raw.PublishedAt.UTC().Format(newsgrab.DateLayout),
		Creator:        raw.Author,
		ThumbnailImage: raw.ThumbnailURL,
		Content:        res.Content,
		Images:         res.Images,
		Tags:           tags,
		Status:         newsgrab.StatusDraft,
	}, nil
}

func (s *Source) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Source) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

// pageParts locates article parts on a page, consulting the metadata
// extractor at most once.
type pageParts struct {
	source *Source
	doc    *goquery.Document
	html   string

	meta    *newsgrab.ExtractResult
	metaRun bool
}

func (p *pageParts) metadata() *newsgrab.ExtractResult {
	if !p.metaRun {
		p.metaRun = true
		if p.source.Metadata != nil {
			if res, err := p.source.Metadata.Extract(p.html); err == nil {
				p.meta = res
			}
		}
	}
	if p.meta == nil {
		return &newsgrab.ExtractResult{}
	}
	return p.meta
}

func (p *pageParts) body() string {
	site := p.source.Site
	if site.BodySelector != "" {
		if sel := p.doc.Find(site.BodySelector).First(); sel.Length() > 0 {
			if inner, err := sel.Html(); err == nil && strings.TrimSpace(inner) != "" {
				return inner
			}
		}
	}
	if p.source.Body != nil {
		if res, err := p.source.Body.Extract(p.html); err == nil {
			return res.ContentHTML
		}
	}
	return ""
}

func (p *pageParts) title() string {
	site := p.source.Site
	candidates := []string{
		selectorText(p.doc, site.TitleSelector),
		p.metadata().Title,
		metaContent(p.doc, `meta[property="og:title"]`),
		p.doc.Find("title").First().Text(),
	}
	for _, c := range candidates {
		if t := cleanMarkup(c); t != "" {
			return t
		}
	}
	return ""
}

func (p *pageParts) author() string {
	site := p.source.Site
	candidates := []string{
		selectorText(p.doc, site.AuthorSelector),
		p.metadata().Author,
		metaContent(p.doc, `meta[name="author"]`),
	}
	for _, c := range candidates {
		if a := cleanMarkup(c); a != "" {
			return a
		}
	}
	return site.DefaultAuthor
}

func (p *pageParts) thumbnail() string {
	site := p.source.Site
	if site.ThumbnailSelector != "" {
		sel := p.doc.Find(site.ThumbnailSelector).First()
		switch goquery.NodeName(sel) {
		case "img":
			if src := ImageSource(sel); src != "" && !strings.HasPrefix(src, "data:") {
				return src
			}
		case "meta":
			if c := strings.TrimSpace(sel.AttrOr("content", "")); c != "" {
				return c
			}
		default:
			if src := ImageSource(sel.Find("img").First()); src != "" && !strings.HasPrefix(src, "data:") {
				return src
			}
		}
	}
	if og := metaContent(p.doc, `meta[property="og:image"]`); og != "" {
		return og
	}
	return p.metadata().ImageURL
}

func (p *pageParts) tags() []string {
	site := p.source.Site
	var raw []string
	if site.TagSelector != "" {
		p.doc.Find(site.TagSelector).Each(func(_ int, sel *goquery.Selection) {
			raw = append(raw, sel.Text())
		})
		if site.SkipTags > 0 {
			raw = raw[min(site.SkipTags, len(raw)):]
		}
	}
	if len(raw) == 0 {
		if kw := metaContent(p.doc, `meta[name="keywords"]`); kw != "" {
			raw = strings.Split(kw, ",")
		}
	}
	if len(raw) == 0 {
		raw = p.metadata().Tags
	}

	tags := []string{}
	seen := make(map[string]bool)
	for _, r := range raw {
		tag := CleanText(r)
		if tag == "" || seen[tag] || stopWord(tag, site.TagStopWords) {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if site.MaxTags > 0 && len(tags) == site.MaxTags {
			break
		}
	}
	return tags
}

func stopWord(tag string, stop []string) bool {
	for _, w := range stop {
		if strings.EqualFold(tag, w) {
			return true
		}
	}
	return false
}

// linkIn returns the link element of a listing item. Without a selector
// the item itself is used when it is a link, else its first link.
func linkIn(item *goquery.Selection, selector string) *goquery.Selection {
	if selector != "" {
		return item.Find(selector).First()
	}
	if goquery.NodeName(item) == "a" {
		return item
	}
	return item.Find("a[href]").First()
}

func dateIn(item *goquery.Selection, selector, attr string) string {
	sel := item
	if selector != "" {
		sel = item.Find(selector).First()
	}
	if attr != "" {
		return sel.AttrOr(attr, "")
	}
	return sel.Text()
}

func selectorText(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return doc.Find(selector).First().Text()
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

// cleanMarkup strips any markup left in metadata strings.
func cleanMarkup(s string) string {
	return CleanText(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

package mock

import (
	"context"
	"time"

	"github.com/fwojciec/newsgrab"
)

var _ newsgrab.Source = (*Source)(nil)

// Source is a mock implementation of newsgrab.Source.
type Source struct {
	NameFn         func() string
	DiscoverFn     func(ctx context.Context, listingURL string) ([]*newsgrab.Link, error)
	FetchRawFn     func(ctx context.Context, link *newsgrab.Link) (*newsgrab.RawArticle, error)
	ToStructuredFn func(raw *newsgrab.RawArticle) (*newsgrab.Article, error)
}

func (s *Source) Name() string {
	return s.NameFn()
}

func (s *Source) Discover(ctx context.Context, listingURL string) ([]*newsgrab.Link, error) {
	return s.DiscoverFn(ctx, listingURL)
}

func (s *Source) FetchRaw(ctx context.Context, link *newsgrab.Link) (*newsgrab.RawArticle, error) {
	return s.FetchRawFn(ctx, link)
}

func (s *Source) ToStructured(raw *newsgrab.RawArticle) (*newsgrab.Article, error) {
	return s.ToStructuredFn(raw)
}

var _ newsgrab.DateParser = (*DateParser)(nil)

// DateParser is a mock implementation of newsgrab.DateParser.
type DateParser struct {
	ParseDateFn func(text string, calendar newsgrab.Calendar) (time.Time, error)
}

func (p *DateParser) ParseDate(text string, calendar newsgrab.Calendar) (time.Time, error) {
	return p.ParseDateFn(text, calendar)
}

var _ newsgrab.FeedService = (*FeedService)(nil)

// FeedService is a mock implementation of newsgrab.FeedService.
type FeedService struct {
	DiscoverLinksFn func(ctx context.Context, feedURL string) ([]*newsgrab.Link, error)
}

func (s *FeedService) DiscoverLinks(ctx context.Context, feedURL string) ([]*newsgrab.Link, error) {
	return s.DiscoverLinksFn(ctx, feedURL)
}

var _ newsgrab.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of newsgrab.SitemapService.
type SitemapService struct {
	DiscoverLinksFn func(ctx context.Context, baseURL string, filter *newsgrab.URLFilter) ([]*newsgrab.Link, error)
}

func (s *SitemapService) DiscoverLinks(ctx context.Context, baseURL string, filter *newsgrab.URLFilter) ([]*newsgrab.Link, error) {
	return s.DiscoverLinksFn(ctx, baseURL, filter)
}

// Package gofeed discovers article links from RSS, Atom and JSON feeds
// using github.com/mmcdole/gofeed.
package gofeed

import (
	"context"
	"net/url"
	"strings"

	"github.com/fwojciec/newsgrab"
	"github.com/mmcdole/gofeed"
)

// Ensure FeedService implements newsgrab.FeedService at compile time.
var _ newsgrab.FeedService = (*FeedService)(nil)

// FeedService reads feeds through a newsgrab.Fetcher so feed requests share
// the fetcher's user agent, timeout and rate limits.
type FeedService struct {
	fetcher newsgrab.Fetcher
}

// NewFeedService creates a FeedService that fetches feeds with fetcher.
func NewFeedService(fetcher newsgrab.Fetcher) *FeedService {
	return &FeedService{fetcher: fetcher}
}

// DiscoverLinks returns the links of the feed's items in feed order. Each
// link is dated by the item's published date, or its updated date when the
// feed has no published date. Items without a date keep a zero PublishedAt.
func (s *FeedService) DiscoverLinks(ctx context.Context, feedURL string) ([]*newsgrab.Link, error) {
	base, err := url.Parse(feedURL)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EINVALID, "invalid feed URL %q", feedURL)
	}

	body, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EFETCH, "fetching feed %s: %v", feedURL, err)
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EEXTRACT, "parsing feed %s: %v", feedURL, err)
	}

	links := make([]*newsgrab.Link, 0, len(feed.Items))
	for i, item := range feed.Items {
		href := itemLink(item)
		if href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		link := &newsgrab.Link{URL: base.ResolveReference(ref).String(), Seq: i}
		switch {
		case item.PublishedParsed != nil:
			link.PublishedAt = item.PublishedParsed.UTC()
		case item.UpdatedParsed != nil:
			link.PublishedAt = item.UpdatedParsed.UTC()
		}
		links = append(links, link)
	}
	return links, nil
}

func itemLink(item *gofeed.Item) string {
	if l := strings.TrimSpace(item.Link); l != "" {
		return l
	}
	for _, l := range item.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}

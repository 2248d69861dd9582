package newsgrab

import (
	"context"
	"regexp"
	"slices"
)

// FeedService discovers article links from RSS and Atom feeds.
type FeedService interface {
	// DiscoverLinks returns the feed's item links in feed order, dated by
	// the items' publication dates.
	DiscoverLinks(ctx context.Context, feedURL string) ([]*Link, error)
}

// SitemapService discovers article links from a site's sitemaps.
type SitemapService interface {
	// DiscoverLinks returns the links listed in the sitemaps of the site at
	// baseURL, dated by news:publication_date or lastmod and zero when
	// neither is present. Sitemaps come from robots.txt, then
	// /sitemap.xml; indexes are followed. A nil filter keeps every link.
	DiscoverLinks(ctx context.Context, baseURL string, filter *URLFilter) ([]*Link, error)
}

// URLFilter keeps article URLs by pattern. A URL passes when it matches
// any Include pattern (or Include is empty) and no Exclude pattern.
// A nil filter passes every URL.
type URLFilter struct {
	Include []*regexp.Regexp
	Exclude []*regexp.Regexp
}

// NewURLFilter compiles include and exclude patterns.
// Returns EINVALID for a pattern that does not compile.
func NewURLFilter(include, exclude []string) (*URLFilter, error) {
	f := &URLFilter{}
	var err error
	if f.Include, err = compileAll(include); err != nil {
		return nil, err
	}
	if f.Exclude, err = compileAll(exclude); err != nil {
		return nil, err
	}
	return f, nil
}

// Match reports whether rawURL passes the filter.
func (f *URLFilter) Match(rawURL string) bool {
	if f == nil {
		return true
	}
	matches := func(re *regexp.Regexp) bool { return re.MatchString(rawURL) }
	if len(f.Include) > 0 && !slices.ContainsFunc(f.Include, matches) {
		return false
	}
	return !slices.ContainsFunc(f.Exclude, matches)
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, Errorf(EINVALID, "invalid URL pattern %q: %v", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

package newsgrab

import (
	"context"
	"strings"
)

// Source discovers and extracts articles from one news site.
type Source interface {
	// Name returns the unique source name.
	Name() string

	// Discover returns article links found at listingURL that fall within
	// the source's age window, in processing order.
	Discover(ctx context.Context, listingURL string) ([]*Link, error)

	// FetchRaw downloads the article page for link.
	// Returns ENOTFOUND if the page has no article body.
	FetchRaw(ctx context.Context, link *Link) (*RawArticle, error)

	// ToStructured segments the raw article into a structured article.
	// Returns EEXTRACT if the article cannot be structured.
	ToStructured(raw *RawArticle) (*Article, error)
}

// SourceConfig is the per-source configuration read at startup.
type SourceConfig struct {
	Name       string
	Enabled    bool
	ListingURL string
	MaxAgeDays int

	// Order overrides the site's default processing order when set.
	Order Order
	// Discovery overrides the site's discovery mode when set.
	Discovery DiscoveryMode
	// FeedURL is the feed read in feed discovery mode. The listing URL is
	// used when empty.
	FeedURL string
}

// Validate returns an error if the configuration is unusable.
func (c *SourceConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Errorf(EINVALID, "source name required")
	}
	if c.Enabled && strings.TrimSpace(c.ListingURL) == "" {
		return Errorf(EINVALID, "source %q: listing URL required", c.Name)
	}
	if c.MaxAgeDays < 0 {
		return Errorf(EINVALID, "source %q: max age must not be negative", c.Name)
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	return c.Order.Validate()
}

// DiscoveryMode selects where a site's article links come from.
type DiscoveryMode string

// Discovery modes.
const (
	DiscoverListing DiscoveryMode = "listing"
	DiscoverFeed    DiscoveryMode = "feed"
	DiscoverSitemap DiscoveryMode = "sitemap"
)

// Validate returns an error for an unknown mode. The empty mode is valid
// and means the site default applies.
func (m DiscoveryMode) Validate() error {
	switch m {
	case "", DiscoverListing, DiscoverFeed, DiscoverSitemap:
		return nil
	}
	return Errorf(EINVALID, "unknown discovery mode %q", string(m))
}

// Site is the declarative selector table for one news site. A single
// generic engine interprets it; nothing site-specific lives in code.
type Site struct {
	Name      string
	Discovery DiscoveryMode

	// Listing discovery. ItemSelector matches one entry per article;
	// LinkSelector and DateSelector are evaluated inside the entry. When
	// DateAttr is set the date is read from that attribute, otherwise from
	// the element text.
	ItemSelector string
	LinkSelector string
	DateSelector string
	DateAttr     string
	Calendar     Calendar

	// SkipPrefixes drops links that start with any prefix (ad redirects).
	SkipPrefixes []string

	// Filter restricts feed and sitemap links.
	Filter *URLFilter

	// MaxAgeCap clamps the configured max age when positive.
	MaxAgeCap int

	// Order is the default processing order.
	Order Order

	// Article page.
	TitleSelector     string
	AuthorSelector    string
	DefaultAuthor     string
	BodySelector      string
	ThumbnailSelector string
	TagSelector       string
	TagStopWords      []string
	SkipTags          int
	MaxTags           int

	// Exclude lists selectors removed from the body before segmentation.
	Exclude []string

	// ImageSelectors match image-bearing constructs in the body.
	ImageSelectors []string
}

// MaxAge returns the effective max age for a configured value.
func (s *Site) MaxAge(configured int) int {
	if s.MaxAgeCap > 0 && configured > s.MaxAgeCap {
		return s.MaxAgeCap
	}
	return configured
}

// SkipLink reports whether rawURL starts with one of the skip prefixes.
func (s *Site) SkipLink(rawURL string) bool {
	for _, p := range s.SkipPrefixes {
		if strings.HasPrefix(rawURL, p) {
			return true
		}
	}
	return false
}

package http

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/fwojciec/newsgrab"
)

var _ newsgrab.SitemapService = (*SitemapService)(nil)

// DefaultMaxSitemaps bounds the sitemap documents read per discovery,
// index files included.
const DefaultMaxSitemaps = 50

// errNoSitemap marks a sitemap location that does not exist.
var errNoSitemap = errors.New("sitemap not found")

// Date forms seen in news:publication_date and lastmod.
var sitemapDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// SitemapService discovers article links from website sitemaps via HTTP.
type SitemapService struct {
	client *http.Client

	// MaxSitemaps defaults to DefaultMaxSitemaps.
	MaxSitemaps int
}

// NewSitemapService creates a SitemapService using client, or a client
// with DefaultFetchTimeout when client is nil.
func NewSitemapService(client *http.Client) *SitemapService {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return &SitemapService{client: client, MaxSitemaps: DefaultMaxSitemaps}
}

// DiscoverLinks returns the links of every sitemap reachable from the
// site root, in document order without duplicates. When baseURL has a
// path, such as https://example.com/news/, only links under it are kept.
// Returns an empty slice when the site has no sitemap, EFETCH when a
// listed sitemap cannot be read and EEXTRACT for malformed XML.
func (s *SitemapService) DiscoverLinks(ctx context.Context, baseURL string, filter *newsgrab.URLFilter) ([]*newsgrab.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, newsgrab.Errorf(newsgrab.EINVALID, "invalid base URL %q", baseURL)
	}

	w := &sitemapWalk{
		svc:    s,
		prefix: strings.TrimSuffix(base.Path, "/"),
		filter: filter,
		queued: make(map[string]bool),
		seen:   make(map[string]bool),
		links:  []*newsgrab.Link{},
	}

	root := url.URL{Scheme: base.Scheme, Host: base.Host}
	starts, err := s.robotsSitemaps(ctx, root.String()+"/robots.txt")
	if err != nil {
		return nil, err
	}
	optional := len(starts) == 0
	if optional {
		starts = []string{root.String() + "/sitemap.xml"}
	}
	for _, u := range starts {
		w.enqueue(u)
	}

	if err := w.run(ctx, optional); err != nil {
		return nil, err
	}
	return w.links, nil
}

// sitemapWalk is one breadth-first pass over a site's sitemaps.
type sitemapWalk struct {
	svc    *SitemapService
	prefix string
	filter *newsgrab.URLFilter

	queue  []string
	queued map[string]bool
	seen   map[string]bool
	links  []*newsgrab.Link
}

func (w *sitemapWalk) enqueue(u string) {
	if u == "" || w.queued[u] {
		return
	}
	w.queued[u] = true
	w.queue = append(w.queue, u)
}

// run drains the queue. With optional set, a missing first sitemap means
// the site has none.
func (w *sitemapWalk) run(ctx context.Context, optional bool) error {
	limit := w.svc.MaxSitemaps
	if limit <= 0 {
		limit = DefaultMaxSitemaps
	}
	for read := 0; len(w.queue) > 0 && read < limit; read++ {
		u := w.queue[0]
		w.queue = w.queue[1:]

		body, err := w.svc.get(ctx, u)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case optional && read == 0 && errors.Is(err, errNoSitemap):
			return nil
		default:
			return newsgrab.Errorf(newsgrab.EFETCH, "reading sitemap %s: %v", u, err)
		}

		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(body); err != nil || doc.Root() == nil {
			return newsgrab.Errorf(newsgrab.EEXTRACT, "parsing sitemap %s: malformed XML", u)
		}
		w.visit(doc.Root())
	}
	return nil
}

// visit queues the children of a sitemap index or collects a urlset.
func (w *sitemapWalk) visit(root *etree.Element) {
	if root.Tag == "sitemapindex" {
		for _, sm := range root.SelectElements("sitemap") {
			w.enqueue(childText(sm, "loc"))
		}
		return
	}
	for _, el := range root.SelectElements("url") {
		loc := childText(el, "loc")
		if loc == "" || w.seen[loc] {
			continue
		}
		w.seen[loc] = true
		if !w.underPrefix(loc) || !w.filter.Match(loc) {
			continue
		}
		w.links = append(w.links, &newsgrab.Link{URL: loc, PublishedAt: entryDate(el)})
	}
}

func (w *sitemapWalk) underPrefix(rawURL string) bool {
	if w.prefix == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Path == w.prefix || strings.HasPrefix(u.Path, w.prefix+"/")
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

// entryDate prefers the Google News publication date over lastmod.
func entryDate(el *etree.Element) time.Time {
	var candidates []string
	if news := el.SelectElement("news"); news != nil {
		candidates = append(candidates, childText(news, "publication_date"))
	}
	candidates = append(candidates, childText(el, "lastmod"))
	for _, text := range candidates {
		for _, layout := range sitemapDateLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// robotsSitemaps returns the Sitemap directives of robots.txt. A missing
// or unreadable robots.txt yields none.
func (s *SitemapService) robotsSitemaps(ctx context.Context, robotsURL string) ([]string, error) {
	body, err := s.get(ctx, robotsURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}

	var out []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), "sitemap") {
			if u := strings.TrimSpace(value); u != "" {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (s *SitemapService) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNoSitemap
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

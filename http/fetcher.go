// Package http implements the network side of newsgrab: page fetching,
// sitemap discovery and the client of the remote article store.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/newsgrab"
)

// DefaultFetchTimeout bounds every outbound request.
const DefaultFetchTimeout = 10 * time.Second

// DefaultUserAgent is sent with every request. Several news sites reject
// the Go default.
const DefaultUserAgent = "Mozilla/5.0 (compatible; newsgrab/1.0)"

// maxBodySize caps downloaded pages and images.
const maxBodySize = 32 << 20

// Ensure Fetcher implements newsgrab.Fetcher and newsgrab.Downloader at
// compile time.
var (
	_ newsgrab.Fetcher    = (*Fetcher)(nil)
	_ newsgrab.Downloader = (*Fetcher)(nil)
)

// Fetcher retrieves pages and images over plain HTTP. It does not execute
// JavaScript; use rod.Fetcher for script-rendered listings.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	limiter   newsgrab.DomainLimiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithLimiter paces requests per host.
func WithLimiter(l newsgrab.DomainLimiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// NewFetcher creates a new HTTP Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch returns the page at rawURL. Non-200 responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	body, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Download returns the raw bytes at rawURL.
func (f *Fetcher) Download(ctx context.Context, rawURL string) ([]byte, error) {
	return f.get(ctx, rawURL)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, u.Hostname()); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

// Close is a no-op; http.Client needs no cleanup.
func (f *Fetcher) Close() error {
	return nil
}

package newsgrab

import "context"

// Fetcher downloads article and listing pages. Implementations may render
// scripts in a browser before returning the page.
type Fetcher interface {
	// Fetch returns the HTML at url. A non-2xx response is an error.
	Fetch(ctx context.Context, url string) (html string, err error)

	Close() error
}

// Downloader retrieves raw bytes, such as images being rehosted.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// DomainLimiter paces requests per host so one slow site never
// throttles another.
type DomainLimiter interface {
	// Wait blocks until a request to domain is allowed or ctx ends.
	Wait(ctx context.Context, domain string) error
}

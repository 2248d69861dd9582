package mock

import (
	"context"

	"github.com/fwojciec/newsgrab"
)

var _ newsgrab.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of newsgrab.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (string, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

var _ newsgrab.Downloader = (*Downloader)(nil)

// Downloader is a mock implementation of newsgrab.Downloader.
type Downloader struct {
	DownloadFn func(ctx context.Context, url string) ([]byte, error)
}

func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	return d.DownloadFn(ctx, url)
}

var _ newsgrab.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of newsgrab.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}

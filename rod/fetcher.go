// Package rod fetches script-rendered pages with a headless Chrome driven
// by github.com/go-rod/rod.
package rod

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Fetcher implements newsgrab.Fetcher at compile time.
var _ newsgrab.Fetcher = (*Fetcher)(nil)

// Defaults for browser fetching.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxPages     = 75
)

// Fetcher returns the HTML of pages after their scripts have run. Chrome
// keeps growing its memory over a long session, so the browser is
// relaunched after MaxPages pages once no fetch is in flight.
//
// Fetcher is safe for concurrent use.
type Fetcher struct {
	timeout   time.Duration
	maxPages  int
	userAgent string
	limiter   newsgrab.DomainLimiter

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	pages    int
	inflight int
	closed   atomic.Bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxPages sets how many pages a browser serves before relaunch.
func WithMaxPages(n int) Option {
	return func(f *Fetcher) {
		f.maxPages = n
	}
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithLimiter rate limits fetches per host.
func WithLimiter(l newsgrab.DomainLimiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// NewFetcher launches a headless browser. Close must be called to stop it.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		timeout:  DefaultFetchTimeout,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.launch(); err != nil {
		return nil, err
	}
	return f, nil
}

// Fetch loads url, waits for the load event and returns the rendered HTML.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.limiter != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", newsgrab.Errorf(newsgrab.EINVALID, "invalid URL %q", rawURL)
		}
		if err := f.limiter.Wait(ctx, u.Hostname()); err != nil {
			return "", err
		}
	}

	browser, err := f.acquire()
	if err != nil {
		return "", err
	}
	defer f.release()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("opening page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if f.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}); err != nil {
			return "", fmt.Errorf("setting user agent: %w", err)
		}
	}
	if err := page.Navigate(rawURL); err != nil {
		return "", fmt.Errorf("navigating to %s: %w", rawURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("loading %s: %w", rawURL, err)
	}
	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return html, nil
}

// Close stops the browser. It is safe to call more than once.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdown(f.browser, f.launcher)
}

// LauncherPID returns the process id of the running browser launcher.
func (f *Fetcher) LauncherPID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launcher == nil {
		return 0
	}
	return f.launcher.PID()
}

// acquire returns the browser for one fetch, relaunching it first when it
// has served its page quota and is idle.
func (f *Fetcher) acquire() (*rod.Browser, error) {
	if f.closed.Load() {
		return nil, newsgrab.Errorf(newsgrab.EINVALID, "browser fetcher closed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.maxPages > 0 && f.pages >= f.maxPages && f.inflight == 0 {
		oldBrowser, oldLauncher := f.browser, f.launcher
		if err := f.launch(); err == nil {
			_ = f.shutdown(oldBrowser, oldLauncher)
			f.pages = 0
		}
	}
	f.inflight++
	f.pages++
	return f.browser, nil
}

func (f *Fetcher) release() {
	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
}

// launch starts a browser and makes it current. On failure the current
// browser is left in place.
func (f *Fetcher) launch() error {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}
	f.browser, f.launcher = browser, l
	return nil
}

func (f *Fetcher) shutdown(b *rod.Browser, l *launcher.Launcher) error {
	var err error
	if b != nil {
		err = b.Close()
	}
	if l != nil {
		l.Kill()
	}
	return err
}

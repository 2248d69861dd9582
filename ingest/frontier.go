package ingest

import (
	"sync"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/bloom"
)

var _ newsgrab.LinkFrontier = (*Frontier)(nil)

// Frontier is the per-run work queue. It keeps links in the order they
// were pushed and drops any URL it has already seen, fragments ignored.
// A Bloom filter sized for the run answers most lookups; its positives are
// confirmed against the exact set of queued URLs.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.Filter
	urls  map[string]struct{}
	queue []*newsgrab.Link
}

// NewFrontier creates a Frontier sized for n links with the given false
// positive rate.
func NewFrontier(n uint, fpRate float64) *Frontier {
	return &Frontier{
		seen: bloom.NewFilter(n, fpRate),
		urls: make(map[string]struct{}, n),
	}
}

// Push queues link unless its URL was seen before.
func (f *Frontier) Push(link *newsgrab.Link) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := bloom.Key(link.URL)
	if !f.seen.Insert(k) && f.has(k) {
		return false
	}
	f.urls[k] = struct{}{}
	f.queue = append(f.queue, link)
	return true
}

// Pop returns the next queued link.
func (f *Frontier) Pop() (*newsgrab.Link, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return nil, false
	}
	link := f.queue[0]
	f.queue[0] = nil
	f.queue = f.queue[1:]
	return link, true
}

// Len returns the number of queued links.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Seen reports whether the URL has been queued or processed.
func (f *Frontier) Seen(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := bloom.Key(rawURL)
	return f.seen.Contains(k) && f.has(k)
}

func (f *Frontier) has(k string) bool {
	_, ok := f.urls[k]
	return ok
}

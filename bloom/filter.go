// Package bloom remembers the article URLs seen during a run using a
// Bloom filter from github.com/bits-and-blooms/bloom/v3.
package bloom

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
)

// Filter is a probabilistic set of article URLs. URLs are compared without
// their fragment, so a comment anchor does not make a page look new.
// A false positive drops a link from the run; a false negative never
// happens.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a filter sized for n URLs at the false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{f: bloom.NewWithEstimates(max(n, 1), fpRate)}
}

// Insert records url and reports whether it was new.
func (f *Filter) Insert(url string) bool {
	return !f.f.TestAndAddString(Key(url))
}

// Contains reports whether url may have been inserted.
func (f *Filter) Contains(url string) bool {
	return f.f.TestString(Key(url))
}

// Count returns the approximate number of distinct URLs inserted.
func (f *Filter) Count() uint {
	return uint(f.f.ApproximatedSize())
}

// Key returns url without its fragment, the form the filter compares.
func Key(url string) string {
	if i := strings.IndexByte(url, '#'); i != -1 {
		return url[:i]
	}
	return url
}

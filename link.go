package newsgrab

import (
	"cmp"
	"slices"
	"time"
)

// Link is an article URL found during discovery.
type Link struct {
	URL string

	// PublishedAt has day precision; the time of day is informational.
	PublishedAt time.Time

	// Seq is the position at which discovery found the link. It breaks
	// ties between links published on the same day.
	Seq int
}

// Order is the sequence in which a source's links are processed.
type Order string

// Processing orders.
const (
	NewestFirst Order = "newest"
	OldestFirst Order = "oldest"
)

// Validate returns an error for an unknown order. The empty order is valid
// and means the site default applies.
func (o Order) Validate() error {
	switch o {
	case "", NewestFirst, OldestFirst:
		return nil
	}
	return Errorf(EINVALID, "unknown order %q", string(o))
}

// SortLinks orders links by publication day according to order, keeping
// discovery order among links of the same day.
func SortLinks(links []*Link, order Order) {
	slices.SortStableFunc(links, func(a, b *Link) int {
		c := Day(a.PublishedAt).Compare(Day(b.PublishedAt))
		if order == NewestFirst {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
}

// LinkFrontier holds the links of one run in processing order and
// rejects URLs it has already seen in that run.
type LinkFrontier interface {
	// Push queues link. Returns false for a URL seen earlier in the run.
	Push(link *Link) bool

	// Pop returns the next link. Returns false when the frontier is empty.
	Pop() (*Link, bool)

	Len() int
	Seen(url string) bool
}

// Package telemetry keeps the live state of source runs for inspection.
//
// A single goroutine owns all state. Runs hand copies of their RunState and
// log lines to it over a channel, and readers receive copies back, so no
// memory is shared between a running source and its observers.
package telemetry

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/fwojciec/newsgrab"
)

// DefaultLogLimit bounds the per-source trail and the global feed.
const DefaultLogLimit = 500

var _ newsgrab.RunTracker = (*Tracker)(nil)

// Tracker records run states, log trails and batch summaries.
type Tracker struct {
	ops       chan func(*state)
	done      chan struct{}
	closeOnce sync.Once

	logLimit int
	now      func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogLimit sets how many log entries are kept per source and in the
// global feed.
func WithLogLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.logLimit = n
		}
	}
}

// WithClock sets the time source for log entries.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

type slot struct {
	state   newsgrab.RunState
	running bool
	gen     int
}

type state struct {
	slots   map[string]*slot
	logs    map[string][]newsgrab.LogEntry
	feed    []newsgrab.LogEntry
	summary *newsgrab.RunSummary
}

// New starts a Tracker. Call Close to stop it.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		ops:      make(chan func(*state), 64),
		done:     make(chan struct{}),
		logLimit: DefaultLogLimit,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.loop()
	return t
}

func (t *Tracker) loop() {
	s := &state{
		slots: make(map[string]*slot),
		logs:  make(map[string][]newsgrab.LogEntry),
	}
	for {
		select {
		case fn := <-t.ops:
			fn(s)
		case <-t.done:
			return
		}
	}
}

// Close stops the tracker. Later calls are no-ops and reads return zero
// values.
func (t *Tracker) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

func (t *Tracker) send(fn func(*state)) bool {
	select {
	case t.ops <- fn:
		return true
	case <-t.done:
		return false
	}
}

// query runs fn on the owner goroutine and waits for it.
func (t *Tracker) query(fn func(*state)) {
	reply := make(chan struct{})
	if !t.send(func(s *state) {
		fn(s)
		close(reply)
	}) {
		return
	}
	select {
	case <-reply:
	case <-t.done:
	}
}

// Begin starts a run for source, clearing its previous state and trail.
// Returns ECONFLICT if the source is running.
func (t *Tracker) Begin(source string) (newsgrab.Run, error) {
	var (
		gen      int
		conflict bool
	)
	t.query(func(s *state) {
		sl, ok := s.slots[source]
		if !ok {
			sl = &slot{}
			s.slots[source] = sl
		}
		if sl.running {
			conflict = true
			return
		}
		sl.gen++
		sl.running = true
		sl.state = newsgrab.RunState{Source: source, Status: newsgrab.RunRunning}
		s.logs[source] = nil
		gen = sl.gen
	})
	if conflict {
		return nil, newsgrab.Errorf(newsgrab.ECONFLICT, "source %q is already running", source)
	}
	return &run{tracker: t, source: source, gen: gen}, nil
}

// Summarize records the summary of a completed batch.
func (t *Tracker) Summarize(summary newsgrab.RunSummary) {
	summary.Sources = cloneCounts(summary.Sources)
	t.send(func(s *state) {
		s.summary = &summary
	})
}

// State returns the latest state of source.
func (t *Tracker) State(source string) (newsgrab.RunState, bool) {
	var (
		st newsgrab.RunState
		ok bool
	)
	t.query(func(s *state) {
		if sl, found := s.slots[source]; found {
			st, ok = sl.state, true
		}
	})
	return st, ok
}

// States returns the latest state of every source that has run, sorted by
// source name.
func (t *Tracker) States() []newsgrab.RunState {
	var out []newsgrab.RunState
	t.query(func(s *state) {
		for _, sl := range s.slots {
			out = append(out, sl.state)
		}
	})
	slices.SortFunc(out, func(a, b newsgrab.RunState) int {
		return cmp.Compare(a.Source, b.Source)
	})
	return out
}

// Running reports whether any source is running.
func (t *Tracker) Running() bool {
	var running bool
	t.query(func(s *state) {
		for _, sl := range s.slots {
			if sl.running {
				running = true
				return
			}
		}
	})
	return running
}

// Logs returns the last n entries of the source's current trail, oldest
// first. n <= 0 returns the whole trail.
func (t *Tracker) Logs(source string, n int) []newsgrab.LogEntry {
	var out []newsgrab.LogEntry
	t.query(func(s *state) {
		out = tail(s.logs[source], n)
	})
	return out
}

// Feed returns the last n entries across all sources, oldest first.
// n <= 0 returns the whole feed.
func (t *Tracker) Feed(n int) []newsgrab.LogEntry {
	var out []newsgrab.LogEntry
	t.query(func(s *state) {
		out = tail(s.feed, n)
	})
	return out
}

// LastSummary returns the summary of the last completed batch, or nil.
func (t *Tracker) LastSummary() *newsgrab.RunSummary {
	var out *newsgrab.RunSummary
	t.query(func(s *state) {
		if s.summary != nil {
			cp := *s.summary
			cp.Sources = cloneCounts(s.summary.Sources)
			out = &cp
		}
	})
	return out
}

// run is the publishing handle returned by Begin. Its updates are
// ignored once a newer run of the same source has begun.
type run struct {
	tracker *Tracker
	source  string
	gen     int
}

func (r *run) Publish(st newsgrab.RunState) {
	if st.EndTime != nil {
		end := *st.EndTime
		st.EndTime = &end
	}
	st.Source = r.source
	r.tracker.send(func(s *state) {
		sl, ok := s.slots[r.source]
		if !ok || sl.gen != r.gen {
			return
		}
		sl.state = st
		if st.Status.Done() {
			sl.running = false
		}
	})
}

func (r *run) Log(message string) {
	entry := newsgrab.LogEntry{
		Time:    r.tracker.now(),
		Source:  r.source,
		Message: message,
	}
	limit := r.tracker.logLimit
	r.tracker.send(func(s *state) {
		if sl, ok := s.slots[r.source]; !ok || sl.gen != r.gen {
			return
		}
		s.logs[r.source] = bounded(append(s.logs[r.source], entry), limit)
		s.feed = bounded(append(s.feed, entry), limit)
	})
}

func bounded(entries []newsgrab.LogEntry, limit int) []newsgrab.LogEntry {
	if len(entries) <= limit {
		return entries
	}
	return slices.Clone(entries[len(entries)-limit:])
}

func tail(entries []newsgrab.LogEntry, n int) []newsgrab.LogEntry {
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return slices.Clone(entries)
}

func cloneCounts(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return maps.Clone(m)
}

// Package schedule runs named jobs at fixed intervals.
package schedule

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fwojciec/newsgrab"
)

// JobFunc is the work of a job. The context is not canceled by Shutdown;
// a run in flight is allowed to finish.
type JobFunc func(ctx context.Context)

// Job describes a scheduled job.
type Job struct {
	ID       string        `json:"id"`
	Interval time.Duration `json:"interval"`
	NextRun  time.Time     `json:"nextRun"`
	Running  bool          `json:"running"`
}

type entry struct {
	id       string
	interval time.Duration
	next     time.Time
	fn       JobFunc
}

// Scheduler fires jobs from a single timer goroutine. Each firing runs on
// its own goroutine. Runs of one job id never overlap: a firing while the
// previous run is still going is skipped, even if the job was replaced.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*entry
	active  map[string]bool
	started bool
	stopped bool

	wake     chan struct{}
	stop     chan struct{}
	loopDone chan struct{}
	runs     sync.WaitGroup
	runCtx   context.Context

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a stopped Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]*entry),
		active:   make(map[string]bool),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add schedules fn every interval under id, replacing any job with the same
// id. With runNow the first run is due immediately, otherwise after one
// interval.
func (s *Scheduler) Add(id string, interval time.Duration, runNow bool, fn JobFunc) error {
	if id == "" {
		return newsgrab.Errorf(newsgrab.EINVALID, "job id required")
	}
	if interval <= 0 {
		return newsgrab.Errorf(newsgrab.EINVALID, "job %q: interval must be positive", id)
	}

	next := s.now().Add(interval)
	if runNow {
		next = s.now()
	}

	s.mu.Lock()
	if _, ok := s.jobs[id]; ok {
		s.logger.Info("replacing job", "id", id)
	}
	s.jobs[id] = &entry{id: id, interval: interval, next: next, fn: fn}
	s.mu.Unlock()

	s.logger.Info("job scheduled", "id", id, "interval", interval, "next", next)
	s.poke()
	return nil
}

// Remove unschedules the job. A run in flight completes.
// Returns ENOTFOUND if no job has that id.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	_, ok := s.jobs[id]
	delete(s.jobs, id)
	s.mu.Unlock()

	if !ok {
		return newsgrab.Errorf(newsgrab.ENOTFOUND, "job %q not found", id)
	}
	s.logger.Info("job removed", "id", id)
	s.poke()
	return nil
}

// Jobs returns the scheduled jobs sorted by id.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, Job{ID: e.id, Interval: e.interval, NextRun: e.next, Running: s.active[e.id]})
	}
	slices.SortFunc(out, func(a, b Job) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Started reports whether the timer loop is running.
func (s *Scheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// Start launches the timer loop. Job runs receive a context carrying the
// values of ctx but not its cancellation.
// Returns ECONFLICT if already started and EINVALID after Shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.stopped:
		return newsgrab.Errorf(newsgrab.EINVALID, "scheduler is shut down")
	case s.started:
		return newsgrab.Errorf(newsgrab.ECONFLICT, "scheduler already started")
	}
	s.started = true
	s.runCtx = context.WithoutCancel(ctx)
	go s.loop()
	s.logger.Info("scheduler started")
	return nil
}

// Shutdown stops future firings and waits for runs in flight to finish or
// for ctx to end.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	close(s.stop)
	if started {
		<-s.loopDone
	}

	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("scheduler shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer close(s.loopDone)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		s.fire()
		timer.Reset(s.untilNext())

		select {
		case <-timer.C:
		case <-s.wake:
		case <-s.stop:
			return
		}
	}
}

// fire starts every due job unless the scheduler has been shut down.
func (s *Scheduler) fire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	now := s.now()
	for _, e := range s.jobs {
		if e.next.After(now) {
			continue
		}
		e.next = now.Add(e.interval)
		if s.active[e.id] {
			s.logger.Warn("skipping run, previous run still in progress", "id", e.id)
			continue
		}
		s.active[e.id] = true
		s.runs.Add(1)
		go s.run(e)
	}
}

func (s *Scheduler) run(e *entry) {
	defer s.runs.Done()

	start := s.now()
	s.logger.Info("job started", "id", e.id)
	defer func() {
		s.mu.Lock()
		delete(s.active, e.id)
		s.mu.Unlock()
		s.logger.Info("job finished", "id", e.id, "duration", time.Since(start))
	}()
	e.fn(s.runCtx)
}

// untilNext returns the wait until the earliest due job.
func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	wait := time.Hour
	now := s.now()
	for _, e := range s.jobs {
		if d := e.next.Sub(now); d < wait {
			wait = d
		}
	}
	return max(wait, time.Millisecond)
}

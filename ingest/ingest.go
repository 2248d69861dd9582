// Package ingest runs news sources end to end: discovery, existence
// checks, extraction, image rehosting and submission to the sink.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/google/uuid"
)

// DefaultDuplicateThreshold is the number of consecutive already-stored
// articles after which a source run stops.
const DefaultDuplicateThreshold = 5

// errStored reports that the sink already holds the article.
var errStored = errors.New("article already stored")

// Ingester orchestrates source runs. Sources run one at a time and items
// within a source are processed sequentially.
type Ingester struct {
	Sink     newsgrab.Sink
	Rehoster *Rehoster
	Tracker  newsgrab.RunTracker

	// Runs records finished runs. Optional.
	Runs newsgrab.RunService

	// RetryDelays are the waits between submission attempts.
	// Defaults to DefaultRetryDelays().
	RetryDelays []time.Duration

	// ItemDelay is the pause between processed items.
	ItemDelay time.Duration

	// DuplicateThreshold defaults to DefaultDuplicateThreshold.
	DuplicateThreshold int

	Logger *slog.Logger

	// Sleep and Now are replaced in tests.
	Sleep SleepFunc
	Now   func() time.Time

	sources []registration
}

type registration struct {
	config newsgrab.SourceConfig
	source newsgrab.Source
}

// RunResult is the outcome of one source run.
type RunResult struct {
	Source       string
	Found        int
	Processed    int
	Succeeded    int
	Failed       int
	Skipped      int
	Duplicates   int
	StoppedEarly bool
	Err          error
}

// BatchResult is the outcome of RunAll.
type BatchResult struct {
	Results []*RunResult
}

// Total returns the number of articles submitted across the batch.
func (b *BatchResult) Total() int {
	n := 0
	for _, r := range b.Results {
		n += r.Succeeded
	}
	return n
}

// Register adds a source under its configured name. Registering a name
// twice replaces the earlier source.
func (in *Ingester) Register(cfg newsgrab.SourceConfig, src newsgrab.Source) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for i, r := range in.sources {
		if r.config.Name == cfg.Name {
			in.sources[i] = registration{config: cfg, source: src}
			return nil
		}
	}
	in.sources = append(in.sources, registration{config: cfg, source: src})
	return nil
}

// Sources returns the registered source configurations in order.
func (in *Ingester) Sources() []newsgrab.SourceConfig {
	out := make([]newsgrab.SourceConfig, len(in.sources))
	for i, r := range in.sources {
		out[i] = r.config
	}
	return out
}

// Has reports whether a source named name is registered.
func (in *Ingester) Has(name string) bool {
	_, ok := in.lookup(name)
	return ok
}

// RunAll runs every enabled source in registration order and records the
// batch summary. A failing source never stops the batch.
func (in *Ingester) RunAll(ctx context.Context) *BatchResult {
	batch := &BatchResult{}
	for _, r := range in.sources {
		if !r.config.Enabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		res, err := in.run(ctx, r)
		if err != nil {
			in.logger().Error("source run failed", "source", r.config.Name, "err", err)
		}
		batch.Results = append(batch.Results, res)
	}

	summary := newsgrab.RunSummary{
		Time:          in.now(),
		TotalArticles: batch.Total(),
		Sources:       make(map[string]int, len(batch.Results)),
	}
	for _, r := range batch.Results {
		summary.Sources[r.Source] = r.Succeeded
	}
	in.Tracker.Summarize(summary)
	return batch
}

// RunSource runs the named source regardless of whether it is enabled.
// Returns ENOTFOUND for an unknown source and ECONFLICT if the source is
// already running.
func (in *Ingester) RunSource(ctx context.Context, name string) (*RunResult, error) {
	r, ok := in.lookup(name)
	if !ok {
		return nil, newsgrab.Errorf(newsgrab.ENOTFOUND, "unknown source %q", name)
	}
	res, err := in.run(ctx, r)
	if err == nil {
		in.Tracker.Summarize(newsgrab.RunSummary{
			Time:          in.now(),
			TotalArticles: res.Succeeded,
			Sources:       map[string]int{res.Source: res.Succeeded},
		})
	}
	return res, err
}

func (in *Ingester) lookup(name string) (registration, bool) {
	for _, r := range in.sources {
		if r.config.Name == name {
			return r, true
		}
	}
	return registration{}, false
}

// sourceRun is the state of one run. It is owned by the goroutine running
// the source; observers only ever see published copies.
type sourceRun struct {
	in     *Ingester
	handle newsgrab.Run
	state  newsgrab.RunState
	result *RunResult
	logger *slog.Logger
}

func (sr *sourceRun) logf(format string, args ...any) {
	sr.handle.Log(fmt.Sprintf(format, args...))
}

func (sr *sourceRun) publish() {
	sr.state.ArticlesProcessed = sr.result.Processed
	sr.state.Succeeded = sr.result.Succeeded
	sr.state.Failed = sr.result.Failed
	sr.handle.Publish(sr.state)
}

func (sr *sourceRun) finish(err error) {
	end := sr.in.now()
	sr.state.EndTime = &end
	if err != nil {
		sr.state.Status = newsgrab.RunError
		sr.state.Error = err.Error()
		sr.result.Err = err
		sr.logf("Run failed: %v", err)
	} else {
		sr.state.Status = newsgrab.RunCompleted
		sr.state.Advance(100)
		sr.logf("Run completed: %d submitted, %d failed", sr.result.Succeeded, sr.result.Failed)
	}
	sr.publish()
}

func (in *Ingester) run(ctx context.Context, r registration) (*RunResult, error) {
	name := r.config.Name
	handle, err := in.Tracker.Begin(name)
	if err != nil {
		return &RunResult{Source: name, Err: err}, err
	}

	sr := &sourceRun{
		in:     in,
		handle: handle,
		state: newsgrab.RunState{
			Source:    name,
			Status:    newsgrab.RunRunning,
			StartTime: in.now(),
		},
		result: &RunResult{Source: name},
		logger: in.logger().With("source", name),
	}
	sr.publish()
	sr.logf("Starting %s at %s", name, r.config.ListingURL)

	links, err := r.source.Discover(ctx, r.config.ListingURL)
	if err != nil {
		sr.finish(err)
		in.record(ctx, sr)
		return sr.result, err
	}

	frontier := NewFrontier(uint(len(links)), 0.0001)
	for _, l := range links {
		if !frontier.Push(l) {
			sr.result.Skipped++
		}
	}
	sr.result.Found = frontier.Len()
	sr.state.ArticlesFound = sr.result.Found
	sr.state.Advance(10)
	sr.publish()
	sr.logf("Found %d articles", sr.result.Found)

	err = in.process(ctx, sr, r.source, frontier)
	sr.finish(err)
	in.record(ctx, sr)
	return sr.result, err
}

func (in *Ingester) process(ctx context.Context, sr *sourceRun, src newsgrab.Source, frontier *Frontier) error {
	total := frontier.Len()
	consecutive := 0
	threshold := in.duplicateThreshold()

	for i := 0; ; i++ {
		link, ok := frontier.Pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		exists, err := in.Sink.Exists(ctx, link.URL)
		if err != nil {
			sr.logger.Warn("existence check failed", "url", link.URL, "err", err)
			exists = false
		}
		if exists {
			sr.result.Duplicates++
			consecutive++
			sr.logf("Article %d/%d already exists: %s", i+1, total, link.URL)
			if consecutive >= threshold {
				sr.result.StoppedEarly = true
				sr.logf("Stopping after %d consecutive existing articles", consecutive)
				return nil
			}
			sr.state.Advance(10 + 90*(i+1)/total)
			sr.publish()
			continue
		}
		consecutive = 0

		sr.logf("Processing article %d/%d: %s", i+1, total, link.URL)
		if err := in.processItem(ctx, sr, src, link); errors.Is(err, errStored) {
			sr.result.Duplicates++
			sr.logf("Article %d/%d already exists: %s", i+1, total, link.URL)
		} else if err != nil {
			sr.result.Failed++
			sr.logger.Warn("article failed", "url", link.URL, "code", newsgrab.ErrorCode(err), "err", err)
			sr.logf("Failed %s: %s", link.URL, newsgrab.ErrorMessage(err))
		}
		sr.state.Advance(10 + 90*(i+1)/total)
		sr.publish()

		if frontier.Len() > 0 && in.ItemDelay > 0 {
			if err := in.sleep(ctx, in.ItemDelay); err != nil {
				return err
			}
		}
	}
}

func (in *Ingester) processItem(ctx context.Context, sr *sourceRun, src newsgrab.Source, link *newsgrab.Link) error {
	raw, err := src.FetchRaw(ctx, link)
	if err != nil {
		return err
	}
	article, err := src.ToStructured(raw)
	if err != nil {
		return err
	}
	if err := article.Validate(); err != nil {
		return err
	}
	sr.result.Processed++

	if in.Rehoster != nil {
		if n := in.Rehoster.Rehost(ctx, article); n > 0 {
			sr.logf("%d images of %s could not be rehosted", n, link.URL)
		}
	}

	var posted *newsgrab.PostResult
	err = Retry(ctx, in.retryDelays(), in.Sleep, func(ctx context.Context) error {
		var err error
		posted, err = in.Sink.PostArticle(ctx, article)
		return err
	}, func(attempt int, err error) {
		sr.logger.Warn("retrying submission", "url", link.URL, "attempt", attempt, "err", err)
	})
	if newsgrab.ErrorCode(err) == newsgrab.ECONFLICT {
		return errStored
	} else if err != nil {
		return newsgrab.Errorf(newsgrab.ESUBMIT, "submitting %s: %v", link.URL, err)
	}

	sr.result.Succeeded++
	sr.logf("Submitted %s as %s", link.URL, posted.ID)
	return nil
}

func (in *Ingester) record(ctx context.Context, sr *sourceRun) {
	if in.Runs == nil {
		return
	}
	rec := &newsgrab.RunRecord{
		ID:         uuid.NewString(),
		Source:     sr.state.Source,
		Status:     sr.state.Status,
		Found:      sr.result.Found,
		Processed:  sr.result.Processed,
		Succeeded:  sr.result.Succeeded,
		Failed:     sr.result.Failed,
		Error:      sr.state.Error,
		StartedAt:  sr.state.StartTime,
		FinishedAt: *sr.state.EndTime,
	}
	if err := in.Runs.CreateRun(context.WithoutCancel(ctx), rec); err != nil {
		sr.logger.Error("recording run failed", "err", err)
	}
}

func (in *Ingester) retryDelays() []time.Duration {
	if in.RetryDelays == nil {
		return DefaultRetryDelays()
	}
	return in.RetryDelays
}

func (in *Ingester) duplicateThreshold() int {
	if in.DuplicateThreshold <= 0 {
		return DefaultDuplicateThreshold
	}
	return in.DuplicateThreshold
}

func (in *Ingester) sleep(ctx context.Context, d time.Duration) error {
	if in.Sleep == nil {
		return Sleep(ctx, d)
	}
	return in.Sleep(ctx, d)
}

func (in *Ingester) now() time.Time {
	if in.Now == nil {
		return time.Now().UTC()
	}
	return in.Now()
}

func (in *Ingester) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return in.Logger
}

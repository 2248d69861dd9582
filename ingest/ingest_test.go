package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/ingest"
	"github.com/fwojciec/newsgrab/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture wires an Ingester to function-field mocks and records calls.
type fixture struct {
	mu      sync.Mutex
	fetched []string
	posted  []string
	sleeps  []time.Duration

	run     *mock.Run
	summary *newsgrab.RunSummary
	records []*newsgrab.RunRecord

	links  []*newsgrab.Link
	exists map[string]bool
	source *mock.Source
	sink   *mock.Sink

	ingester *ingest.Ingester
}

func links(n int) []*newsgrab.Link {
	out := make([]*newsgrab.Link, n)
	day := time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = &newsgrab.Link{URL: fmt.Sprintf("https://example.com/%d", i+1), PublishedAt: day, Seq: i}
	}
	return out
}

func article(url string) *newsgrab.Article {
	a := &newsgrab.Article{
		Title:      "Title " + url,
		SourceURL:  url,
		SourceDate: "2025-04-09",
		Tags:       []string{},
		Status:     newsgrab.StatusDraft,
	}
	a.Content.Set("p0", "text")
	return a
}

func newFixture(t *testing.T, l []*newsgrab.Link) *fixture {
	t.Helper()
	f := &fixture{
		links:  l,
		exists: map[string]bool{},
		run:    &mock.Run{},
	}
	f.source = &mock.Source{
		NameFn: func() string { return "news" },
		DiscoverFn: func(context.Context, string) ([]*newsgrab.Link, error) {
			return f.links, nil
		},
		FetchRawFn: func(_ context.Context, link *newsgrab.Link) (*newsgrab.RawArticle, error) {
			f.mu.Lock()
			f.fetched = append(f.fetched, link.URL)
			f.mu.Unlock()
			return &newsgrab.RawArticle{URL: link.URL, PublishedAt: link.PublishedAt}, nil
		},
		ToStructuredFn: func(raw *newsgrab.RawArticle) (*newsgrab.Article, error) {
			return article(raw.URL), nil
		},
	}
	f.sink = &mock.Sink{
		ExistsFn: func(_ context.Context, url string) (bool, error) {
			return f.exists[url], nil
		},
		PostArticleFn: func(_ context.Context, a *newsgrab.Article) (*newsgrab.PostResult, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.posted = append(f.posted, a.SourceURL)
			return &newsgrab.PostResult{ID: fmt.Sprint(len(f.posted))}, nil
		},
	}
	f.ingester = &ingest.Ingester{
		Sink: f.sink,
		Tracker: &mock.RunTracker{
			BeginFn: func(string) (newsgrab.Run, error) { return f.run, nil },
			SummarizeFn: func(s newsgrab.RunSummary) {
				f.summary = &s
			},
		},
		Runs: &mock.RunService{
			CreateRunFn: func(_ context.Context, r *newsgrab.RunRecord) error {
				f.records = append(f.records, r)
				return nil
			},
		},
		RetryDelays: ingest.BackoffDelays(3, 10*time.Millisecond),
		Sleep: func(_ context.Context, d time.Duration) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sleeps = append(f.sleeps, d)
			return nil
		},
		Now: func() time.Time { return time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC) },
	}
	require.NoError(t, f.ingester.Register(newsgrab.SourceConfig{
		Name:       "news",
		Enabled:    true,
		ListingURL: "https://example.com/news",
		MaxAgeDays: 3,
	}, f.source))
	return f
}

func TestIngester_RunSource(t *testing.T) {
	t.Parallel()

	t.Run("submits every new article", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(3))

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.Equal(t, 3, res.Found)
		assert.Equal(t, 3, res.Processed)
		assert.Equal(t, 3, res.Succeeded)
		assert.Zero(t, res.Failed)
		assert.Equal(t, []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}, f.posted)
		require.NotNil(t, f.summary)
		assert.Equal(t, 3, f.summary.TotalArticles)
	})

	t.Run("stops after five consecutive existing articles", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(6))
		for _, l := range f.links[:5] {
			f.exists[l.URL] = true
		}

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.True(t, res.StoppedEarly)
		assert.Equal(t, 5, res.Duplicates)
		assert.Empty(t, f.fetched, "item 6 must never be fetched")
		assert.Empty(t, f.posted)
		assert.Equal(t, newsgrab.RunCompleted, f.run.Last().Status)
	})

	t.Run("new article resets the duplicate streak", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(8))
		for i, l := range f.links {
			if i != 3 {
				f.exists[l.URL] = true
			}
		}

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.False(t, res.StoppedEarly)
		assert.Equal(t, []string{"https://example.com/4"}, f.fetched)
		assert.Equal(t, 7, res.Duplicates)
	})

	t.Run("retries a failing submission exactly max attempts with growing delays", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(2))
		attempts := map[string]int{}
		f.sink.PostArticleFn = func(_ context.Context, a *newsgrab.Article) (*newsgrab.PostResult, error) {
			attempts[a.SourceURL]++
			return nil, errors.New("503 service unavailable")
		}

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.Equal(t, map[string]int{"https://example.com/1": 3, "https://example.com/2": 3}, attempts)
		assert.Equal(t, []time.Duration{
			10 * time.Millisecond, 20 * time.Millisecond,
			10 * time.Millisecond, 20 * time.Millisecond,
		}, f.sleeps)
		assert.Equal(t, 2, res.Failed)
		assert.Zero(t, res.Succeeded)
		assert.Equal(t, newsgrab.RunCompleted, f.run.Last().Status)
	})

	t.Run("makes a single attempt when max retries is one", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(1))
		f.ingester.RetryDelays = ingest.BackoffDelays(1, 10*time.Millisecond)
		attempts := 0
		f.sink.PostArticleFn = func(context.Context, *newsgrab.Article) (*newsgrab.PostResult, error) {
			attempts++
			return nil, errors.New("503 service unavailable")
		}

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
		assert.Empty(t, f.sleeps)
		assert.Equal(t, 1, res.Failed)
	})

	t.Run("counts a conflicting submission as a duplicate", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(2))
		attempts := 0
		f.sink.PostArticleFn = func(_ context.Context, a *newsgrab.Article) (*newsgrab.PostResult, error) {
			attempts++
			if a.SourceURL == "https://example.com/1" {
				return nil, newsgrab.Errorf(newsgrab.ECONFLICT, "article %s already stored", a.SourceURL)
			}
			return &newsgrab.PostResult{ID: "2"}, nil
		}

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.Empty(t, f.sleeps)
		assert.Equal(t, 1, res.Duplicates)
		assert.Equal(t, 1, res.Succeeded)
		assert.Zero(t, res.Failed)
	})

	t.Run("treats a failed existence check as not existing", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(1))
		f.sink.ExistsFn = func(context.Context, string) (bool, error) {
			return false, errors.New("timeout")
		}

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.Equal(t, 1, res.Succeeded)
	})

	t.Run("skips items that fail to fetch or validate", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(3))
		f.source.FetchRawFn = func(_ context.Context, link *newsgrab.Link) (*newsgrab.RawArticle, error) {
			if link.URL == "https://example.com/1" {
				return nil, newsgrab.Errorf(newsgrab.EFETCH, "boom")
			}
			return &newsgrab.RawArticle{URL: link.URL}, nil
		}
		f.source.ToStructuredFn = func(raw *newsgrab.RawArticle) (*newsgrab.Article, error) {
			a := article(raw.URL)
			if raw.URL == "https://example.com/2" {
				a.Title = ""
			}
			return a, nil
		}

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.Equal(t, 2, res.Failed)
		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, []string{"https://example.com/3"}, f.posted)
	})

	t.Run("drops repeated links within a run", func(t *testing.T) {
		t.Parallel()

		l := links(2)
		l = append(l, &newsgrab.Link{URL: "https://example.com/1#comments"})
		f := newFixture(t, l)

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.Equal(t, 1, res.Skipped)
		assert.Equal(t, 2, res.Found)
		assert.Equal(t, []string{"https://example.com/1", "https://example.com/2"}, f.fetched)
	})

	t.Run("waits between items but not after the last", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(3))
		f.ingester.ItemDelay = 20 * time.Second

		_, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		assert.Equal(t, []time.Duration{20 * time.Second, 20 * time.Second}, f.sleeps)
	})

	t.Run("publishes monotonic progress", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(4))

		_, err := f.ingester.RunSource(context.Background(), "news")

		require.NoError(t, err)
		states := f.run.States
		require.NotEmpty(t, states)
		assert.Equal(t, 0, states[0].Progress)
		assert.Equal(t, newsgrab.RunRunning, states[0].Status)
		assert.Equal(t, 10, states[1].Progress)
		assert.Equal(t, 4, states[1].ArticlesFound)
		for i := 1; i < len(states); i++ {
			assert.GreaterOrEqual(t, states[i].Progress, states[i-1].Progress)
		}
		last := states[len(states)-1]
		assert.Equal(t, 100, last.Progress)
		assert.Equal(t, newsgrab.RunCompleted, last.Status)
		assert.Equal(t, 4, last.Succeeded)
		require.NotNil(t, last.EndTime)
		assert.NotEmpty(t, f.run.Messages)
	})

	t.Run("discovery failure ends the run in error and is recorded", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)
		f.source.DiscoverFn = func(context.Context, string) ([]*newsgrab.Link, error) {
			return nil, newsgrab.Errorf(newsgrab.EFETCH, "listing unavailable")
		}

		res, err := f.ingester.RunSource(context.Background(), "news")

		require.Error(t, err)
		assert.Equal(t, newsgrab.EFETCH, newsgrab.ErrorCode(err))
		assert.Equal(t, err, res.Err)
		last := f.run.Last()
		assert.Equal(t, newsgrab.RunError, last.Status)
		assert.NotEmpty(t, last.Error)
		require.Len(t, f.records, 1)
		assert.Equal(t, newsgrab.RunError, f.records[0].Status)
	})

	t.Run("unknown source is not found", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)

		_, err := f.ingester.RunSource(context.Background(), "missing")

		assert.Equal(t, newsgrab.ENOTFOUND, newsgrab.ErrorCode(err))
	})

	t.Run("rejects a source that is already running", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(1))
		f.ingester.Tracker = &mock.RunTracker{
			BeginFn: func(source string) (newsgrab.Run, error) {
				return nil, newsgrab.Errorf(newsgrab.ECONFLICT, "%s is already running", source)
			},
		}

		_, err := f.ingester.RunSource(context.Background(), "news")

		assert.Equal(t, newsgrab.ECONFLICT, newsgrab.ErrorCode(err))
		assert.Empty(t, f.fetched)
	})

	t.Run("stops between items when the context is canceled", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(3))
		ctx, cancel := context.WithCancel(context.Background())
		f.sink.PostArticleFn = func(_ context.Context, a *newsgrab.Article) (*newsgrab.PostResult, error) {
			cancel()
			return &newsgrab.PostResult{ID: "1"}, nil
		}

		res, err := f.ingester.RunSource(ctx, "news")

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, res.Succeeded)
		assert.Equal(t, []string{"https://example.com/1"}, f.fetched)
		assert.Equal(t, newsgrab.RunError, f.run.Last().Status)
	})
}

func TestIngester_RunAll(t *testing.T) {
	t.Parallel()

	t.Run("runs enabled sources in order and summarizes the batch", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(2))
		var began []string
		f.ingester.Tracker = &mock.RunTracker{
			BeginFn: func(source string) (newsgrab.Run, error) {
				began = append(began, source)
				return &mock.Run{}, nil
			},
			SummarizeFn: func(s newsgrab.RunSummary) { f.summary = &s },
		}
		require.NoError(t, f.ingester.Register(newsgrab.SourceConfig{
			Name: "disabled", ListingURL: "https://example.com/d",
		}, f.source))
		require.NoError(t, f.ingester.Register(newsgrab.SourceConfig{
			Name: "second", Enabled: true, ListingURL: "https://example.com/s",
		}, f.source))

		batch := f.ingester.RunAll(context.Background())

		assert.Equal(t, []string{"news", "second"}, began)
		require.Len(t, batch.Results, 2)
		assert.Equal(t, 4, batch.Total())
		require.NotNil(t, f.summary)
		assert.Equal(t, 4, f.summary.TotalArticles)
		assert.Equal(t, map[string]int{"news": 2, "second": 2}, f.summary.Sources)
	})

	t.Run("continues past a failing source", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, links(1))
		broken := &mock.Source{
			NameFn: func() string { return "broken" },
			DiscoverFn: func(context.Context, string) ([]*newsgrab.Link, error) {
				return nil, errors.New("dns failure")
			},
		}
		require.NoError(t, f.ingester.Register(newsgrab.SourceConfig{
			Name: "broken", Enabled: true, ListingURL: "https://broken.example.com",
		}, broken))

		batch := f.ingester.RunAll(context.Background())

		require.Len(t, batch.Results, 2)
		assert.NoError(t, batch.Results[0].Err)
		assert.Error(t, batch.Results[1].Err)
		assert.Equal(t, 1, batch.Total())
	})
}

func TestIngester_Register(t *testing.T) {
	t.Parallel()

	in := &ingest.Ingester{}
	err := in.Register(newsgrab.SourceConfig{Name: "", Enabled: true}, &mock.Source{})
	assert.Equal(t, newsgrab.EINVALID, newsgrab.ErrorCode(err))

	require.NoError(t, in.Register(newsgrab.SourceConfig{Name: "a", ListingURL: "https://a"}, &mock.Source{}))
	require.NoError(t, in.Register(newsgrab.SourceConfig{Name: "a", ListingURL: "https://b"}, &mock.Source{}))
	assert.True(t, in.Has("a"))
	require.Len(t, in.Sources(), 1)
	assert.Equal(t, "https://b", in.Sources()[0].ListingURL)
}

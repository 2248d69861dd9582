package schedule_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func started(t *testing.T) *schedule.Scheduler {
	t.Helper()
	s := schedule.New()
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestScheduler_Add(t *testing.T) {
	t.Parallel()

	t.Run("runs immediately when asked", func(t *testing.T) {
		t.Parallel()

		s := started(t)
		var calls atomic.Int32
		require.NoError(t, s.Add("batch", time.Hour, true, func(context.Context) { calls.Add(1) }))

		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("waits one interval otherwise", func(t *testing.T) {
		t.Parallel()

		s := started(t)
		var calls atomic.Int32
		require.NoError(t, s.Add("batch", time.Hour, false, func(context.Context) { calls.Add(1) }))

		time.Sleep(30 * time.Millisecond)
		assert.Zero(t, calls.Load())
		jobs := s.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, time.Hour, jobs[0].Interval)
		assert.True(t, jobs[0].NextRun.After(time.Now().Add(59*time.Minute)))
	})

	t.Run("fires repeatedly at the interval", func(t *testing.T) {
		t.Parallel()

		s := started(t)
		var calls atomic.Int32
		require.NoError(t, s.Add("fast", 10*time.Millisecond, false, func(context.Context) { calls.Add(1) }))

		require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("replaces a job with the same id", func(t *testing.T) {
		t.Parallel()

		s := started(t)
		var first, second atomic.Int32
		require.NoError(t, s.Add("batch", time.Hour, false, func(context.Context) { first.Add(1) }))
		require.NoError(t, s.Add("batch", time.Hour, true, func(context.Context) { second.Add(1) }))

		require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
		assert.Zero(t, first.Load())
		assert.Len(t, s.Jobs(), 1)
	})

	t.Run("rejects invalid jobs", func(t *testing.T) {
		t.Parallel()

		s := schedule.New()
		noop := func(context.Context) {}

		assert.Equal(t, newsgrab.EINVALID, newsgrab.ErrorCode(s.Add("", time.Hour, false, noop)))
		assert.Equal(t, newsgrab.EINVALID, newsgrab.ErrorCode(s.Add("x", 0, false, noop)))
	})
}

func TestScheduler_overlap(t *testing.T) {
	t.Parallel()

	s := started(t)
	release := make(chan struct{})
	var calls, concurrent, maxConcurrent atomic.Int32
	require.NoError(t, s.Add("slow", 5*time.Millisecond, true, func(context.Context) {
		calls.Add(1)
		n := concurrent.Add(1)
		for {
			m := maxConcurrent.Load()
			if n <= m || maxConcurrent.CompareAndSwap(m, n) {
				break
			}
		}
		<-release
		concurrent.Add(-1)
	}))

	require.Eventually(t, func() bool {
		jobs := s.Jobs()
		return len(jobs) == 1 && jobs[0].Running
	}, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "firings during a run are skipped")

	close(release)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), maxConcurrent.Load())
}

func TestScheduler_Remove(t *testing.T) {
	t.Parallel()

	t.Run("stops future runs", func(t *testing.T) {
		t.Parallel()

		s := started(t)
		var calls atomic.Int32
		require.NoError(t, s.Add("batch", 10*time.Millisecond, false, func(context.Context) { calls.Add(1) }))

		require.NoError(t, s.Remove("batch"))
		time.Sleep(50 * time.Millisecond)

		assert.Zero(t, calls.Load())
		assert.Empty(t, s.Jobs())
	})

	t.Run("reports an unknown id as not found", func(t *testing.T) {
		t.Parallel()

		s := schedule.New()

		err := s.Remove("missing")

		assert.Equal(t, newsgrab.ENOTFOUND, newsgrab.ErrorCode(err))
	})
}

func TestScheduler_Start(t *testing.T) {
	t.Parallel()

	s := schedule.New()
	assert.False(t, s.Started())
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Started())

	err := s.Start(context.Background())
	assert.Equal(t, newsgrab.ECONFLICT, newsgrab.ErrorCode(err))

	require.NoError(t, s.Shutdown(context.Background()))
	assert.False(t, s.Started())
	assert.Equal(t, newsgrab.EINVALID, newsgrab.ErrorCode(s.Start(context.Background())))
}

func TestScheduler_Shutdown(t *testing.T) {
	t.Parallel()

	t.Run("waits for the run in flight", func(t *testing.T) {
		t.Parallel()

		s := schedule.New()
		require.NoError(t, s.Start(context.Background()))
		running := make(chan struct{})
		var once sync.Once
		var finished atomic.Bool
		require.NoError(t, s.Add("batch", time.Hour, true, func(ctx context.Context) {
			once.Do(func() { close(running) })
			time.Sleep(50 * time.Millisecond)
			finished.Store(ctx.Err() == nil)
		}))
		<-running

		require.NoError(t, s.Shutdown(context.Background()))
		assert.True(t, finished.Load())
	})

	t.Run("gives up when the context ends", func(t *testing.T) {
		t.Parallel()

		s := schedule.New()
		require.NoError(t, s.Start(context.Background()))
		block := make(chan struct{})
		t.Cleanup(func() { close(block) })
		running := make(chan struct{})
		require.NoError(t, s.Add("stuck", time.Hour, true, func(context.Context) {
			close(running)
			<-block
		}))
		<-running

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := s.Shutdown(ctx)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("is safe without start", func(t *testing.T) {
		t.Parallel()

		s := schedule.New()
		require.NoError(t, s.Shutdown(context.Background()))
		require.NoError(t, s.Shutdown(context.Background()))
	})
}

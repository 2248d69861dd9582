//go:build integration && !windows

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listing renders its article list from script, the way some news sites
// hydrate their breaking-news column.
const listing = `<!DOCTYPE html>
<html><body>
<div class="arz-breaking-news__list">Loading...</div>
<script>
document.querySelector('.arz-breaking-news__list').innerHTML =
  '<div class="arz-breaking-news__item"><a class="arz-breaking-news__item-link" href="/a/">A</a></div>';
</script>
</body></html>`

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns script-rendered html", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(listing))
		}))
		defer srv.Close()

		fetcher, err := rod.NewFetcher()
		require.NoError(t, err)
		defer fetcher.Close()

		html, err := fetcher.Fetch(context.Background(), srv.URL)

		require.NoError(t, err)
		assert.Contains(t, html, "arz-breaking-news__item-link")
		assert.NotContains(t, html, "Loading...")
	})

	t.Run("honors a canceled context", func(t *testing.T) {
		t.Parallel()

		fetcher, err := rod.NewFetcher()
		require.NoError(t, err)
		defer fetcher.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = fetcher.Fetch(ctx, "http://127.0.0.1:1/")

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("times out slow pages", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
			_, _ = w.Write([]byte(`<html><body>late</body></html>`))
		}))
		defer srv.Close()

		fetcher, err := rod.NewFetcher(rod.WithFetchTimeout(100 * time.Millisecond))
		require.NoError(t, err)
		defer fetcher.Close()

		_, err = fetcher.Fetch(context.Background(), srv.URL)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("relaunches the browser after the page quota", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html><body>ok</body></html>`))
		}))
		defer srv.Close()

		fetcher, err := rod.NewFetcher(rod.WithMaxPages(2))
		require.NoError(t, err)
		defer fetcher.Close()

		first := fetcher.LauncherPID()
		for range 3 {
			_, err := fetcher.Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
		}

		assert.NotEqual(t, first, fetcher.LauncherPID())
	})
}

func TestFetcher_Close(t *testing.T) {
	t.Parallel()

	t.Run("stops the launcher and is idempotent", func(t *testing.T) {
		t.Parallel()

		fetcher, err := rod.NewFetcher()
		require.NoError(t, err)
		pid := fetcher.LauncherPID()
		require.NotZero(t, pid)

		require.NoError(t, fetcher.Close())
		require.NoError(t, fetcher.Close())

		time.Sleep(100 * time.Millisecond)
		assert.Error(t, syscall.Kill(pid, syscall.Signal(0)))
	})

	t.Run("fetch after close is invalid", func(t *testing.T) {
		t.Parallel()

		fetcher, err := rod.NewFetcher()
		require.NoError(t, err)
		require.NoError(t, fetcher.Close())

		_, err = fetcher.Fetch(context.Background(), "http://example.com")

		assert.Equal(t, newsgrab.EINVALID, newsgrab.ErrorCode(err))
		assert.Contains(t, newsgrab.ErrorMessage(err), "closed")
	})
}

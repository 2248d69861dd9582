package gofeed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/gofeed"
	"github.com/fwojciec/newsgrab/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>News</title>
  <item>
    <title>First</title>
    <link>https://example.com/first/</link>
    <pubDate>Wed, 09 Apr 2025 06:45:00 +0330</pubDate>
  </item>
  <item>
    <title>Relative</title>
    <link>/second/</link>
    <pubDate>Tue, 08 Apr 2025 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Undated</title>
    <link>https://example.com/third/</link>
  </item>
  <item>
    <title>No link</title>
  </item>
</channel>
</rss>`

const atom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>News</title>
  <entry>
    <title>Updated only</title>
    <link href="https://example.com/atom/"/>
    <updated>2025-04-07T12:00:00Z</updated>
  </entry>
</feed>`

func feedFetcher(body string, err error) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, _ string) (string, error) {
			return body, err
		},
	}
}

func TestFeedService_DiscoverLinks(t *testing.T) {
	t.Parallel()

	t.Run("returns rss items in feed order with utc dates", func(t *testing.T) {
		t.Parallel()

		svc := gofeed.NewFeedService(feedFetcher(rss, nil))

		links, err := svc.DiscoverLinks(context.Background(), "https://example.com/feed/")

		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, "https://example.com/first/", links[0].URL)
		assert.Equal(t, time.Date(2025, 4, 9, 3, 15, 0, 0, time.UTC), links[0].PublishedAt)
		assert.Equal(t, "https://example.com/second/", links[1].URL)
		assert.Equal(t, time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC), links[1].PublishedAt)
		assert.True(t, links[2].PublishedAt.IsZero())
		assert.Equal(t, []int{0, 1, 2}, []int{links[0].Seq, links[1].Seq, links[2].Seq})
	})

	t.Run("falls back to the updated date", func(t *testing.T) {
		t.Parallel()

		svc := gofeed.NewFeedService(feedFetcher(atom, nil))

		links, err := svc.DiscoverLinks(context.Background(), "https://example.com/atom.xml")

		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, time.Date(2025, 4, 7, 12, 0, 0, 0, time.UTC), links[0].PublishedAt)
	})

	t.Run("fetch failure is a fetch error", func(t *testing.T) {
		t.Parallel()

		svc := gofeed.NewFeedService(feedFetcher("", errors.New("connection refused")))

		_, err := svc.DiscoverLinks(context.Background(), "https://example.com/feed/")

		assert.Equal(t, newsgrab.EFETCH, newsgrab.ErrorCode(err))
	})

	t.Run("unparsable feed is an extraction error", func(t *testing.T) {
		t.Parallel()

		svc := gofeed.NewFeedService(feedFetcher("<html><body>not a feed</body></html>", nil))

		_, err := svc.DiscoverLinks(context.Background(), "https://example.com/feed/")

		assert.Equal(t, newsgrab.EEXTRACT, newsgrab.ErrorCode(err))
	})
}

package slog_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/mock"
	ngslog "github.com/fwojciec/newsgrab/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingSink(t *testing.T) {
	t.Parallel()

	t.Run("logs existence checks", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Sink{
			ExistsFn: func(ctx context.Context, sourceURL string) (bool, error) {
				return true, nil
			},
		}

		exists, err := ngslog.NewLoggingSink(inner, debugLogger(&buf)).Exists(context.Background(), "https://defier.io/a")

		require.NoError(t, err)
		assert.True(t, exists)
		assert.Contains(t, buf.String(), "exists=true")
	})

	t.Run("logs the assigned id", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Sink{
			PostArticleFn: func(ctx context.Context, article *newsgrab.Article) (*newsgrab.PostResult, error) {
				return &newsgrab.PostResult{ID: "42"}, nil
			},
		}
		article := &newsgrab.Article{SourceURL: "https://defier.io/a"}
		article.Content.Set("p0", "x")

		_, err := ngslog.NewLoggingSink(inner, debugLogger(&buf)).PostArticle(context.Background(), article)

		require.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, `msg="post article"`)
		assert.Contains(t, output, "id=42")
		assert.Contains(t, output, "count=1")
	})

	t.Run("logs failed submissions", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		inner := &mock.Sink{
			PostArticleFn: func(ctx context.Context, article *newsgrab.Article) (*newsgrab.PostResult, error) {
				return nil, errors.New("store down")
			},
		}

		_, err := ngslog.NewLoggingSink(inner, debugLogger(&buf)).PostArticle(context.Background(), &newsgrab.Article{})

		require.Error(t, err)
		assert.Contains(t, buf.String(), `err="store down"`)
	})
}

func TestLoggingImageStore_UploadImage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := &mock.ImageStore{
		UploadImageFn: func(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
			return "https://store.example.com/" + filename, nil
		},
	}

	u, err := ngslog.NewLoggingImageStore(inner, debugLogger(&buf)).
		UploadImage(context.Background(), []byte("abc"), "a.webp", "image/webp")

	require.NoError(t, err)
	assert.Equal(t, "https://store.example.com/a.webp", u)
	output := buf.String()
	assert.Contains(t, output, "filename=a.webp")
	assert.Contains(t, output, "mime=image/webp")
	assert.Contains(t, output, "bytes=3")
}

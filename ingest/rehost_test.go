package ingest_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fwojciec/newsgrab"
	"github.com/fwojciec/newsgrab/ingest"
	"github.com/fwojciec/newsgrab/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMIMEType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/a.png", "image/png"},
		{"https://cdn.example.com/a.JPG", "image/jpeg"},
		{"https://cdn.example.com/a.jpeg?w=300", "image/jpeg"},
		{"https://cdn.example.com/a.gif", "image/gif"},
		{"https://cdn.example.com/a.webp", "image/webp"},
		{"https://cdn.example.com/a.svg", "image/svg+xml"},
		{"https://cdn.example.com/a.bmp", "image/jpeg"},
		{"https://cdn.example.com/image", "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ingest.MIMEType(tt.url))
		})
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "photo.webp", ingest.Filename("https://cdn.example.com/2025/04/photo.webp?ver=2"))

	hashed := ingest.Filename("https://cdn.example.com/")
	assert.True(t, strings.HasSuffix(hashed, ".jpg"))
	assert.Equal(t, hashed, ingest.Filename("https://cdn.example.com/"))
	assert.NotEqual(t, hashed, ingest.Filename("https://other.example.com/"))
}

func TestRehoster_Rehost(t *testing.T) {
	t.Parallel()

	newArticle := func() *newsgrab.Article {
		a := &newsgrab.Article{
			Title:          "t",
			ThumbnailImage: "https://cdn.example.com/thumb.png",
			Images: []*newsgrab.Image{
				{ID: "img0", URL: "https://cdn.example.com/a.jpg", Type: newsgrab.ImageFigure},
				{ID: "img1", URL: "https://cdn.example.com/broken.jpg", Type: newsgrab.ImageInline},
				{ID: "img2", URL: "https://cdn.example.com/c.gif", Type: newsgrab.ImageFigure},
			},
		}
		a.Content.Set("p0", "intro")
		a.Content.Set("img0", newsgrab.Placeholder("img0"))
		a.Content.Set("img1", newsgrab.Placeholder("img1"))
		a.Content.Set("img2", newsgrab.Placeholder("img2"))
		return a
	}

	t.Run("rewrites urls and drops failed images", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		uploads := map[string]string{}
		r := &ingest.Rehoster{
			Downloader: &mock.Downloader{
				DownloadFn: func(_ context.Context, url string) ([]byte, error) {
					if strings.Contains(url, "broken") {
						return nil, errors.New("404")
					}
					return []byte(url), nil
				},
			},
			Store: &mock.ImageStore{
				UploadImageFn: func(_ context.Context, data []byte, filename, mimeType string) (string, error) {
					mu.Lock()
					defer mu.Unlock()
					uploads[filename] = mimeType
					return "https://store.example.com/" + filename, nil
				},
			},
		}
		a := newArticle()

		failed := r.Rehost(context.Background(), a)

		assert.Equal(t, 1, failed)
		assert.Equal(t, "https://store.example.com/thumb.png", a.ThumbnailImage)
		require.Len(t, a.Images, 2)
		assert.Equal(t, "img0", a.Images[0].ID)
		assert.Equal(t, "https://store.example.com/a.jpg", a.Images[0].URL)
		assert.Equal(t, "img2", a.Images[1].ID)
		assert.Equal(t, "https://store.example.com/c.gif", a.Images[1].URL)
		assert.Equal(t, []string{"p0", "img0", "img2"}, a.Content.Keys())
		assert.Equal(t, map[string]string{
			"thumb.png": "image/png",
			"a.jpg":     "image/jpeg",
			"c.gif":     "image/gif",
		}, uploads)
	})

	t.Run("clears a thumbnail that cannot be uploaded", func(t *testing.T) {
		t.Parallel()

		r := &ingest.Rehoster{
			Downloader: &mock.Downloader{
				DownloadFn: func(context.Context, string) ([]byte, error) { return []byte("x"), nil },
			},
			Store: &mock.ImageStore{
				UploadImageFn: func(_ context.Context, _ []byte, filename, _ string) (string, error) {
					if filename == "thumb.png" {
						return "", errors.New("quota exceeded")
					}
					return "https://store.example.com/" + filename, nil
				},
			},
		}
		a := newArticle()

		failed := r.Rehost(context.Background(), a)

		assert.Equal(t, 1, failed)
		assert.Empty(t, a.ThumbnailImage)
		assert.Len(t, a.Images, 3)
	})
}

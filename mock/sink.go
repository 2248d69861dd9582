package mock

import (
	"context"

	"github.com/fwojciec/newsgrab"
)

var _ newsgrab.Sink = (*Sink)(nil)

// Sink is a mock implementation of newsgrab.Sink.
type Sink struct {
	ExistsFn      func(ctx context.Context, sourceURL string) (bool, error)
	PostArticleFn func(ctx context.Context, article *newsgrab.Article) (*newsgrab.PostResult, error)
}

func (s *Sink) Exists(ctx context.Context, sourceURL string) (bool, error) {
	return s.ExistsFn(ctx, sourceURL)
}

func (s *Sink) PostArticle(ctx context.Context, article *newsgrab.Article) (*newsgrab.PostResult, error) {
	return s.PostArticleFn(ctx, article)
}

var _ newsgrab.ImageStore = (*ImageStore)(nil)

// ImageStore is a mock implementation of newsgrab.ImageStore.
type ImageStore struct {
	UploadImageFn func(ctx context.Context, data []byte, filename, mimeType string) (string, error)
}

func (s *ImageStore) UploadImage(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	return s.UploadImageFn(ctx, data, filename, mimeType)
}

package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/newsgrab"
)

// Ensure LoggingSink implements newsgrab.Sink.
var _ newsgrab.Sink = (*LoggingSink)(nil)

// LoggingSink wraps a Sink with logging.
type LoggingSink struct {
	next   newsgrab.Sink
	logger *slog.Logger
}

// NewLoggingSink creates a new LoggingSink.
func NewLoggingSink(next newsgrab.Sink, logger *slog.Logger) *LoggingSink {
	return &LoggingSink{next: next, logger: logger}
}

// Exists delegates to the wrapped sink and logs the check.
func (s *LoggingSink) Exists(ctx context.Context, sourceURL string) (exists bool, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("exists check",
			"url", sourceURL,
			"exists", exists,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Exists(ctx, sourceURL)
}

// PostArticle delegates to the wrapped sink and logs the submission.
func (s *LoggingSink) PostArticle(ctx context.Context, article *newsgrab.Article) (res *newsgrab.PostResult, err error) {
	defer func(begin time.Time) {
		var id string
		if res != nil {
			id = res.ID
		}
		s.logger.Info("post article",
			"url", article.SourceURL,
			"id", id,
			"count", article.Content.Len(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.PostArticle(ctx, article)
}

// Ensure LoggingImageStore implements newsgrab.ImageStore.
var _ newsgrab.ImageStore = (*LoggingImageStore)(nil)

// LoggingImageStore wraps an ImageStore with logging.
type LoggingImageStore struct {
	next   newsgrab.ImageStore
	logger *slog.Logger
}

// NewLoggingImageStore creates a new LoggingImageStore.
func NewLoggingImageStore(next newsgrab.ImageStore, logger *slog.Logger) *LoggingImageStore {
	return &LoggingImageStore{next: next, logger: logger}
}

// UploadImage delegates to the wrapped store and logs the upload.
func (s *LoggingImageStore) UploadImage(ctx context.Context, data []byte, filename, mimeType string) (url string, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("upload image",
			"filename", filename,
			"mime", mimeType,
			"bytes", len(data),
			"url", url,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.UploadImage(ctx, data, filename, mimeType)
}

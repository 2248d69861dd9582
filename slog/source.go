package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/newsgrab"
)

// Ensure LoggingSource implements newsgrab.Source.
var _ newsgrab.Source = (*LoggingSource)(nil)

// LoggingSource wraps a Source with logging. Every line carries the
// source name.
type LoggingSource struct {
	next   newsgrab.Source
	logger *slog.Logger
}

// NewLoggingSource creates a new LoggingSource.
func NewLoggingSource(next newsgrab.Source, logger *slog.Logger) *LoggingSource {
	return &LoggingSource{next: next, logger: logger.With("source", next.Name())}
}

// Name delegates to the wrapped source.
func (s *LoggingSource) Name() string {
	return s.next.Name()
}

// Discover delegates to the wrapped source and logs the discovery.
func (s *LoggingSource) Discover(ctx context.Context, listingURL string) (links []*newsgrab.Link, err error) {
	defer func(begin time.Time) {
		s.logger.Info("discover",
			"url", listingURL,
			"count", len(links),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Discover(ctx, listingURL)
}

// FetchRaw delegates to the wrapped source and logs the fetch.
func (s *LoggingSource) FetchRaw(ctx context.Context, link *newsgrab.Link) (raw *newsgrab.RawArticle, err error) {
	defer func(begin time.Time) {
		var n int
		if raw != nil {
			n = len(raw.BodyHTML)
		}
		s.logger.Debug("fetch article",
			"url", link.URL,
			"bytes", n,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FetchRaw(ctx, link)
}

// ToStructured delegates to the wrapped source and logs the segmentation.
func (s *LoggingSource) ToStructured(raw *newsgrab.RawArticle) (article *newsgrab.Article, err error) {
	defer func(begin time.Time) {
		var keys, images int
		if article != nil {
			keys, images = article.Content.Len(), len(article.Images)
		}
		s.logger.Debug("segment article",
			"url", raw.URL,
			"count", keys,
			"images", images,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ToStructured(raw)
}

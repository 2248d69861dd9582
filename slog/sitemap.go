package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/newsgrab"
)

// Ensure LoggingSitemapService implements newsgrab.SitemapService.
var _ newsgrab.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService wraps a SitemapService with logging.
type LoggingSitemapService struct {
	next   newsgrab.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next newsgrab.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverLinks delegates to the wrapped service and logs the operation.
func (s *LoggingSitemapService) DiscoverLinks(ctx context.Context, baseURL string, filter *newsgrab.URLFilter) (links []*newsgrab.Link, err error) {
	defer func(begin time.Time) {
		s.logger.Info("sitemap discovery",
			"url", baseURL,
			"count", len(links),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DiscoverLinks(ctx, baseURL, filter)
}

// Ensure LoggingFeedService implements newsgrab.FeedService.
var _ newsgrab.FeedService = (*LoggingFeedService)(nil)

// LoggingFeedService wraps a FeedService with logging.
type LoggingFeedService struct {
	next   newsgrab.FeedService
	logger *slog.Logger
}

// NewLoggingFeedService creates a new LoggingFeedService.
func NewLoggingFeedService(next newsgrab.FeedService, logger *slog.Logger) *LoggingFeedService {
	return &LoggingFeedService{next: next, logger: logger}
}

// DiscoverLinks delegates to the wrapped service and logs the operation.
func (s *LoggingFeedService) DiscoverLinks(ctx context.Context, feedURL string) (links []*newsgrab.Link, err error) {
	defer func(begin time.Time) {
		s.logger.Info("feed discovery",
			"url", feedURL,
			"count", len(links),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DiscoverLinks(ctx, feedURL)
}

package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikifuse"
)

var _ wikifuse.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService wraps a SitemapService with logging. Failed
// discoveries are logged at warn level since a run can continue with the
// URLs it was given.
type LoggingSitemapService struct {
	next   wikifuse.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next wikifuse.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverURLs delegates to the wrapped service and logs the operation.
func (s *LoggingSitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *wikifuse.URLFilter) (urls []string, err error) {
	defer func(begin time.Time) {
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		attrs := []any{
			"url", baseURL,
			"count", len(urls),
			"duration", time.Since(begin),
		}
		if filter != nil {
			attrs = append(attrs, "include", len(filter.Include), "exclude", len(filter.Exclude))
		}
		s.logger.Log(ctx, level, "sitemap discovery", append(attrs, "err", err)...)
	}(time.Now())
	return s.next.DiscoverURLs(ctx, baseURL, filter)
}

// Package slog provides logging decorators for wikifuse services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikifuse"
)

// Ensure LoggingFetcher implements wikifuse.Fetcher.
var _ wikifuse.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging.
type LoggingFetcher struct {
	next   wikifuse.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next wikifuse.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (page *wikifuse.Page, err error) {
	defer func(begin time.Time) {
		var size int
		if page != nil {
			size = len(page.Content)
		}
		f.logger.Debug("fetch",
			"url", url,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}

// Ensure LoggingURLSource implements wikifuse.URLSource.
var _ wikifuse.URLSource = (*LoggingURLSource)(nil)

// LoggingURLSource wraps a URLSource with logging.
type LoggingURLSource struct {
	next   wikifuse.URLSource
	logger *slog.Logger
}

// NewLoggingURLSource creates a new LoggingURLSource.
func NewLoggingURLSource(next wikifuse.URLSource, logger *slog.Logger) *LoggingURLSource {
	return &LoggingURLSource{next: next, logger: logger}
}

// Discover delegates to the wrapped source and logs the number of URLs found.
func (s *LoggingURLSource) Discover(ctx context.Context, cfg *wikifuse.SourceConfig) (urls []string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("discovery",
			"source", cfg.Key,
			"count", len(urls),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Discover(ctx, cfg)
}

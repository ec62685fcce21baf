package wikifuse

import (
	"context"
	"time"
)

// Page is a fetched page.
type Page struct {
	URL         string
	Content     string
	ContentType string
	FetchedAt   time.Time
}

// URLSource discovers entity page URLs for a source.
// Implementations hide listing-page walking vs sitemap discovery.
type URLSource interface {
	Discover(ctx context.Context, cfg *SourceConfig) ([]string, error)
}

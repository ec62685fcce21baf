package mock

import (
	"context"

	"github.com/fwojciec/wikifuse"
)

var _ wikifuse.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of wikifuse.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*wikifuse.Page, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*wikifuse.Page, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

var _ wikifuse.URLSource = (*URLSource)(nil)

// URLSource is a mock implementation of wikifuse.URLSource.
type URLSource struct {
	DiscoverFn func(ctx context.Context, cfg *wikifuse.SourceConfig) ([]string, error)
}

func (s *URLSource) Discover(ctx context.Context, cfg *wikifuse.SourceConfig) ([]string, error) {
	return s.DiscoverFn(ctx, cfg)
}

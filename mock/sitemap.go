package mock

import (
	"context"

	"github.com/fwojciec/wikifuse"
)

var _ wikifuse.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of wikifuse.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, filter *wikifuse.URLFilter) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *wikifuse.URLFilter) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, filter)
}

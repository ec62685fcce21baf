// Package crawl discovers entity page URLs for a source, either by walking
// its listing pages or from its sitemaps.
package crawl

import (
	"context"
	"net/url"
	"sort"

	"github.com/fwojciec/wikifuse"
)

// Discovery defaults.
const (
	DefaultConcurrency     = 4
	DefaultMaxListingPages = 200
)

// Compile-time interface verification.
var _ wikifuse.URLSource = (*Discoverer)(nil)

// Discoverer implements wikifuse.URLSource. Listing pages named by the
// source configuration are walked first, pagination included; when they
// yield no entity URLs the source's sitemaps are used instead.
type Discoverer struct {
	Fetcher  wikifuse.Fetcher
	Links    wikifuse.LinkExtractor
	Sitemaps wikifuse.SitemapService

	// Concurrency is the number of listing pages fetched at once.
	Concurrency int

	// MaxListingPages bounds the listing pages fetched per discovery.
	MaxListingPages int

	// MaxEntities bounds the number of URLs returned. Zero means no limit.
	MaxEntities int
}

// Discover returns the entity page URLs of cfg, without duplicates, in
// listing order. Returns EFETCH if listing pages exist but none could be
// fetched and no sitemap provided URLs.
func (d *Discoverer) Discover(ctx context.Context, cfg *wikifuse.SourceConfig) ([]string, error) {
	var urls []string
	var listingErr error
	if len(cfg.ListingURLs) > 0 {
		urls, listingErr = d.walkListings(ctx, cfg)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if len(urls) == 0 && d.Sitemaps != nil {
		var err error
		urls, err = d.fromSitemaps(ctx, cfg, sitemapBases(cfg))
		if err != nil {
			return nil, err
		}
	}
	if len(urls) == 0 && listingErr != nil {
		return nil, listingErr
	}
	return d.limit(urls), nil
}

// DiscoverSitemap returns the entity page URLs listed by the sitemaps of
// baseURL, filtered by the source's sitemap patterns and allowed domains.
func (d *Discoverer) DiscoverSitemap(ctx context.Context, cfg *wikifuse.SourceConfig, baseURL string) ([]string, error) {
	if d.Sitemaps == nil {
		return nil, wikifuse.Errorf(wikifuse.ECONFIG, "sitemap discovery is not configured")
	}
	urls, err := d.fromSitemaps(ctx, cfg, []string{baseURL})
	if err != nil {
		return nil, err
	}
	return d.limit(urls), nil
}

// walkListings fetches listing pages, following pagination links, and
// collects the entity links they contain.
func (d *Discoverer) walkListings(ctx context.Context, cfg *wikifuse.SourceConfig) ([]string, error) {
	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	for _, u := range cfg.ListingURLs {
		frontier.Push(wikifuse.DiscoveredLink{URL: u, Priority: wikifuse.PriorityPagination, Source: "pagination"})
	}

	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	maxPages := d.MaxListingPages
	if maxPages <= 0 {
		maxPages = DefaultMaxListingPages
	}

	process := func(ctx context.Context, seq int, link wikifuse.DiscoveredLink) listingResult {
		res := listingResult{seq: seq, url: link.URL}
		page, err := d.Fetcher.Fetch(ctx, link.URL)
		if err != nil {
			res.err = err
			return res
		}
		res.links, res.err = d.Links.ExtractLinks(page, cfg)
		return res
	}

	// Entity links are kept per listing page and assembled in dispatch
	// order once the walk ends.
	found := make(map[int][]string)
	var firstErr error
	fetched := 0
	handle := func(res *listingResult, frontier *Frontier) {
		if res.err != nil {
			if firstErr == nil {
				firstErr = wikifuse.Errorf(wikifuse.EFETCH, "listing page %s: %s", res.url, wikifuse.ErrorMessage(res.err))
			}
			return
		}
		fetched++
		for _, link := range res.links {
			if link.Priority >= wikifuse.PriorityPagination {
				frontier.Push(link)
				continue
			}
			found[res.seq] = append(found[res.seq], link.URL)
		}
	}

	walkFrontier(ctx, frontier, concurrency, maxPages, process, handle)

	seqs := make([]int, 0, len(found))
	for seq := range found {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	var urls []string
	seen := make(map[string]bool)
	for _, seq := range seqs {
		for _, u := range found[seq] {
			u = CanonicalURL(u)
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}

	if fetched == 0 {
		return urls, firstErr
	}
	return urls, nil
}

func (d *Discoverer) fromSitemaps(ctx context.Context, cfg *wikifuse.SourceConfig, bases []string) ([]string, error) {
	filter, err := wikifuse.NewURLFilter(cfg.SitemapPatterns, wikifuse.NamespacePatterns...)
	if err != nil {
		return nil, err
	}

	var urls []string
	seen := make(map[string]bool)
	for _, base := range bases {
		found, err := d.Sitemaps.DiscoverURLs(ctx, base, filter)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, wikifuse.Errorf(wikifuse.EFETCH, "sitemap discovery for %s: %v", base, err)
		}
		for _, u := range found {
			u = CanonicalURL(u)
			if seen[u] || !cfg.AllowsURL(u) {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func (d *Discoverer) limit(urls []string) []string {
	if d.MaxEntities > 0 && len(urls) > d.MaxEntities {
		return urls[:d.MaxEntities]
	}
	return urls
}

// sitemapBases returns the site roots to read sitemaps from: the hosts of
// the listing pages, or the allowed domains when there are none.
func sitemapBases(cfg *wikifuse.SourceConfig) []string {
	var bases []string
	seen := make(map[string]bool)
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			bases = append(bases, u)
		}
	}
	for _, raw := range cfg.ListingURLs {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			add(u.Scheme + "://" + u.Host)
		}
	}
	if len(bases) == 0 {
		for _, domain := range cfg.AllowedDomains {
			add("https://" + domain)
		}
	}
	return bases
}

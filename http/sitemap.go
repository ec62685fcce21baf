package http

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/wikifuse"
	"github.com/klauspost/compress/gzip"
)

// DefaultMaxSitemaps bounds how many sitemap documents a single discovery
// reads. Wiki farms publish one index with a few dozen children.
const DefaultMaxSitemaps = 500

// Ensure SitemapService implements wikifuse.SitemapService.
var _ wikifuse.SitemapService = (*SitemapService)(nil)

// SitemapService discovers entity page URLs from a wiki's sitemaps.
type SitemapService struct {
	client      *http.Client
	maxSitemaps int
}

// SitemapOption configures a SitemapService.
type SitemapOption func(*SitemapService)

// WithMaxSitemaps sets the number of sitemap documents read per discovery.
func WithMaxSitemaps(n int) SitemapOption {
	return func(s *SitemapService) {
		s.maxSitemaps = n
	}
}

// NewSitemapService creates a new SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client, opts ...SitemapOption) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	s := &SitemapService{client: client, maxSitemaps: DefaultMaxSitemaps}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DiscoverURLs returns the page URLs listed by the sitemaps of baseURL's
// host, in document order without duplicates. Sitemaps are taken from
// robots.txt, falling back to /sitemap.xml; indexes are followed
// breadth first and gzip-compressed documents are accepted. When baseURL
// has a path, only URLs below that path are returned.
//
// Returns an empty slice if the site publishes no sitemap.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *wikifuse.URLFilter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, wikifuse.Errorf(wikifuse.EINVALID, "invalid base URL %q", baseURL)
	}
	prefix := strings.TrimSuffix(base.Path, "/")
	root := &url.URL{Scheme: base.Scheme, Host: base.Host}

	queue, err := s.sitemapsFor(ctx, root)
	if err != nil {
		return nil, err
	}

	urls := []string{}
	seenURL := make(map[string]bool)
	seenSitemap := make(map[string]bool)
	for len(queue) > 0 && len(seenSitemap) < s.maxSitemaps {
		loc := queue[0]
		queue = queue[1:]
		if seenSitemap[loc] {
			continue
		}
		seenSitemap[loc] = true

		children, pages, err := s.readSitemap(ctx, loc)
		if err != nil {
			return nil, err
		}
		queue = append(queue, children...)

		for _, p := range pages {
			if seenURL[p] || !underPrefix(p, prefix) || !filter.Match(p) {
				continue
			}
			seenURL[p] = true
			urls = append(urls, p)
		}
	}
	return urls, nil
}

// underPrefix reports whether rawURL's path is prefix or below it.
func underPrefix(rawURL, prefix string) bool {
	if prefix == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}

// sitemapsFor lists the sitemaps declared in robots.txt, or /sitemap.xml
// when robots.txt declares none and that document exists.
func (s *SitemapService) sitemapsFor(ctx context.Context, root *url.URL) ([]string, error) {
	if body, err := s.get(ctx, root.JoinPath("robots.txt").String()); err == nil {
		var sitemaps []string
		scanner := bufio.NewScanner(bytes.NewReader(body))
		for scanner.Scan() {
			directive, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
			if ok && strings.EqualFold(strings.TrimSpace(directive), "sitemap") {
				if loc := strings.TrimSpace(value); loc != "" {
					sitemaps = append(sitemaps, loc)
				}
			}
		}
		if len(sitemaps) > 0 {
			return sitemaps, nil
		}
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fallback := root.JoinPath("sitemap.xml").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fallback, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	return []string{fallback}, nil
}

// readSitemap returns the child sitemaps of an index, or the page URLs of
// a urlset.
func (s *SitemapService) readSitemap(ctx context.Context, loc string) (children, pages []string, err error) {
	body, err := s.get(ctx, loc)
	if err != nil {
		return nil, nil, err
	}
	if isGzip(body) {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, nil, fmt.Errorf("decompressing %s: %w", loc, err)
		}
		body, err = io.ReadAll(zr)
		if err != nil {
			return nil, nil, fmt.Errorf("decompressing %s: %w", loc, err)
		}
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, nil, fmt.Errorf("parsing sitemap %s: %w", loc, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("empty sitemap %s", loc)
	}

	switch root.Tag {
	case "sitemapindex":
		return locs(root, "sitemap"), nil, nil
	default:
		return nil, locs(root, "url"), nil
	}
}

// locs returns the trimmed <loc> text of every child element named tag.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		if loc := el.SelectElement("loc"); loc != nil {
			if v := strings.TrimSpace(loc.Text()); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func isGzip(b []byte) bool {
	return len(b) > 2 && b[0] == 0x1f && b[1] == 0x8b
}

func (s *SitemapService) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)
	}
	return io.ReadAll(resp.Body)
}

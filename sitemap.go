package wikifuse

import (
	"context"
	"regexp"
	"slices"
)

// NamespacePatterns match MediaWiki pages that never describe an entity:
// talk, user, file, template, category and special pages, and their
// subpages.
var NamespacePatterns = []string{
	`/wiki/(?i:(?:[a-z_]+_)?talk|user|file|image|template|category|special|help|mediawiki|module|forum|blog|message_wall|thread|board):`,
	`[?&]action=`,
	`[?&]oldid=`,
}

// NewURLFilter compiles include and exclude patterns into a filter.
// Returns nil when there are no patterns.
func NewURLFilter(include []string, exclude ...string) (*URLFilter, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return nil, nil
	}
	compile := func(patterns []string) ([]*regexp.Regexp, error) {
		var out []*regexp.Regexp
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, Errorf(ECONFIG, "invalid URL pattern %q: %v", p, err)
			}
			out = append(out, re)
		}
		return out, nil
	}

	var f URLFilter
	var err error
	if f.Include, err = compile(include); err != nil {
		return nil, err
	}
	if f.Exclude, err = compile(exclude); err != nil {
		return nil, err
	}
	return &f, nil
}

// SitemapService discovers URLs from wiki sitemaps.
type SitemapService interface {
	// DiscoverURLs finds all URLs from a site's sitemap.
	// It first checks robots.txt for sitemap directives, then falls back
	// to /sitemap.xml. Sitemap indexes are resolved recursively.
	//
	// If filter is nil, all URLs are returned.
	DiscoverURLs(ctx context.Context, baseURL string, filter *URLFilter) ([]string, error)
}

// URLFilter specifies patterns for including/excluding URLs.
type URLFilter struct {
	// Include patterns - if set, only URLs matching at least one pattern are included.
	Include []*regexp.Regexp

	// Exclude patterns - URLs matching any pattern are excluded.
	// Exclude is applied after Include.
	Exclude []*regexp.Regexp
}

// Match returns true if the URL passes the filter.
// If the filter is nil, all URLs pass.
func (f *URLFilter) Match(url string) bool {
	if f == nil {
		return true
	}

	matches := func(res []*regexp.Regexp) bool {
		return slices.ContainsFunc(res, func(re *regexp.Regexp) bool { return re.MatchString(url) })
	}
	if len(f.Include) > 0 && !matches(f.Include) {
		return false
	}
	return !matches(f.Exclude)
}

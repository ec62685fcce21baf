package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/wikifuse"
)

var _ wikifuse.LinkExtractor = (*LinkExtractor)(nil)

// SelectorConfig defines a CSS selector with its priority and source label.
type SelectorConfig struct {
	Selector string
	Priority wikifuse.LinkPriority
	Source   string
}

// LinkExtractor finds entity and pagination links on listing pages.
type LinkExtractor struct{}

// NewLinkExtractor creates a new LinkExtractor.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{}
}

// ExtractLinks returns the entity links matched by cfg.LinkSelector and the
// pagination links matched by cfg.Pagination. Links outside the allowed
// domains are dropped.
func (e *LinkExtractor) ExtractLinks(page *wikifuse.Page, cfg *wikifuse.SourceConfig) ([]wikifuse.DiscoveredLink, error) {
	var configs []SelectorConfig
	if cfg.Pagination != "" {
		configs = append(configs, SelectorConfig{Selector: cfg.Pagination, Priority: wikifuse.PriorityPagination, Source: "pagination"})
	}
	if cfg.LinkSelector != "" {
		configs = append(configs, SelectorConfig{Selector: cfg.LinkSelector, Priority: wikifuse.PriorityEntity, Source: "entity"})
	}
	if len(configs) == 0 {
		return nil, nil
	}

	links, err := ExtractLinksWithConfigs(page.Content, page.URL, configs)
	if err != nil {
		return nil, err
	}

	allowed := links[:0]
	for _, link := range links {
		if cfg.AllowsURL(link.URL) {
			allowed = append(allowed, link)
		}
	}
	return allowed, nil
}

// ExtractLinksWithConfigs extracts links from HTML using the provided selector configurations.
// Links are deduplicated by URL, keeping the highest priority version.
// The returned links maintain document order based on first occurrence.
func ExtractLinksWithConfigs(content string, baseURL string, configs []SelectorConfig) ([]wikifuse.DiscoveredLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := ParseDocument(content)
	if err != nil {
		return nil, err
	}

	// Track seen URLs with their index in the result slice for O(1) updates
	seen := make(map[string]int)
	var links []wikifuse.DiscoveredLink

	for _, config := range configs {
		doc.doc.Find(config.Selector).Each(func(_ int, sel *goquery.Selection) {
			href, exists := sel.Attr("href")
			if !exists {
				// Selectors may point at a container of the anchor.
				href, exists = sel.Find("a[href]").First().Attr("href")
			}
			if !exists || href == "" || isNonHTTPLink(href) {
				return
			}

			resolved := resolveURL(base, href)
			if resolved == "" {
				return
			}

			link := wikifuse.DiscoveredLink{
				URL:      resolved,
				Priority: config.Priority,
				Text:     strings.TrimSpace(sel.Text()),
				Source:   config.Source,
			}

			if idx, ok := seen[resolved]; ok {
				if config.Priority > links[idx].Priority {
					links[idx] = link
				}
				return
			}
			seen[resolved] = len(links)
			links = append(links, link)
		})
	}

	return links, nil
}

// resolveURL resolves a relative URL against a base URL.
// Returns empty string if the href cannot be parsed or if the resolved URL
// is self-referential (same as base URL after stripping fragment).
// Fragments are stripped from the resolved URL for deduplication purposes.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""

	result := resolved.String()
	baseNoFragment := *base
	baseNoFragment.Fragment = ""
	if result == baseNoFragment.String() {
		return ""
	}
	return result
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}

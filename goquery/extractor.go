package goquery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"github.com/fwojciec/wikifuse"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Compile-time interface verification.
var (
	_ wikifuse.RecordExtractor = (*Extractor)(nil)
	_ wikifuse.ConfigValidator = (*Extractor)(nil)
)

// Extractor applies selector rules to parsed documents.
type Extractor struct {
	policy *bluemonday.Policy
}

// NewExtractor creates a new Extractor. HTML-mode values are sanitized with
// bluemonday's user generated content policy.
func NewExtractor() *Extractor {
	return &Extractor{policy: bluemonday.UGCPolicy()}
}

// ExtractRecord parses the page and applies every rule of cfg.
func (e *Extractor) ExtractRecord(page *wikifuse.Page, cfg *wikifuse.SourceConfig) (*wikifuse.RawRecord, error) {
	doc, err := ParseDocument(page.Content)
	if err != nil {
		return nil, err
	}

	rec := &wikifuse.RawRecord{
		Fields: make(map[string]wikifuse.Value, len(cfg.Rules)),
		Provenance: wikifuse.Provenance{
			SourceURL: page.URL,
			SourceKey: cfg.Key,
			FetchedAt: page.FetchedAt,
		},
	}

	identity := cfg.Identity()
	for i := range cfg.Rules {
		rule := &cfg.Rules[i]
		v, err := e.Extract(doc, rule)
		if err != nil {
			return nil, err
		}
		if v.IsAbsent() && (rule.Required || rule.Field == identity) {
			return nil, wikifuse.Errorf(wikifuse.EINVALID, "required field %q not found on %s", rule.Field, page.URL)
		}
		rec.Fields[rule.Field] = v
	}
	return rec, nil
}

// Extract applies a single rule to doc. Absence is not an error.
//
// In scalar modes the primary selector is tried first, then each fallback in
// order; the first selector yielding a non-empty value wins. In list mode
// the matches of every selector are concatenated and deduplicated, keeping
// first-seen order.
func (e *Extractor) Extract(doc *Document, rule *wikifuse.SelectorRule) (wikifuse.Value, error) {
	if rule.ExtractionMode() == wikifuse.ModeList {
		var items []string
		seen := make(map[string]bool)
		for _, sel := range rule.Selectors() {
			values, err := e.match(doc, sel, rule)
			if err != nil {
				return wikifuse.Absent(), err
			}
			for _, v := range values {
				if v == "" || seen[v] {
					continue
				}
				seen[v] = true
				items = append(items, v)
			}
		}
		return wikifuse.List(items...), nil
	}

	for _, sel := range rule.Selectors() {
		values, err := e.match(doc, sel, rule)
		if err != nil {
			return wikifuse.Absent(), err
		}
		for _, v := range values {
			if v != "" {
				return wikifuse.Text(v), nil
			}
		}
	}
	return wikifuse.Absent(), nil
}

// match returns the values of every element matched by sel, in document
// order.
func (e *Extractor) match(doc *Document, sel string, rule *wikifuse.SelectorRule) ([]string, error) {
	switch rule.SelectorType() {
	case wikifuse.SelectorXPath:
		return e.matchXPath(doc, sel, rule)
	case wikifuse.SelectorRegex:
		return matchRegex(doc, sel, rule)
	default:
		return e.matchCSS(doc, sel, rule)
	}
}

func (e *Extractor) matchCSS(doc *Document, sel string, rule *wikifuse.SelectorRule) ([]string, error) {
	matcher, err := cascadia.Compile(sel)
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.ECONFIG, "rule %q: invalid CSS selector %q: %v", rule.Field, sel, err)
	}

	var values []string
	doc.doc.FindMatcher(matcher).Each(func(_ int, s *goquery.Selection) {
		switch {
		case rule.ExtractionMode() == wikifuse.ModeHTML:
			inner, err := s.Html()
			if err != nil {
				return
			}
			values = append(values, e.sanitize(inner))
		case readsAttribute(rule):
			attr, _ := s.Attr(rule.Attribute)
			values = append(values, strings.TrimSpace(attr))
		default:
			values = append(values, strings.TrimSpace(s.Text()))
		}
	})
	return values, nil
}

func (e *Extractor) matchXPath(doc *Document, sel string, rule *wikifuse.SelectorRule) ([]string, error) {
	expr, err := xpath.Compile(sel)
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.ECONFIG, "rule %q: invalid XPath %q: %v", rule.Field, sel, err)
	}

	nodes := htmlquery.QuerySelectorAll(doc.root, expr)
	values := make([]string, 0, len(nodes))
	for _, n := range nodes {
		switch {
		case rule.ExtractionMode() == wikifuse.ModeHTML:
			values = append(values, e.sanitize(htmlquery.OutputHTML(n, false)))
		case readsAttribute(rule) && n.Type == html.ElementNode:
			values = append(values, strings.TrimSpace(htmlquery.SelectAttr(n, rule.Attribute)))
		default:
			values = append(values, strings.TrimSpace(htmlquery.InnerText(n)))
		}
	}
	return values, nil
}

// readsAttribute reports whether matched elements yield rule.Attribute
// rather than their text. List rules read the attribute when one is set.
func readsAttribute(rule *wikifuse.SelectorRule) bool {
	switch rule.ExtractionMode() {
	case wikifuse.ModeAttribute:
		return true
	case wikifuse.ModeList:
		return rule.Attribute != ""
	}
	return false
}

// matchRegex applies the expression to the document text. The first capture
// group is used when the expression has one.
func matchRegex(doc *Document, sel string, rule *wikifuse.SelectorRule) ([]string, error) {
	re, err := regexp.Compile(sel)
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.ECONFIG, "rule %q: invalid regex %q: %v", rule.Field, sel, err)
	}

	var values []string
	for _, m := range re.FindAllStringSubmatch(doc.Text(), -1) {
		v := m[0]
		if len(m) > 1 {
			v = m[1]
		}
		values = append(values, strings.TrimSpace(v))
	}
	return values, nil
}

func (e *Extractor) sanitize(fragment string) string {
	return strings.TrimSpace(e.policy.Sanitize(fragment))
}

// ValidateConfig compiles every selector of cfg. Returns ECONFIG for the
// first invalid one.
func (e *Extractor) ValidateConfig(cfg *wikifuse.SourceConfig) error {
	for i := range cfg.Rules {
		rule := &cfg.Rules[i]
		for _, sel := range rule.Selectors() {
			if err := validateSelector(rule.SelectorType(), sel); err != nil {
				return wikifuse.Errorf(wikifuse.ECONFIG, "%s: rule %q: invalid %s selector %q: %v",
					cfg.Key, rule.Field, rule.SelectorType(), sel, err)
			}
		}
	}
	for _, sel := range []string{cfg.LinkSelector, cfg.Pagination} {
		if sel == "" {
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			return wikifuse.Errorf(wikifuse.ECONFIG, "%s: invalid link selector %q: %v", cfg.Key, sel, err)
		}
	}
	return nil
}

func validateSelector(typ wikifuse.SelectorType, sel string) error {
	var err error
	switch typ {
	case wikifuse.SelectorXPath:
		_, err = xpath.Compile(sel)
	case wikifuse.SelectorRegex:
		_, err = regexp.Compile(sel)
	default:
		_, err = cascadia.Compile(sel)
	}
	return err
}

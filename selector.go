package wikifuse

import (
	"net/url"
	"slices"
	"strings"
)

// DefaultSourceKey is the key of the generic configuration used when no
// source-specific configuration exists.
const DefaultSourceKey = "generic"

// DefaultIdentityField is the field used to derive entity keys.
const DefaultIdentityField = "name"

// SelectorType identifies the selector language of a rule.
type SelectorType string

// Supported selector types.
const (
	SelectorCSS   SelectorType = "css"
	SelectorXPath SelectorType = "xpath"
	SelectorRegex SelectorType = "regex"
)

// ExtractionMode identifies what a rule extracts from matched elements.
type ExtractionMode string

// Supported extraction modes.
const (
	ModeText      ExtractionMode = "text"
	ModeAttribute ExtractionMode = "attribute"
	ModeList      ExtractionMode = "list"
	ModeHTML      ExtractionMode = "html"
)

// FieldType selects the normalization rule of a field.
type FieldType string

// Built-in field types.
const (
	FieldText  FieldType = "text"
	FieldDate  FieldType = "date"
	FieldList  FieldType = "list"
	FieldAlias FieldType = "alias"
	FieldMap   FieldType = "map"
)

// SelectorRule describes how to extract one field from a page.
type SelectorRule struct {
	Field       string         `yaml:"field" toml:"field"`
	Selector    string         `yaml:"selector" toml:"selector"`
	Fallbacks   []string       `yaml:"fallbacks,omitempty" toml:"fallbacks,omitempty"`
	Type        SelectorType   `yaml:"type,omitempty" toml:"type,omitempty"`
	Mode        ExtractionMode `yaml:"mode,omitempty" toml:"mode,omitempty"`
	Attribute   string         `yaml:"attribute,omitempty" toml:"attribute,omitempty"`
	PostProcess string         `yaml:"post_process,omitempty" toml:"post_process,omitempty"`
	Required    bool           `yaml:"required,omitempty" toml:"required,omitempty"`
	Description string         `yaml:"description,omitempty" toml:"description,omitempty"`
}

// Selectors returns the primary selector followed by the fallbacks in order.
func (r *SelectorRule) Selectors() []string {
	out := make([]string, 0, 1+len(r.Fallbacks))
	out = append(out, r.Selector)
	return append(out, r.Fallbacks...)
}

// SelectorType returns the rule's selector type, defaulting to CSS.
func (r *SelectorRule) SelectorType() SelectorType {
	if r.Type == "" {
		return SelectorCSS
	}
	return r.Type
}

// ExtractionMode returns the rule's mode, defaulting to text.
func (r *SelectorRule) ExtractionMode() ExtractionMode {
	if r.Mode == "" {
		return ModeText
	}
	return r.Mode
}

// FieldSpec declares how a field is normalized and weighted.
type FieldSpec struct {
	Name string    `yaml:"name" toml:"name"`
	Type FieldType `yaml:"type,omitempty" toml:"type,omitempty"`

	// Weight is the field's importance in quality scoring. Zero means 1.
	Weight float64 `yaml:"weight,omitempty" toml:"weight,omitempty"`

	// MinLength is the information length below which the field earns
	// only partial credit. Zero selects the default for the field type.
	MinLength int `yaml:"min_length,omitempty" toml:"min_length,omitempty"`
}

// EffectiveWeight returns the weight used for scoring.
func (f FieldSpec) EffectiveWeight() float64 {
	if f.Weight == 0 {
		return 1
	}
	return f.Weight
}

// SourceConfig holds the extraction configuration of one source.
// A loaded SourceConfig must be treated as read-only.
type SourceConfig struct {
	Key     string `yaml:"key" toml:"key"`
	Name    string `yaml:"name,omitempty" toml:"name,omitempty"`
	Extends string `yaml:"extends,omitempty" toml:"extends,omitempty"`

	AllowedDomains  []string `yaml:"allowed_domains,omitempty" toml:"allowed_domains,omitempty"`
	ListingURLs     []string `yaml:"listing_urls,omitempty" toml:"listing_urls,omitempty"`
	LinkSelector    string   `yaml:"link_selector,omitempty" toml:"link_selector,omitempty"`
	Pagination      string   `yaml:"pagination,omitempty" toml:"pagination,omitempty"`
	SitemapPatterns []string `yaml:"sitemap_patterns,omitempty" toml:"sitemap_patterns,omitempty"`

	IdentityField string   `yaml:"identity_field,omitempty" toml:"identity_field,omitempty"`
	DateFormats   []string `yaml:"date_formats,omitempty" toml:"date_formats,omitempty"`

	Rules  []SelectorRule `yaml:"rules,omitempty" toml:"rules,omitempty"`
	Fields []FieldSpec    `yaml:"fields,omitempty" toml:"fields,omitempty"`

	// Aliases maps field -> canonical value -> alternative spellings.
	Aliases map[string]map[string][]string `yaml:"aliases,omitempty" toml:"aliases,omitempty"`
}

// Identity returns the field used to derive entity keys.
func (c *SourceConfig) Identity() string {
	if c.IdentityField == "" {
		return DefaultIdentityField
	}
	return c.IdentityField
}

// Rule returns the rule for field.
func (c *SourceConfig) Rule(field string) (*SelectorRule, bool) {
	for i := range c.Rules {
		if c.Rules[i].Field == field {
			return &c.Rules[i], true
		}
	}
	return nil, false
}

// Schema returns the effective field specs: declared specs in order, then
// an implicit spec for every rule without one. Implicit specs are lists
// for list-mode rules and text otherwise.
func (c *SourceConfig) Schema() []FieldSpec {
	out := make([]FieldSpec, 0, len(c.Fields)+len(c.Rules))
	declared := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Type == "" {
			f.Type = FieldText
		}
		out = append(out, f)
		declared[f.Name] = true
	}
	for _, r := range c.Rules {
		if declared[r.Field] {
			continue
		}
		declared[r.Field] = true
		typ := FieldText
		if r.ExtractionMode() == ModeList {
			typ = FieldList
		}
		out = append(out, FieldSpec{Name: r.Field, Type: typ})
	}
	return out
}

// AllowsURL reports whether rawURL belongs to an allowed domain. An empty
// allow-list allows every domain. Subdomains of an allowed domain match.
func (c *SourceConfig) AllowsURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if len(c.AllowedDomains) == 0 {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range c.AllowedDomains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Validate returns an ECONFIG error if the configuration is structurally
// invalid. Selector syntax is checked separately by a ConfigValidator.
func (c *SourceConfig) Validate() error {
	if c.Key == "" {
		return Errorf(ECONFIG, "source key required")
	}

	seen := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		if r.Field == "" {
			return Errorf(ECONFIG, "%s: rule %d has no field", c.Key, i)
		}
		if seen[r.Field] {
			return Errorf(ECONFIG, "%s: duplicate rule for field %q", c.Key, r.Field)
		}
		seen[r.Field] = true
		if strings.TrimSpace(r.Selector) == "" {
			return Errorf(ECONFIG, "%s: rule %q has no selector", c.Key, r.Field)
		}
		for _, fb := range r.Fallbacks {
			if strings.TrimSpace(fb) == "" {
				return Errorf(ECONFIG, "%s: rule %q has an empty fallback", c.Key, r.Field)
			}
		}
		switch r.SelectorType() {
		case SelectorCSS, SelectorXPath, SelectorRegex:
		default:
			return Errorf(ECONFIG, "%s: rule %q has unknown selector type %q", c.Key, r.Field, r.Type)
		}
		switch r.ExtractionMode() {
		case ModeText, ModeList, ModeHTML:
		case ModeAttribute:
			if r.Attribute == "" {
				return Errorf(ECONFIG, "%s: rule %q uses attribute mode without an attribute", c.Key, r.Field)
			}
		default:
			return Errorf(ECONFIG, "%s: rule %q has unknown mode %q", c.Key, r.Field, r.Mode)
		}
	}

	names := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return Errorf(ECONFIG, "%s: field spec without a name", c.Key)
		}
		if names[f.Name] {
			return Errorf(ECONFIG, "%s: duplicate field spec %q", c.Key, f.Name)
		}
		names[f.Name] = true
		if f.Weight < 0 {
			return Errorf(ECONFIG, "%s: field %q has negative weight", c.Key, f.Name)
		}
		if f.MinLength < 0 {
			return Errorf(ECONFIG, "%s: field %q has negative min_length", c.Key, f.Name)
		}
	}

	if _, err := NewURLFilter(c.SitemapPatterns); err != nil {
		return Errorf(ECONFIG, "%s: %s", c.Key, ErrorMessage(err))
	}

	if _, ok := c.Rule(c.Identity()); !ok {
		return Errorf(ECONFIG, "%s: identity field %q has no rule", c.Key, c.Identity())
	}
	return nil
}

// Inherit returns a new configuration with c layered over base. Rules and
// field specs replace the base's by field name, alias tables merge per
// field, and scalar settings override when set.
func (c *SourceConfig) Inherit(base *SourceConfig) *SourceConfig {
	out := base.Clone()
	out.Key = c.Key
	out.Extends = ""
	if c.Name != "" {
		out.Name = c.Name
	}
	if len(c.AllowedDomains) > 0 {
		out.AllowedDomains = slices.Clone(c.AllowedDomains)
	}
	if len(c.ListingURLs) > 0 {
		out.ListingURLs = slices.Clone(c.ListingURLs)
	}
	if c.LinkSelector != "" {
		out.LinkSelector = c.LinkSelector
	}
	if c.Pagination != "" {
		out.Pagination = c.Pagination
	}
	if len(c.SitemapPatterns) > 0 {
		out.SitemapPatterns = slices.Clone(c.SitemapPatterns)
	}
	if c.IdentityField != "" {
		out.IdentityField = c.IdentityField
	}
	if len(c.DateFormats) > 0 {
		out.DateFormats = slices.Clone(c.DateFormats)
	}

	for _, r := range c.Rules {
		r.Fallbacks = slices.Clone(r.Fallbacks)
		if i := slices.IndexFunc(out.Rules, func(x SelectorRule) bool { return x.Field == r.Field }); i >= 0 {
			out.Rules[i] = r
		} else {
			out.Rules = append(out.Rules, r)
		}
	}
	for _, f := range c.Fields {
		if i := slices.IndexFunc(out.Fields, func(x FieldSpec) bool { return x.Name == f.Name }); i >= 0 {
			out.Fields[i] = f
		} else {
			out.Fields = append(out.Fields, f)
		}
	}
	for field, table := range c.Aliases {
		if out.Aliases == nil {
			out.Aliases = make(map[string]map[string][]string)
		}
		if out.Aliases[field] == nil {
			out.Aliases[field] = make(map[string][]string)
		}
		for canonical, aliases := range table {
			out.Aliases[field][canonical] = slices.Clone(aliases)
		}
	}
	return out
}

// Clone returns a deep copy of the configuration.
func (c *SourceConfig) Clone() *SourceConfig {
	out := *c
	out.AllowedDomains = slices.Clone(c.AllowedDomains)
	out.ListingURLs = slices.Clone(c.ListingURLs)
	out.SitemapPatterns = slices.Clone(c.SitemapPatterns)
	out.DateFormats = slices.Clone(c.DateFormats)
	out.Fields = slices.Clone(c.Fields)
	out.Rules = make([]SelectorRule, len(c.Rules))
	for i, r := range c.Rules {
		r.Fallbacks = slices.Clone(r.Fallbacks)
		out.Rules[i] = r
	}
	if c.Rules == nil {
		out.Rules = nil
	}
	if c.Aliases != nil {
		out.Aliases = make(map[string]map[string][]string, len(c.Aliases))
		for field, table := range c.Aliases {
			t := make(map[string][]string, len(table))
			for canonical, aliases := range table {
				t[canonical] = slices.Clone(aliases)
			}
			out.Aliases[field] = t
		}
	}
	return &out
}

// NormalizeSourceKey lowercases a source key and removes spaces, hyphens
// and underscores so "One Piece", "one-piece" and "onepiece" are one key.
func NormalizeSourceKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(key)))
}

// Registry loads and resolves source configurations.
type Registry interface {
	// Load returns the configuration for sourceKey, falling back to the
	// default configuration. Returns ECONFIG if neither exists.
	Load(sourceKey string) (*SourceConfig, error)

	// ResolveRule returns the rule for field of sourceKey.
	// Returns EUNKNOWNFIELD if the configuration has no such rule.
	ResolveRule(sourceKey, field string) (*SelectorRule, error)

	// List returns the keys of all available configurations.
	List() ([]string, error)
}

// ConfigValidator checks that the selectors of a configuration are
// syntactically valid. Returns ECONFIG otherwise.
type ConfigValidator interface {
	ValidateConfig(cfg *SourceConfig) error
}

// ConfigCodec encodes and decodes configuration documents.
type ConfigCodec interface {
	// Extensions returns the file extensions handled, including the dot.
	Extensions() []string

	Decode(data []byte, cfg *SourceConfig) error
	Encode(cfg *SourceConfig) ([]byte, error)
}

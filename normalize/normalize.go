// Package normalize converts raw extracted values into canonical forms.
//
// Each field is normalized independently according to its FieldType. Data
// problems never fail normalization: values that cannot be converted become
// absent and their original strings are kept in the record's provenance.
package normalize

import (
	"maps"
	"strings"

	"github.com/fwojciec/wikifuse"
)

var _ wikifuse.Normalizer = (*Normalizer)(nil)

// FieldRule normalizes one value. A non-empty raw result reports that v
// could not be converted; raw is then kept for audit.
type FieldRule func(v wikifuse.Value, spec wikifuse.FieldSpec, cfg *wikifuse.SourceConfig) (out wikifuse.Value, raw string)

// Transform rewrites a single string before the field rule runs.
type Transform func(s string, rec *wikifuse.RawRecord) string

// Normalizer implements wikifuse.Normalizer.
type Normalizer struct {
	rules      map[wikifuse.FieldType]FieldRule
	transforms map[string]Transform
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithFieldRule registers a rule for a field type, replacing any built-in.
func WithFieldRule(typ wikifuse.FieldType, rule FieldRule) Option {
	return func(n *Normalizer) {
		n.rules[typ] = rule
	}
}

// WithTransform registers a post-process transform under name.
func WithTransform(name string, fn Transform) Option {
	return func(n *Normalizer) {
		n.transforms[name] = fn
	}
}

// WithConverter registers the "markdown" transform backed by conv.
// Values that fail to convert are left unchanged.
func WithConverter(conv wikifuse.Converter) Option {
	return WithTransform("markdown", func(s string, _ *wikifuse.RawRecord) string {
		md, err := conv.Convert(s)
		if err != nil {
			return s
		}
		return strings.TrimSpace(md)
	})
}

// NewNormalizer returns a Normalizer with the built-in field rules and
// transforms.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		rules: map[wikifuse.FieldType]FieldRule{
			wikifuse.FieldText:  normalizeText,
			wikifuse.FieldDate:  normalizeDate,
			wikifuse.FieldList:  normalizeList,
			wikifuse.FieldAlias: normalizeAlias,
			wikifuse.FieldMap:   normalizeMap,
		},
		transforms: maps.Clone(builtinTransforms),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Validate checks that every field type and transform used by cfg is
// registered.
func (n *Normalizer) Validate(cfg *wikifuse.SourceConfig) error {
	for _, spec := range cfg.Schema() {
		if _, ok := n.rules[spec.Type]; !ok {
			return wikifuse.Errorf(wikifuse.ESCHEMA, "%s: field %q has type %q with no normalization rule", cfg.Key, spec.Name, spec.Type)
		}
	}
	for _, rule := range cfg.Rules {
		for _, tag := range postProcessTags(rule.PostProcess) {
			if _, ok := n.transforms[tag]; !ok {
				return wikifuse.Errorf(wikifuse.ESCHEMA, "%s: field %q uses unknown transform %q", cfg.Key, rule.Field, tag)
			}
		}
	}
	return nil
}

// Normalize converts raw into a NormalizedRecord. The identity value is
// resolved through its alias table before the EntityKey is built, whatever
// the identity field's type. The EntityKey is empty when the identity field
// is absent after normalization.
func (n *Normalizer) Normalize(raw *wikifuse.RawRecord, cfg *wikifuse.SourceConfig) (*wikifuse.NormalizedRecord, error) {
	if err := n.Validate(cfg); err != nil {
		return nil, err
	}

	rec := &wikifuse.NormalizedRecord{
		Fields:     make(map[string]wikifuse.Value),
		Provenance: raw.Provenance,
	}
	rec.RawValues = maps.Clone(raw.RawValues)

	for _, spec := range cfg.Schema() {
		v := raw.Get(spec.Name)
		if v.IsAbsent() {
			continue
		}
		if rule, ok := cfg.Rule(spec.Name); ok {
			v = n.transform(v, postProcessTags(rule.PostProcess), raw)
		}

		out, rawStr := n.rules[spec.Type](v, spec, cfg)
		if !out.IsAbsent() {
			rec.Fields[spec.Name] = out
		}
		if rawStr != "" {
			if rec.RawValues == nil {
				rec.RawValues = make(map[string]string)
			}
			rec.RawValues[spec.Name] = rawStr
		}
	}

	identity := cfg.Identity()
	if name := rec.Get(identity); name.Kind == wikifuse.KindText {
		canonical := NewAliasTable(cfg.Aliases[identity]).Resolve(name.Text)
		rec.Fields[identity] = wikifuse.Text(canonical)
		rec.EntityKey = NewEntityKey(cfg.Key, canonical)
	} else if !name.IsAbsent() {
		rec.EntityKey = NewEntityKey(cfg.Key, name.String())
	}
	return rec, nil
}

func (n *Normalizer) transform(v wikifuse.Value, tags []string, raw *wikifuse.RawRecord) wikifuse.Value {
	if len(tags) == 0 {
		return v
	}
	apply := func(s string) string {
		for _, tag := range tags {
			s = n.transforms[tag](s, raw)
		}
		return s
	}
	switch v.Kind {
	case wikifuse.KindText:
		return wikifuse.Text(apply(v.Text))
	case wikifuse.KindList:
		items := make([]string, 0, len(v.List))
		for _, item := range v.List {
			if s := apply(item); s != "" {
				items = append(items, s)
			}
		}
		return wikifuse.List(items...)
	}
	return v
}

// postProcessTags splits a comma-separated post_process value.
func postProcessTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

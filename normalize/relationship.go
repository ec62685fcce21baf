package normalize

import (
	"sort"
	"strings"

	"github.com/fwojciec/wikifuse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultRelation is the relation type of entries without one.
const DefaultRelation = "Related"

// ParseRelationships converts "Type: Name" entries into a map keyed by
// title-cased relation type. Names sharing a type are joined with ", ".
func ParseRelationships(entries []string) map[string]string {
	out := make(map[string]string)
	titler := cases.Title(language.English)
	for _, entry := range entries {
		typ, name, ok := strings.Cut(entry, ":")
		if !ok {
			typ, name = DefaultRelation, entry
		}
		typ = titler.String(CleanText(typ))
		name = CleanText(name)
		if typ == "" || name == "" || IsPlaceholder(name) {
			continue
		}
		if prev, ok := out[typ]; ok {
			if !containsFold(strings.Split(prev, ", "), name) {
				out[typ] = prev + ", " + name
			}
			continue
		}
		out[typ] = name
	}
	return out
}

func containsFold(items []string, s string) bool {
	for _, item := range items {
		if Fold(item) == Fold(s) {
			return true
		}
	}
	return false
}

func normalizeMap(v wikifuse.Value, _ wikifuse.FieldSpec, _ *wikifuse.SourceConfig) (wikifuse.Value, string) {
	switch v.Kind {
	case wikifuse.KindMap:
		entries := make([]string, 0, len(v.Map))
		for k, name := range v.Map {
			entries = append(entries, k+": "+name)
		}
		sort.Strings(entries)
		return wikifuse.Map(ParseRelationships(entries)), ""
	case wikifuse.KindText:
		return wikifuse.Map(ParseRelationships(strings.FieldsFunc(v.Text, func(r rune) bool {
			return r == ';' || r == '\n'
		}))), ""
	}
	return wikifuse.Map(ParseRelationships(v.List)), ""
}

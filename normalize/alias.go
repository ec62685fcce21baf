package normalize

import "github.com/fwojciec/wikifuse"

// AliasTable resolves alternative spellings to canonical values,
// case-insensitively.
type AliasTable map[string]string

// NewAliasTable builds a table from canonical -> aliases. Each canonical
// value also resolves to itself.
func NewAliasTable(entries map[string][]string) AliasTable {
	t := make(AliasTable)
	for canonical, aliases := range entries {
		t[Fold(CleanText(canonical))] = canonical
		for _, alias := range aliases {
			t[Fold(CleanText(alias))] = canonical
		}
	}
	return t
}

// Resolve returns the canonical value for s, or s unchanged.
func (t AliasTable) Resolve(s string) string {
	if canonical, ok := t[Fold(s)]; ok {
		return canonical
	}
	return s
}

func normalizeAlias(v wikifuse.Value, spec wikifuse.FieldSpec, cfg *wikifuse.SourceConfig) (wikifuse.Value, string) {
	table := NewAliasTable(cfg.Aliases[spec.Name])
	if v.Kind == wikifuse.KindList {
		items := CleanList(v.List)
		for i, item := range items {
			items[i] = table.Resolve(item)
		}
		return wikifuse.List(CleanList(items)...), ""
	}

	s := CleanText(v.Text)
	if s == "" || IsPlaceholder(s) {
		return wikifuse.Absent(), ""
	}
	return wikifuse.Text(table.Resolve(s)), ""
}

package normalize

import (
	"strings"

	"github.com/fwojciec/wikifuse"
)

// CleanList cleans every item, drops empty and placeholder items and removes
// case-insensitive duplicates keeping the first spelling seen.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = CleanText(item)
		if item == "" || IsPlaceholder(item) {
			continue
		}
		key := Fold(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// SplitList splits a scalar into list items on semicolons, commas and
// newlines.
func SplitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n'
	})
}

func listItems(v wikifuse.Value) []string {
	switch v.Kind {
	case wikifuse.KindList:
		return v.List
	case wikifuse.KindText:
		return SplitList(v.Text)
	}
	return nil
}

func normalizeList(v wikifuse.Value, _ wikifuse.FieldSpec, _ *wikifuse.SourceConfig) (wikifuse.Value, string) {
	return wikifuse.List(CleanList(listItems(v))...), ""
}

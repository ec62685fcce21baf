package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/fwojciec/wikifuse"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	citationRe     = regexp.MustCompile(`\[(?:\d+(?:\s*,\s*\d+)*|[a-z]|(?i:note \d+|citation needed|edit))\]`)
	templateRe     = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	emptyBracketRe = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	spaceBeforeRe  = regexp.MustCompile(`\s+([,.;:!?])`)
)

// placeholders are values that carry no information.
var placeholders = map[string]bool{
	"n/a":     true,
	"na":      true,
	"none":    true,
	"unknown": true,
	"-":       true,
	"?":       true,
	"tba":     true,
}

// CleanText unescapes HTML entities, removes citation markers and wiki
// templates, applies NFKC and collapses whitespace.
func CleanText(s string) string {
	s = html.UnescapeString(s)
	s = templateRe.ReplaceAllString(s, "")
	s = citationRe.ReplaceAllString(s, "")
	s = emptyBracketRe.ReplaceAllString(s, "")
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return spaceBeforeRe.ReplaceAllString(s, "$1")
}

// IsPlaceholder reports whether s is a stand-in such as "N/A" or "Unknown".
func IsPlaceholder(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}

// Fold returns the case-folded form of s used for case-insensitive
// comparison.
func Fold(s string) string {
	// Casers are stateful and cannot be shared between goroutines.
	return cases.Fold().String(s)
}

func normalizeText(v wikifuse.Value, _ wikifuse.FieldSpec, _ *wikifuse.SourceConfig) (wikifuse.Value, string) {
	var s string
	switch v.Kind {
	case wikifuse.KindList:
		s = CleanText(strings.Join(v.List, ", "))
	case wikifuse.KindMap:
		s = CleanText(v.String())
	default:
		s = CleanText(v.Text)
	}
	if IsPlaceholder(s) {
		return wikifuse.Absent(), ""
	}
	return wikifuse.Text(s), ""
}

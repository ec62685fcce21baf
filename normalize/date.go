package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/fwojciec/wikifuse"
)

// DefaultDateLayouts are tried after any layouts configured for a source.
// Numeric dates are day-first; month-year dates resolve to the first day of
// the month.
var DefaultDateLayouts = []string{
	wikifuse.DateLayout,
	time.RFC3339,
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006/01/02",
	"02/01/2006",
	"2006.01.02",
	"January 2006",
	"Jan 2006",
}

var (
	ordinalRe = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\b`)
	yearRe    = regexp.MustCompile(`\b\d{4}\b`)
)

// ParseDate parses s with the given layouts followed by DefaultDateLayouts,
// then by free-form date recognition. Dates without a four-digit year are
// rejected. The result is midnight UTC.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	s = ordinalRe.ReplaceAllString(CleanText(s), "$1")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return time.Time{}, false
	}
	for _, layouts := range [][]string{layouts, DefaultDateLayouts} {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return midnight(t), true
			}
		}
	}
	if !yearRe.MatchString(s) {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return midnight(t), true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeDate(v wikifuse.Value, _ wikifuse.FieldSpec, cfg *wikifuse.SourceConfig) (wikifuse.Value, string) {
	s := v.Text
	if v.Kind == wikifuse.KindList && len(v.List) > 0 {
		s = v.List[0]
	}
	if t, ok := ParseDate(s, cfg.DateFormats); ok {
		return wikifuse.Date(t), ""
	}
	return wikifuse.Absent(), s
}

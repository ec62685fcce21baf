package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/fwojciec/wikifuse"
)

var (
	trailingParenRe = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	parenRe         = regexp.MustCompile(`\s*\([^()]*\)`)
	numberRe        = regexp.MustCompile(`\d[\d,.]*`)
	digitsRe        = regexp.MustCompile(`\d+`)
)

var builtinTransforms = map[string]Transform{
	"clean_character_name": func(s string, _ *wikifuse.RawRecord) string { return CleanCharacterName(s) },
	"parse_bounty":         func(s string, _ *wikifuse.RawRecord) string { return ParseBounty(s) },
	"first_number":         func(s string, _ *wikifuse.RawRecord) string { return digitsRe.FindString(s) },
	"strip_parentheses":    func(s string, _ *wikifuse.RawRecord) string { return parenRe.ReplaceAllString(s, "") },
	"lowercase":            func(s string, _ *wikifuse.RawRecord) string { return strings.ToLower(s) },
	"absolute_url":         absoluteURL,
}

// CleanCharacterName removes a page-title suffix ("Luffy | One Piece Wiki")
// and a trailing disambiguation ("Luffy (character)").
func CleanCharacterName(s string) string {
	if before, _, ok := strings.Cut(s, " | "); ok {
		s = before
	}
	return strings.TrimSpace(trailingParenRe.ReplaceAllString(s, ""))
}

// ParseBounty returns the largest amount in s as plain digits, e.g.
// "3,000,000,000 (current); 1,500,000,000 (former)" gives "3000000000".
// Returns "" when s has no number.
func ParseBounty(s string) string {
	var best string
	for _, m := range numberRe.FindAllString(s, -1) {
		digits := strings.TrimLeft(strings.NewReplacer(",", "", ".", "").Replace(m), "0")
		if digits == "" {
			digits = "0"
		}
		if len(digits) > len(best) || (len(digits) == len(best) && digits > best) {
			best = digits
		}
	}
	return best
}

func absoluteURL(s string, rec *wikifuse.RawRecord) string {
	ref, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return s
	}
	base, err := url.Parse(rec.SourceURL)
	if err != nil {
		return s
	}
	return base.ResolveReference(ref).String()
}

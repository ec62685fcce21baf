package normalize

import (
	"strings"
	"unicode"

	"github.com/fwojciec/wikifuse"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug folds case, strips diacritics and joins alphanumeric runs with "-":
// "Monkey D. Luffy" and "MONKEY D LUFFY" both give "monkey-d-luffy".
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = Fold(stripped)

	var b strings.Builder
	dash := false
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// NewEntityKey derives the entity key of a canonical name within a source.
// Returns "" when the name has no alphanumeric content.
func NewEntityKey(sourceKey, name string) wikifuse.EntityKey {
	slug := Slug(name)
	if slug == "" {
		return ""
	}
	return wikifuse.EntityKey(sourceKey + "/" + slug)
}

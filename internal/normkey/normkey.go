// Package normkey builds comparison-friendly keys from human-entered
// labels. Norm group names, category folders and instrument titles all
// arrive with inconsistent casing, accents and spacing; every lookup in
// the scoring path funnels through Key so the matching semantics stay
// identical everywhere.
package normkey

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripAccents removes diacritical marks: "Comunicação" -> "Comunicacao".
func StripAccents(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseWhitespace trims and collapses runs of whitespace to single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Key normalizes a label for matching: collapse whitespace, lowercase,
// strip accents. "  CLÍNICO " and "clinico" produce the same key.
func Key(s string) string {
	return StripAccents(strings.ToLower(CollapseWhitespace(s)))
}

// Slugify converts an arbitrary label into a stable ASCII identifier:
// "Faceta: Ansiedade Geral" -> "faceta_ansiedade_geral".
func Slugify(s string) string {
	s = StripAccents(CollapseWhitespace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '_' })
	return strings.ToLower(strings.Join(parts, "_"))
}

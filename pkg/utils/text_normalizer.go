package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldAccents removes combining marks so "RAZÕES" and "RAZOES" compare equal.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeLabel folds accents, lower-cases and trims a response label.
func NormalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(FoldAccents(s)))
}

// Tokenize splits text into lower-case, accent-free alphanumeric tokens.
func Tokenize(s string) []string {
	folded := strings.ToLower(FoldAccents(s))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Package matcher resolves free-text shopping list entries to catalog
// products using a layered scoring model. Matching is pure computation;
// the only external data it touches is the product list and the
// cross-store minimum prices used for tie-breaks.
package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics strips accents so "crème fraîche" and "creme fraiche"
// compare equal.
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Normalize lowercases, strips diacritics and punctuation, and collapses
// whitespace. All scoring compares normalized forms.
func Normalize(s string) string {
	s = strings.ToLower(RemoveDiacritics(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Words splits a normalized string into its word list.
func Words(s string) []string {
	return strings.Fields(Normalize(s))
}

// significantWords returns words longer than two characters. Short
// fragments like "of" and "oz" generate too many false positives.
func significantWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

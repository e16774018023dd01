package score

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a topic label for comparison: diacritics stripped,
// lowercased, punctuation collapsed to spaces and every token stemmed.
// "Émotional Disorders" and "emotional disorder" normalize identically.
func Normalize(label string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), label)
	if err != nil {
		folded = label
	}
	folded = strings.ToLower(folded)

	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		tokens[i] = english.Stem(tok, true)
	}
	return strings.Join(tokens, " ")
}

// normalizeSet normalizes labels into a lookup set, skipping empty results
func normalizeSet(labels []string) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		if n := Normalize(l); n != "" {
			set[n] = true
		}
	}
	return set
}

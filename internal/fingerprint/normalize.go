package fingerprint

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are filler tokens that carry no descriptive signal.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "with": true, "and": true,
	"or": true, "in": true, "on": true, "at": true, "to": true, "of": true,
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "café" -> "cafe").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Normalize canonicalizes a descriptive token set: lowercase, diacritics and
// punctuation stripped, stop words removed, tokens of length <= 2 removed,
// deduplicated and sorted. The result is order-independent so two token lists
// describing the same scene compare equal regardless of source ordering.
func Normalize(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string

	for _, tok := range tokens {
		tok = RemoveDiacritics(strings.ToLower(tok))
		tok = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, tok)

		if len(tok) <= 2 || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}

	sort.Strings(out)
	return out
}

// Jaccard computes |A∩B| / |A∪B| over two token sets.
// Returns 0 when either set is empty.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

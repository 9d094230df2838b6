// Package bookkey defines the canonical normalization for book titles.
//
// A title is the sole key correlating a downloaded text file, its index
// partition, and the conversation's active-book pointer. Every place a
// title is used as a key must go through Normalize (or Filename for the
// raw-text store) so the three views never drift apart.
package bookkey

import (
	"strings"
	"unicode"
)

// Normalize folds a display title into its canonical key form:
// lowercase, punctuation removed, runs of whitespace collapsed to a
// single space, leading/trailing whitespace trimmed.
//
// "A Christmas Carol." and "a  christmas carol" normalize identically.
func Normalize(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastSpace := true // swallow leading whitespace
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// fold punctuation out entirely
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// Filename maps a title to its raw-text storage filename.
// The canonical key with spaces replaced by underscores, plus ".txt".
func Filename(title string) string {
	return strings.ReplaceAll(Normalize(title), " ", "_") + ".txt"
}

// Same reports whether two titles refer to the same book, using the
// asymmetric containment check: either normalized title is a non-empty
// substring of the other. This handles partial mentions such as
// "Christmas Carol" for "A Christmas Carol" without edit-distance
// machinery.
func Same(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

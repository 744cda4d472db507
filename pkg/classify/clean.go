// Package classify decides whether a displayed species label is a species the user has not
// recorded yet, and annotates the element that shows it.
package classify

import (
	"regexp"
	"strings"
)

var (
	parenBlock = regexp.MustCompile(`\([^()]*\)`)
	// one capitalized word followed by one or two lowercase, possibly hyphenated, words
	sciSuffix  = regexp.MustCompile(`\s+[A-Z][a-z]+(?:\s+[a-z]+(?:-[a-z]+)*){1,2}\s*$`)
	whitespace = regexp.MustCompile(`\s+`)
)

// CleanName strips a displayed label down to the common name used as lookup key:
// parenthesized blocks, asterisks and a trailing scientific name are removed.
//
//	CleanName("Emu(鸸鹋) Dromaius novaehollandiae*") == "Emu"
func CleanName(raw string) string {
	s := raw
	for {
		next := parenBlock.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	s = strings.ReplaceAll(s, "*", "")
	s = whitespace.ReplaceAllString(s, " ")
	s = sciSuffix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Excluded reports whether a clean name is an uncertain, hybrid or slash entry. These are
// never classified as unseen.
func Excluded(clean string) bool {
	return strings.HasSuffix(clean, " sp.") ||
		strings.Contains(clean, " x ") ||
		strings.Contains(clean, " X ") ||
		strings.Contains(clean, "/")
}

// Package textnorm normalizes free text before fuzzy comparison.
// Titles and artist names arrive from four platforms with inconsistent
// Unicode forms, quote characters, and bracket styles.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var apostrophes = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"`", "'", // grave accent
	"´", "'", // acute accent
)

// isBracketOrDash reports whether r is one of the punctuation runes that
// gets replaced with a space: brackets of any flavor and hyphen-like dashes.
func isBracketOrDash(r rune) bool {
	switch r {
	case '(', ')', '[', ']', '{', '}', '-', '–', '—':
		return true
	}
	return false
}

// Normalize applies NFKC composition, unifies apostrophe variants, replaces
// brackets and dashes with spaces, lowercases, and collapses whitespace.
// Empty input yields an empty string; Normalize never fails.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = norm.NFKC.String(text)
	text = apostrophes.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isBracketOrDash(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(strings.ToLower(b.String())), " ")
}

// NormalizeNoSpace is Normalize with all spaces removed. Used for strict
// containment checks where whitespace placement differs across platforms.
func NormalizeNoSpace(text string) string {
	return strings.ReplaceAll(Normalize(text), " ", "")
}

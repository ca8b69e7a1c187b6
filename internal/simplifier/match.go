package simplifier

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// isWordRune reports whether r can be part of a word token. Any numeric
// rune counts, not only decimal digits, so "tablet²" and "Ⅻtablet" stay whole.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// wordMatches returns the byte ranges of whole-word occurrences of t in s.
// RE2's \b only understands ASCII, so the boundary check is done here on
// runes to keep "hypertensionä" from matching.
func wordMatches(t term, s string) [][]int {
	var out [][]int
	for _, loc := range t.re.FindAllStringIndex(s, -1) {
		if loc[0] > 0 {
			if r, _ := utf8.DecodeLastRuneInString(s[:loc[0]]); isWordRune(r) {
				continue
			}
		}
		if loc[1] < len(s) {
			if r, _ := utf8.DecodeRuneInString(s[loc[1]:]); isWordRune(r) {
				continue
			}
		}
		out = append(out, loc)
	}
	return out
}

// replaceWord rewrites every whole-word occurrence of t in s and returns the
// new text and the number of replacements made.
func replaceWord(t term, s string) (string, int) {
	locs := wordMatches(t, s)
	if len(locs) == 0 {
		return s, 0
	}
	var b strings.Builder
	b.Grow(len(s) + len(locs)*len(t.plain))
	last := 0
	for _, loc := range locs {
		b.WriteString(s[last:loc[0]])
		b.WriteString(t.plain)
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String(), len(locs)
}

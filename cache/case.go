package cache

import (
	"strings"
	"unicode"
)

// segment normalizes a namespace or client id into one key and tag segment:
// lower snake case with letters and digits only. Runs of anything else,
// KeySeparator and ':' included, become a single underscore.
func segment(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + 4)

	pending := false
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && startsWord(runes, i) {
				pending = true
			}
			r = unicode.ToLower(r)
		case unicode.IsLower(r) || unicode.IsDigit(r):
		default:
			pending = true
			continue
		}

		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	return b.String()
}

// startsWord reports whether the upper case rune at i opens a new word, as in
// "primarySite" or the "C" of "HTTPClient".
func startsWord(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}
	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

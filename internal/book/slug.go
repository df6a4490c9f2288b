package book

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases, strips diacritics, and collapses non-alphanumeric
// runs into single hyphens. Returns "" when nothing usable remains.
func Slugify(s string) string {
	decomposed := norm.NFKD.String(s)

	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from decomposition, drop
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

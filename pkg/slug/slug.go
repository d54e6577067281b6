// Package slug generates URL-safe ASCII slugs from arbitrary Unicode strings.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiHyphen = regexp.MustCompile(`-{2,}`)

// Make converts a name into a lowercase ASCII slug: accents are
// stripped via NFD decomposition, anything that is not a letter or
// digit becomes a hyphen, and hyphen runs are collapsed.
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return '-'
	}, folded)

	folded = multiHyphen.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-")
}

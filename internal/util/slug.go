// Package util provides slug and tag normalization helpers.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9]+`)
	slugPatternRe     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
)

// Letters that do not decompose into an ASCII base plus a combining mark.
var foldMap = map[rune]string{
	'ı': "i", 'ø': "o", 'Ø': "o", 'ł': "l", 'Ł': "l",
	'đ': "d", 'Đ': "d", 'ß': "ss", 'æ': "ae", 'Æ': "ae",
	'œ': "oe", 'Œ': "oe", 'þ': "th", 'Þ': "th",
}

// foldASCII strips diacritics ("Fotoğrafçılık" -> "Fotografcilik").
func foldASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if rep, ok := foldMap[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, b.String())
	if err != nil {
		return b.String()
	}
	return out
}

// Slugify converts a display name to a URL-safe slug.
//
//	"Film & TV"          -> "film-and-tv"
//	"Fotoğrafçılık"      -> "fotografcilik"
//	"Sci-Fi/Fantasy"     -> "sci-fi-fantasy"
//	"🎸 Music!"          -> "music"
func Slugify(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")
	s = cases.Lower(language.Und).String(foldASCII(s))
	s = nonAlphanumericRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValidSlug reports whether s is already a canonical slug.
func ValidSlug(s string) bool {
	return slugPatternRe.MatchString(s)
}

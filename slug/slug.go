// Package slug builds URL-safe slugs for posts, uploads and image titles.
package slug

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLen = 100

// Make converts s to a lowercase, hyphen separated ASCII slug.
// Accented letters are folded ("Löyly" -> "loyly").
func Make(s string) string {
	s = strings.ToLower(strings.TrimSpace(fold(s)))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > maxLen {
		out = strings.TrimRight(out[:maxLen], "-")
	}
	return out
}

// FromFilename slugs the last path segment of a file name or URL, without
// query string or extension.
func FromFilename(name string) string {
	if u, err := url.Parse(name); err == nil && u.Path != "" {
		name = u.Path
	}
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return Make(strings.TrimSuffix(base, path.Ext(base)))
}

// Title returns the first non-empty of title and alt, falling back to a slug
// of the image file name.
func Title(title, alt, imageURL string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if a := strings.TrimSpace(alt); a != "" {
		return a
	}
	return FromFilename(imageURL)
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// internal/routing/slug.go
//
// Slug and path helpers for the render route.
//
//   - ValidSlug(s)         reports whether s is already in canonical slug form.
//   - BuildPath(prefix, s) joins prefix and slug with a single "/".
//
// Canonical slugs are lower-case ASCII a-z, 0-9 and "-", with no leading,
// trailing, or doubled dash and at most 128 bytes (the landing_page.slug
// column width).  The dashboard owns slug creation; the edge only checks.
package routing

import "strings"

// MaxSlugLen matches landing_page.slug.
const MaxSlugLen = 128

// ValidSlug reports whether s can be used verbatim in a render path.
func ValidSlug(s string) bool {
	if s == "" || len(s) > MaxSlugLen {
		return false
	}
	lastWasDash := true // forbids a leading dash
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			lastWasDash = false
		case c == '-':
			if lastWasDash {
				return false
			}
			lastWasDash = true
		default:
			return false
		}
	}
	return !lastWasDash
}

// BuildPath joins prefix + slug ensuring exactly one leading slash and no
// duplicate separators.
func BuildPath(prefix, slug string) string {
	prefix = strings.Trim(prefix, "/")
	slug = strings.Trim(slug, "/")

	switch {
	case prefix == "" && slug == "":
		return "/"
	case prefix == "":
		return "/" + slug
	case slug == "":
		return "/" + prefix
	default:
		return "/" + prefix + "/" + slug
	}
}

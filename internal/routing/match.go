// internal/routing/match.go
//
// Paths that never reach domain resolution.
//
// API routes, framework and static asset prefixes, and anything that looks
// like a file ("/favicon.ico", "/img/hero.webp") are served identically on
// every host, so the edge skips the binding lookup for them.
package routing

import "strings"

// DefaultBypassPrefixes is used when configuration leaves the list empty.
var DefaultBypassPrefixes = []string{"/api/", "/_next/", "/_static/"}

// Matcher decides which request paths bypass tenant resolution.
type Matcher struct {
	Prefixes []string
}

// NewMatcher returns a Matcher for prefixes, falling back to the defaults.
func NewMatcher(prefixes []string) Matcher {
	if len(prefixes) == 0 {
		prefixes = DefaultBypassPrefixes
	}
	return Matcher{Prefixes: prefixes}
}

// Bypass reports whether path skips resolution.
func (m Matcher) Bypass(path string) bool {
	for _, p := range m.Prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
		// "/api" itself, not only "/api/..."
		if strings.HasSuffix(p, "/") && path == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return hasFileExt(path)
}

// hasFileExt checks the last path segment for "<name>.<ext>".
func hasFileExt(path string) bool {
	seg := path
	if i := strings.LastIndexByte(path, '/'); i != -1 {
		seg = path[i+1:]
	}
	dot := strings.LastIndexByte(seg, '.')
	return dot > 0 && dot < len(seg)-1
}

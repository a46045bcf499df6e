// internal/tenant/host.go
//
// Host header → canonical hostname.
//
// Context
// -------
// Bindings and the root domain are stored lower-case and port-less.  The
// normaliser turns whatever arrives in `Host` into that form, and maps the
// local development host onto the configured root domain so a laptop at
// "localhost:3000" (or "mycampaign.localhost:3000") walks exactly the same
// resolution path as production.
//
// Notes
// -----
//   - An absent Host header is fatal for the request.  The resolver never
//     runs a lookup with an empty key.
//   - No logging here; the middleware decides what to log.
package tenant

import (
	"errors"
	"net"
	"strings"
)

var (
	ErrMissingHost   = errors.New("missing host header")
	ErrMalformedHost = errors.New("malformed host header")
)

const maxHostLen = 255

// Normalizer canonicalises raw Host headers.  The zero value only
// lower-cases and strips ports.
type Normalizer struct {
	RootDomain string // "app.example.com"
	DevHost    string // "localhost:3000"; empty disables substitution
}

// NewNormalizer returns a Normalizer with both inputs already canonical.
func NewNormalizer(rootDomain, devHost string) Normalizer {
	return Normalizer{
		RootDomain: canonicalRoot(rootDomain),
		DevHost:    strings.ToLower(strings.TrimSpace(devHost)),
	}
}

// Normalize returns the canonical hostname for raw.
func (n Normalizer) Normalize(raw string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(raw))
	if h == "" {
		return "", ErrMissingHost
	}

	if sub, ok := n.devSubstitute(h); ok {
		h = sub
	} else {
		var err error
		if h, err = stripPort(h); err != nil {
			return "", err
		}
		// DevHost configured without a port still matches "localhost:8080".
		if sub, ok := n.devSubstitute(h); ok {
			h = sub
		}
	}

	h = strings.TrimSuffix(h, ".")
	if !validHost(h) {
		return "", ErrMalformedHost
	}
	return h, nil
}

func (n Normalizer) devSubstitute(h string) (string, bool) {
	if n.DevHost == "" || n.RootDomain == "" {
		return "", false
	}
	if h == n.DevHost {
		return n.RootDomain, true
	}
	if prefix, ok := strings.CutSuffix(h, "."+n.DevHost); ok && prefix != "" {
		return prefix + "." + n.RootDomain, true
	}
	return "", false
}

// stripPort removes ":port" and IPv6 brackets.  A bare IPv6 literal
// without brackets is not a valid Host header.
func stripPort(h string) (string, error) {
	if strings.HasPrefix(h, "[") {
		if host, port, err := net.SplitHostPort(h); err == nil && validPort(port) {
			return host, nil
		}
		if strings.HasSuffix(h, "]") {
			return h[1 : len(h)-1], nil
		}
		return "", ErrMalformedHost
	}
	switch strings.Count(h, ":") {
	case 0:
		return h, nil
	case 1:
		host, port, err := net.SplitHostPort(h)
		if err != nil || !validPort(port) {
			return "", ErrMalformedHost
		}
		return host, nil
	default:
		return "", ErrMalformedHost
	}
}

func validPort(p string) bool {
	if p == "" || len(p) > 5 {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}

func validHost(h string) bool {
	if h == "" || len(h) > maxHostLen {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '.', c == '_':
		default:
			return net.ParseIP(h) != nil
		}
	}
	return true
}

func canonicalRoot(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
}

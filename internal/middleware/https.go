// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ForceHTTPS wraps h.  When enabled and the request arrived over plain HTTP
// (directly or per X-Forwarded-Proto from the load balancer), the wrapper
// issues a 308 Permanent Redirect to the HTTPS version of the same URL.
// Loopback hosts and devHost (and its subdomains) are never redirected.
func ForceHTTPS(enabled bool, devHost string, h http.Handler) http.Handler {
	if !enabled {
		return h
	}
	devHost = strings.ToLower(devHost)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isHTTPS(r) || exempt(stripPort(r.Host), devHost) {
			h.ServeHTTP(w, r)
			return
		}
		target := "https://" + r.Host + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func exempt(host, devHost string) bool {
	host = strings.ToLower(host)
	if host == "" || host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	if devHost == "" {
		return false
	}
	return host == devHost || strings.HasSuffix(host, "."+devHost)
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		return strings.Trim(host, "[]")
	}
	return strings.Trim(h, "[]")
}

// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects a baseline set of headers on every response:
//
//   • Strict-Transport-Security  (2 years)
//   • X-Frame-Options            click-jacking defence
//   • X-Content-Type-Options     MIME-sniffing defence
//   • Referrer-Policy            drops path/query from Referer
//   • Permissions-Policy         disables powerful features by default
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP, since anything added after the
//   handler has written the body never reaches the client.  Handlers may
//   still override any of them.
// • No Content-Security-Policy here: tenant pages embed third-party widgets,
//   so the render handler owns that header.
// • HSTS omits includeSubDomains because tenant subdomains may not all be
//   on TLS yet.

package middleware

import "net/http"

var securityHeaders = [...][2]string{
	{"Strict-Transport-Security", "max-age=63072000"},
	{"X-Frame-Options", "SAMEORIGIN"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
}

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range securityHeaders {
			if h.Get(kv[0]) == "" {
				h.Set(kv[0], kv[1])
			}
		}
		next.ServeHTTP(w, r)
	})
}

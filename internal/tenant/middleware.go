// internal/tenant/middleware.go
//
// Edge middleware: normalise → classify → rewrite, pass through, or delegate.
//
// Context
// -------
// Installed outermost on the platform router.  For every request that is not
// an API, asset, or file path it:
//
//  1. Canonicalises Host (400 when absent or malformed).
//  2. Resolves the host against the binding cache.
//  3. Acts on the Decision:
//     - Platform, or Unbound under the passthrough policy: session refresh,
//       then the platform router.
//     - TenantRewrite: internal rewrite of "/" to the render route, query
//       untouched.
//     - TenantPassthroughPath: forwarded unchanged.  Custom domains serve a
//       single page; sub-paths fall to normal routing.
//     - Unbound under the notfound policy: 404 at the edge.
//
// The Decision is stored on the request context for downstream handlers.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/pageedge/internal/metrics"
	"github.com/yanizio/pageedge/internal/routing"
)

// HeaderTenantHost is set on rewritten requests.  Any inbound value is
// discarded so clients cannot spoof it.
const HeaderTenantHost = "X-Edge-Tenant-Host"

// UnboundPolicy selects the response for hosts with no servable binding.
type UnboundPolicy string

const (
	UnboundPassthrough UnboundPolicy = "passthrough"
	UnboundNotFound    UnboundPolicy = "notfound"
)

// ParseUnboundPolicy maps a config string to a policy.  Empty means
// passthrough.
func ParseUnboundPolicy(s string) (UnboundPolicy, error) {
	switch UnboundPolicy(s) {
	case "", UnboundPassthrough:
		return UnboundPassthrough, nil
	case UnboundNotFound:
		return UnboundNotFound, nil
	}
	return "", fmt.Errorf("unknown unbound policy %q", s)
}

// SessionRefresher is the platform-path session collaborator.  It may set
// cookies on w and returns the request the pipeline should continue with.
type SessionRefresher interface {
	Refresh(w http.ResponseWriter, r *http.Request) *http.Request
}

// MiddlewareOptions bundles the request-time collaborators.
type MiddlewareOptions struct {
	Normalizer Normalizer
	Matcher    routing.Matcher
	Unbound    UnboundPolicy
}

// Middleware returns the edge handler wrapper.  sess may be nil.
func Middleware(res *Resolver, sess SessionRefresher, opts MiddlewareOptions) func(http.Handler) http.Handler {
	if opts.Unbound == "" {
		opts.Unbound = UnboundPassthrough
	}
	if opts.Matcher.Prefixes == nil {
		opts.Matcher = routing.NewMatcher(nil)
	}

	platform := func(next http.Handler, w http.ResponseWriter, r *http.Request) {
		if sess != nil {
			r = sess.Refresh(w, r)
		}
		next.ServeHTTP(w, r)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(HeaderTenantHost)

			if opts.Matcher.Bypass(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			host, err := opts.Normalizer.Normalize(r.Host)
			if err != nil {
				zap.L().Debug("edge rejected host",
					zap.String("host", r.Host), zap.Error(err))
				metrics.Resolutions.WithLabelValues("rejected").Inc()
				status := http.StatusBadRequest
				http.Error(w, http.StatusText(status), status)
				return
			}

			d := res.Resolve(r.Context(), host, r.URL.Path, r.URL.RawQuery)
			metrics.Resolutions.WithLabelValues(d.Kind.String()).Inc()
			if d.FailedOpen() {
				metrics.LookupErrors.Inc()
				zap.L().Warn("binding lookup failed, serving platform",
					zap.String("host", host),
					zap.Bool("timeout", errors.Is(d.Err, context.DeadlineExceeded)),
					zap.Error(d.Err))
			} else {
				zap.L().Debug("edge resolve",
					zap.String("host", host),
					zap.String("path", r.URL.Path),
					zap.Stringer("decision", d.Kind))
			}

			ctx := WithDecision(r.Context(), d)

			switch d.Kind {
			case TenantRewrite:
				next.ServeHTTP(w, rewrite(r.Clone(ctx), d))
			case TenantPassthroughPath:
				next.ServeHTTP(w, r.WithContext(ctx))
			case Unbound:
				if opts.Unbound == UnboundNotFound {
					http.NotFound(w, r)
					return
				}
				platform(next, w, r.WithContext(ctx))
			default:
				platform(next, w, r.WithContext(ctx))
			}
		})
	}
}

// rewrite points a cloned request at the render route.  The client-visible
// URL does not change; only routing inside this process does.
func rewrite(r *http.Request, d Decision) *http.Request {
	original := r.URL.Path
	r.URL.Path = d.Path
	r.URL.RawPath = ""
	r.RequestURI = d.Target
	r.Header.Set(HeaderTenantHost, d.Host)
	zap.L().Debug("tenant rewrite",
		zap.String("host", d.Host),
		zap.String("from", original),
		zap.String("to", d.Target))
	return r
}

// internal/tenant/resolver.go
//
// Platform-versus-tenant classification.
//
// Context
// -------
// Resolve is a pure function of (canonical host, path, binding state).  It
// performs at most one bounded, non-retrying binding lookup and never writes.
// Retries, if any, belong to the collaborator behind Getter.
//
// Decision table
// --------------
//
//	host == root domain                         → Platform
//	lookup failed or timed out                  → Platform (fail open, Err set)
//	no binding, or bound page not published     → Unbound
//	bound + published, path "/"                 → TenantRewrite
//	bound + published, any other path           → TenantPassthroughPath
package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yanizio/pageedge/internal/binding"
	"github.com/yanizio/pageedge/internal/routing"
)

// Kind enumerates routing outcomes.
type Kind int

const (
	Platform Kind = iota
	TenantRewrite
	TenantPassthroughPath
	Unbound
)

func (k Kind) String() string {
	switch k {
	case Platform:
		return "platform"
	case TenantRewrite:
		return "tenant_rewrite"
	case TenantPassthroughPath:
		return "tenant_passthrough"
	case Unbound:
		return "unbound"
	default:
		return "unknown"
	}
}

// Decision is the resolver's answer for one request.
type Decision struct {
	Kind    Kind
	Host    string          // canonical host that was resolved
	Path    string          // TenantRewrite: render route path
	Target  string          // TenantRewrite: Path plus "?query" when present
	Binding *binding.Record // set for both tenant kinds
	Err     error           // set when Platform was chosen by failing open
}

// FailedOpen reports whether the decision fell back to Platform because the
// lookup did not answer.
func (d Decision) FailedOpen() bool { return d.Kind == Platform && d.Err != nil }

// Getter answers binding lookups.  *Cache implements it; Uncached adapts a
// raw Lookup for tools that must bypass the cache.
type Getter interface {
	Get(ctx context.Context, host string) (*binding.Record, error)
}

// Uncached wraps l so every call hits storage.
func Uncached(l Lookup) Getter { return uncached{l} }

type uncached struct{ l Lookup }

func (u uncached) Get(ctx context.Context, host string) (*binding.Record, error) {
	rec, err := u.l.ByHost(ctx, host)
	if err == nil && rec == nil {
		return nil, binding.ErrNotFound
	}
	return rec, err
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	RootDomain    string
	RenderPrefix  string        // "/p" → "/p/<slug>"
	LookupTimeout time.Duration // caller-side bound on the whole lookup
}

// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	src     Getter
	root    string
	prefix  string
	timeout time.Duration
}

// NewResolver returns a Resolver over src.
func NewResolver(src Getter, opts ResolverOptions) *Resolver {
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{
		src:     src,
		root:    canonicalRoot(opts.RootDomain),
		prefix:  opts.RenderPrefix,
		timeout: timeout,
	}
}

// RootDomain returns the canonical root domain.
func (r *Resolver) RootDomain() string { return r.root }

// IsRoot reports whether host is the platform's own domain.
func (r *Resolver) IsRoot(host string) bool {
	return strings.EqualFold(strings.TrimSuffix(host, "."), r.root)
}

// Resolve classifies one request.  host must come from Normalizer.
func (r *Resolver) Resolve(ctx context.Context, host, path, rawQuery string) Decision {
	if r.IsRoot(host) {
		return Decision{Kind: Platform, Host: host}
	}

	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := r.src.Get(lctx, host)
	switch {
	case errors.Is(err, binding.ErrNotFound):
		return Decision{Kind: Unbound, Host: host}
	case err != nil:
		return Decision{Kind: Platform, Host: host, Err: err}
	case !rec.Servable():
		// Draft content must be indistinguishable from no binding.
		return Decision{Kind: Unbound, Host: host}
	}

	if path != "" && path != "/" {
		return Decision{Kind: TenantPassthroughPath, Host: host, Binding: rec}
	}

	target := routing.BuildPath(r.prefix, rec.Slug)
	d := Decision{Kind: TenantRewrite, Host: host, Path: target, Target: target, Binding: rec}
	if rawQuery != "" {
		d.Target = target + "?" + rawQuery
	}
	return d
}

// context.go stores the routing Decision on the request context so platform
// handlers can tell a rewritten tenant request from a direct hit.
package tenant

import "context"

type ctxKey struct{}

// WithDecision returns a copy of ctx carrying d.
func WithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, ctxKey{}, d)
}

// FromContext returns the Decision stored by Middleware.
func FromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(ctxKey{}).(Decision)
	return d, ok
}

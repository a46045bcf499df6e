// internal/auth/context.go
//
// Request-scoped identity set by the platform session refresh.
//
// Usage
// -----
//
//	ctx = auth.WithUser(ctx, 123)   // session.Refresher, after lookup
//	id, ok := auth.UserID(ctx)      // platform handlers
//
// Anonymous requests carry nothing; UserID then reports ok == false.
package auth

import "context"

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying userID.
func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID extracts the user id stored by WithUser.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userKey{}).(int64)
	return id, ok
}

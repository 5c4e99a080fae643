package auth

import "context"

// Identity is the validated claim set attached to an authenticated request.
type Identity struct {
	UserID int64
	Email  string
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || id.UserID < 1 {
		return Identity{}, false
	}
	return id, true
}

package auth

import "context"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentity sets the Identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity in the context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok
}

// HasRole checks the role of the identity in ctx
func HasRole(ctx context.Context, role UserRole) bool {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	return UserRole(identity.Role) == role
}

// IsAtLeast checks if the identity in ctx meets the minimum role
func IsAtLeast(ctx context.Context, minRole UserRole) bool {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	return UserRole(identity.Role).IsAtLeast(minRole)
}

// Package authctx carries the authenticated caller identity through request contexts.
package authctx

import (
	"context"
	"strings"
)

// Role describes what the caller may do inside a room.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID      string
	Role        Role
	LegacyTiers []string
}

type identityKey struct{}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity, if set.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || strings.TrimSpace(id.UserID) == "" {
		return Identity{}, false
	}
	return id, true
}

// IsAnonymous reports whether the context carries no authenticated caller.
func IsAnonymous(ctx context.Context) bool {
	_, ok := IdentityFromContext(ctx)
	return !ok
}

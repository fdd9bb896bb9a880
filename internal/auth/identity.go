package auth

import "context"

// Identity is the authenticated caller as seen by the core packages. Transports
// resolve it (cookie, bearer token, gRPC metadata) and put it in the context.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity; ok is false for anonymous callers.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// UserIDFrom is IdentityFrom reduced to the user id, "" when anonymous.
func UserIDFrom(ctx context.Context) string {
	id, _ := IdentityFrom(ctx)
	return id.UserID
}

// Package shared holds cross-cutting request plumbing: the session identity
// attached to each request and its context accessors.
package shared

import "context"

// Identity is the per-request tenant identity resolved from the session
// cookie. AccessToken is the storefront admin token carried by the session
// collaborator; the engine reads it, never writes it.
type Identity struct {
	SessionID   string
	Shop        string
	AccessToken string
}

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// ContextWithIdentity attaches the resolved identity to the context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the request identity, or nil when the request
// is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

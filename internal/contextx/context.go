package contextx

import "context"

// Key is a private type to avoid collisions in request context keys.
type Key string

// IdentityKey is the context key used to store the authenticated caller.
const IdentityKey Key = "identity"

// RequestMetaKey is the context key used to store the caller's address and agent.
const RequestMetaKey Key = "requestMeta"

// Identity is the decoded session credential exposed to handlers.
type Identity struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

// RequestMeta is the evidence captured from the transport for audit fields.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// IdentityFrom returns the authenticated caller, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(Identity)
	return id, ok && id.UserID != ""
}

// RequestMetaFrom returns the captured request metadata or the zero value.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(RequestMetaKey).(RequestMeta)
	return m
}

package session

import (
	"context"
	"net/http"
)

type sessionContextKey struct{}

// WithSession adds a session to the context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext retrieves a session from the context
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	return s, ok && s != nil
}

// TenantFromRequest returns the tenant attribute of the request's session,
// or "" when there is no authenticated session.
func TenantFromRequest(r *http.Request) string {
	s, ok := FromContext(r.Context())
	if !ok || !s.IsAuthenticated() {
		return ""
	}
	return s.TenantID
}

package auth

import (
	"context"
	"time"

	"github.com/homestead/homestead/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// sessionContextKey is the context key for storing the Session.
	sessionContextKey contextKey = "session"
)

// Session is the signed-in user attached to a request.
type Session struct {
	Username  string
	Access    []string
	TokenID   string
	ExpiresAt time.Time
}

// HasGroup reports whether the session grants group. Admins hold every group.
func (s *Session) HasGroup(group string) bool {
	return s != nil && model.HasGroup(s.Access, group)
}

// ContextWithSession adds a Session to the context.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext retrieves the Session from the context.
// Returns nil if not present.
func SessionFromContext(ctx context.Context) *Session {
	s, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return s
}

// MustSessionFromContext retrieves the Session from the context.
// Panics if not present (use only behind RequireSession).
func MustSessionFromContext(ctx context.Context) *Session {
	s := SessionFromContext(ctx)
	if s == nil {
		panic("session not found - ensure session middleware is applied")
	}
	return s
}

// UsernameFromContext returns the signed-in username or "".
func UsernameFromContext(ctx context.Context) string {
	s := SessionFromContext(ctx)
	if s == nil {
		return ""
	}
	return s.Username
}

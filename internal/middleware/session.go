package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/homestead/homestead/internal/auth"
)

// SessionCookie is the cookie carrying the session token for browser clients.
const SessionCookie = "session"

// RevocationChecker reports whether a token ID was revoked by logout.
type RevocationChecker interface {
	IsSessionRevoked(ctx context.Context, tokenID string) (bool, error)
}

// SessionConfig holds configuration for the session middleware.
type SessionConfig struct {
	Logger  *slog.Logger
	Manager *auth.SessionManager
	// Revocations is optional. Lookup failures allow the request.
	Revocations RevocationChecker
}

// Session attaches the signed-in user to the request when a valid token
// is present. Requests without a usable token continue anonymously.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := cfg.Manager.Validate(token)
			if err != nil {
				cfg.Logger.Debug("session rejected",
					slog.String("reason", "invalid_token"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			if cfg.Revocations != nil {
				revoked, err := cfg.Revocations.IsSessionRevoked(r.Context(), claims.ID)
				if err != nil {
					cfg.Logger.Error("session revocation check failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				} else if revoked {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := auth.ContextWithSession(r.Context(), claims.Session())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession answers 401 unless a session is attached.
// Must be applied after Session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.SessionFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireGroup answers 401 without a session and 403 unless the user
// belongs to group or is an admin.
func RequireGroup(group string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := auth.SessionFromContext(r.Context())
			if s == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}
			if !s.HasGroup(group) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions. Required group: "+group)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads "Authorization: Bearer <token>", then the session cookie.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

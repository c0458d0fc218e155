package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// StaticPrefix is the path prefix of served media, which browsers may cache.
const StaticPrefix = "/static/"

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS.
	IsDevelopment bool
	// StaticMaxAge is the Cache-Control max-age in seconds for StaticPrefix
	// paths. Zero disables caching.
	StaticMaxAge int
}

// DefaultSecurityConfig caches media for a week.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{StaticMaxAge: 7 * 24 * 3600}
}

// securityHeaders builds the fixed header sets for API and media responses.
func securityHeaders(cfg SecurityConfig) (api, static http.Header) {
	common := http.Header{}
	common.Set("X-Content-Type-Options", "nosniff")
	common.Set("X-Frame-Options", "DENY")
	common.Set("X-XSS-Protection", "0")
	common.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	common.Set("Cross-Origin-Opener-Policy", "same-origin")
	common.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")
	if !cfg.IsDevelopment {
		common.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}

	api = common.Clone()
	api.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	api.Set("Cross-Origin-Resource-Policy", "same-origin")
	api.Set("Cache-Control", "no-store")

	// Recipe images are embedded by the frontend, which may live on another origin.
	static = common.Clone()
	static.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; frame-ancestors 'none'")
	static.Set("Cross-Origin-Resource-Policy", "cross-origin")
	if cfg.StaticMaxAge > 0 {
		static.Set("Cache-Control", "public, max-age="+strconv.Itoa(cfg.StaticMaxAge))
	} else {
		static.Set("Cache-Control", "no-store")
	}
	return api, static
}

// Security sets the security headers on every response.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	api, static := securityHeaders(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			set := api
			if strings.HasPrefix(r.URL.Path, StaticPrefix) {
				set = static
			}
			h := w.Header()
			for k, v := range set {
				h[k] = v
			}
			h.Del("Server")
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize rejects declared bodies over maxBytes up front and cuts off
// streamed ones on read.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginVisitorTTL is how long an idle IP keeps its limiter.
const loginVisitorTTL = 10 * time.Minute

type loginVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter throttles login attempts per client IP in process memory.
type LoginLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*loginVisitor
	limit       rate.Limit
	burst       int
	lastCleanup time.Time
	logger      *slog.Logger
	now         func() time.Time
}

// NewLoginLimiter allows rps attempts per second per IP with the given burst.
func NewLoginLimiter(rps float64, burst int, logger *slog.Logger) *LoginLimiter {
	if burst < 1 {
		burst = 1
	}
	return &LoginLimiter{
		visitors: make(map[string]*loginVisitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		logger:   logger,
		now:      time.Now,
	}
}

// Allow consumes one attempt for ip.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) > loginVisitorTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > loginVisitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastCleanup = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &loginVisitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the per-IP budget with 429.
func (l *LoginLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !l.Allow(ip) {
			l.logger.Warn("login_rate_limited",
				slog.String("ip", ip),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			retry := time.Second
			if l.limit > 0 {
				retry = time.Duration(float64(time.Second) / float64(l.limit))
			}
			writeRateLimitError(w, retry)
			return
		}
		next.ServeHTTP(w, r)
	})
}

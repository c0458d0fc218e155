package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes of the rate limiters.
const (
	rateLimitUserPrefix = KeyPrefix + "ratelimit:user:"
	rateLimitIPPrefix   = KeyPrefix + "ratelimit:ip:"
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// gcraScript is the generic cell rate algorithm. The key holds the
// theoretical arrival time (TAT) in milliseconds and expires once the
// bucket would be full again.
//
// Returns {allowed, retry_after_ms, remaining, reset_ms}.
var gcraScript = redis.NewScript(`
local emission = tonumber(ARGV[1])
local tolerance = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local tat = tonumber(redis.call('GET', KEYS[1])) or now
if tat < now then
	tat = now
end

local allow_at = tat - tolerance
if now < allow_at then
	return {0, math.ceil(allow_at - now), 0, math.ceil(tat - now)}
end

local new_tat = tat + emission
local ttl = math.ceil(new_tat - now)
redis.call('SET', KEYS[1], new_tat, 'PX', ttl)

local remaining = math.max(0, math.floor((now + tolerance - new_tat) / emission) + 1)
return {1, 0, remaining, ttl}
`)

// gcraParams converts a rate and burst into the emission interval and
// burst tolerance of the script, both in milliseconds.
func gcraParams(perSecond float64, burst int) (emission, tolerance float64) {
	if burst < 1 {
		burst = 1
	}
	emission = 1000 / perSecond
	return emission, emission * float64(burst-1)
}

// CheckUserRateLimit counts one request of a signed-in user. A zero rate
// disables the limit.
func (c *Cache) CheckUserRateLimit(ctx context.Context, username string, ratePerMinute, burst int) (*RateLimitResult, error) {
	if ratePerMinute <= 0 {
		return unlimited(burst), nil
	}
	return c.allow(ctx, rateLimitUserPrefix+username, float64(ratePerMinute)/60, burst), nil
}

// CheckIPRateLimit counts one anonymous request. Addresses are stored hashed.
func (c *Cache) CheckIPRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return unlimited(burst), nil
	}
	return c.allow(ctx, rateLimitIPPrefix+hashIP(ip), float64(ratePerSecond), burst), nil
}

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{Allowed: true, Remaining: int64(burst), ResetAt: time.Now()}
}

// allow runs the script. Redis failures let the request through.
func (c *Cache) allow(ctx context.Context, key string, perSecond float64, burst int) *RateLimitResult {
	emission, tolerance := gcraParams(perSecond, burst)
	now := time.Now()

	res, err := gcraScript.Run(ctx, c.client, []string{key}, emission, tolerance, now.UnixMilli()).Int64Slice()
	if err != nil || len(res) != 4 {
		return unlimited(burst)
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  res[2],
		ResetAt:    now.Add(time.Duration(res[3]) * time.Millisecond),
		RetryAfter: time.Duration(math.Max(0, float64(res[1]))) * time.Millisecond,
	}
}

// hashIP is a truncated SHA-256 of the address: 16 hex characters.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}

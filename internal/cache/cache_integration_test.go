//go:build integration

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/testutil"
)

func newTestCache(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	c, err := New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return ctx, c
}

func TestIntegrationCache_JSONRoundTripAndMiss(t *testing.T) {
	ctx, c := newTestCache(t)

	var got []string
	if err := c.GetJSON(ctx, AllBriefKey(model.LangDE), &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	if err := c.SetJSON(ctx, AllBriefKey(model.LangDE), []string{"a", "b"}, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	if err := c.GetJSON(ctx, AllBriefKey(model.LangDE), &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %v", got)
	}
}

func TestIntegrationCache_InvalidateRecipes(t *testing.T) {
	ctx, c := newTestCache(t)

	keys := []string{
		AllBriefKey(model.LangDE),
		AllBriefKey(model.LangEN),
		TagKey(model.LangDE, "brot"),
		InSeasonKey(model.LangEN, 3),
		CategoryKey(model.LangDE, "Kuchen"),
		IconKey(model.LangDE, "x"),
	}
	for _, k := range keys {
		if err := c.SetJSON(ctx, k, 1, time.Minute); err != nil {
			t.Fatalf("SetJSON: %v", err)
		}
	}
	if err := c.SetJSON(ctx, BalanceKey("alice"), 1, time.Minute); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	n, err := c.InvalidateRecipes(ctx)
	if err != nil {
		t.Fatalf("InvalidateRecipes: %v", err)
	}
	if n != len(keys) {
		t.Errorf("deleted %d keys, want %d", n, len(keys))
	}

	var v int
	if err := c.GetJSON(ctx, BalanceKey("alice"), &v); err != nil {
		t.Errorf("unrelated key should survive: %v", err)
	}
}

func TestIntegrationCache_Favorites(t *testing.T) {
	ctx, c := newTestCache(t)

	if _, err := c.GetFavorites(ctx, "alice"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	// Not cached yet, so the add is skipped.
	if err := c.AddFavorite(ctx, "alice", "r1"); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}
	if _, err := c.GetFavorites(ctx, "alice"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after add to uncached set, got %v", err)
	}

	if err := c.SetFavorites(ctx, "alice", []string{"r1"}); err != nil {
		t.Fatalf("SetFavorites: %v", err)
	}
	if err := c.AddFavorite(ctx, "alice", "r2"); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}
	if err := c.AddFavorite(ctx, "alice", "r2"); err != nil {
		t.Fatalf("AddFavorite twice: %v", err)
	}
	ids, err := c.GetFavorites(ctx, "alice")
	if err != nil || len(ids) != 2 {
		t.Fatalf("GetFavorites = %v, %v", ids, err)
	}
}

func TestIntegrationCache_RateLimitFailsOpen(t *testing.T) {
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	defer c.Close()

	res, err := c.CheckIPRateLimit(context.Background(), "1.2.3.4", 1, 1)
	if err != nil {
		t.Fatalf("CheckIPRateLimit: %v", err)
	}
	if !res.Allowed {
		t.Error("rate limiter should fail open when Redis is unreachable")
	}
}

func TestIntegrationCache_RevokeSession(t *testing.T) {
	ctx, c := newTestCache(t)

	revoked, err := c.IsSessionRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("IsSessionRevoked = %v, %v", revoked, err)
	}
	if err := c.RevokeSession(ctx, "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	revoked, _ = c.IsSessionRevoked(ctx, "jti-1")
	if !revoked {
		t.Error("expected revoked session")
	}
}

func TestIntegrationCache_RateLimitBurst(t *testing.T) {
	ctx, c := newTestCache(t)

	// One per minute with a burst of three: exactly three immediate requests pass.
	for i, wantRemaining := range []int64{2, 1, 0} {
		res, err := c.CheckUserRateLimit(ctx, "anna", 1, 3)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if !res.Allowed || res.Remaining != wantRemaining {
			t.Fatalf("request %d = allowed %v remaining %d, want remaining %d", i, res.Allowed, res.Remaining, wantRemaining)
		}
	}

	res, err := c.CheckUserRateLimit(ctx, "anna", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("fourth request should be limited")
	}
	if res.RetryAfter <= 50*time.Second || res.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v, want about a minute", res.RetryAfter)
	}

	other, err := c.CheckUserRateLimit(ctx, "ben", 1, 3)
	if err != nil || !other.Allowed {
		t.Errorf("other user should have an own bucket: %+v, %v", other, err)
	}
}

func TestIntegrationCache_RateLimitConcurrent(t *testing.T) {
	ctx, c := newTestCache(t)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.CheckIPRateLimit(ctx, "192.168.1.100", 1, 5)
			if err != nil {
				t.Errorf("CheckIPRateLimit: %v", err)
				return
			}
			if res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	// The script is atomic, so the burst holds under contention. One extra
	// token may refill while the goroutines run.
	if n := allowed.Load(); n < 5 || n > 6 {
		t.Errorf("allowed %d concurrent requests, want 5 or 6", n)
	}
}

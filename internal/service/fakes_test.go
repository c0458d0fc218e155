package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/homestead/homestead/internal/cache"
)

// memoryCache is a JSONCache backed by a map.
type memoryCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated int
	cospend     [][]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dst any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dst)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *memoryCache) InvalidateRecipes(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.data {
		if strings.HasPrefix(k, cache.KeyPrefix+"recipes") {
			delete(c.data, k)
			n++
		}
	}
	c.invalidated++
	return n, nil
}

func (c *memoryCache) InvalidateCospend(_ context.Context, paymentID string, usernames ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cospend = append(c.cospend, append([]string{paymentID}, usernames...))
	for k := range c.data {
		if strings.HasPrefix(k, cache.KeyPrefix+"cospend") {
			delete(c.data, k)
		}
	}
	return nil
}

// fixedConverter converts at a constant rate.
type fixedConverter struct {
	rate float64
	err  error
}

func (f *fixedConverter) Rate(context.Context, string, time.Time) (float64, error) {
	return f.rate, f.err
}

func (f *fixedConverter) Convert(_ context.Context, amount float64, _ string, _ time.Time) (float64, float64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return amount * f.rate, f.rate, nil
}

func (f *fixedConverter) Currencies(context.Context) []string {
	return []string{"CHF", "EUR"}
}

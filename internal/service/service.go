// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/homestead/homestead/internal/cache"
)

// Errors shared by every service.
var (
	ErrForbidden       = errors.New("not allowed to modify this resource")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidPageSize = errors.New("invalid pagination parameters")
)

// newID generates entity identifiers.
var newID = func() string {
	return ulid.Make().String()
}

// JSONCache is the subset of the Redis cache used for read-through caching.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst any) error
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// readThrough returns the cached value under key or loads, caches and returns
// it. Cache errors are ignored. The hit result is reported to onResult when set.
func readThrough[T any](ctx context.Context, c JSONCache, key string, ttl time.Duration, onResult func(hit bool), load func() (T, error)) (T, error) {
	if c != nil {
		var cached T
		err := c.GetJSON(ctx, key, &cached)
		if err == nil {
			if onResult != nil {
				onResult(true)
			}
			return cached, nil
		}
		if onResult != nil && errors.Is(err, cache.ErrCacheMiss) {
			onResult(false)
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if c != nil {
		if err := c.SetJSON(ctx, key, v, ttl); err != nil {
			_ = err
		}
	}
	return v, nil
}

// pageBounds clamps limit and offset.
func pageBounds(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

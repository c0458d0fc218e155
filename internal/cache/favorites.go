package cache

import (
	"context"
	"fmt"
)

// FavoritesKey is the Redis set of a user's favorite recipe IDs.
func FavoritesKey(username string) string {
	return Key("favorites", username)
}

// GetFavorites returns the cached favorite set.
// Returns ErrCacheMiss when the set is not cached.
func (c *Cache) GetFavorites(ctx context.Context, username string) ([]string, error) {
	key := FavoritesKey(username)

	pipe := c.client.Pipeline()
	exists := pipe.Exists(ctx, key)
	members := pipe.SMembers(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read favorites: %w", err)
	}

	if exists.Val() == 0 {
		return nil, ErrCacheMiss
	}
	return members.Val(), nil
}

// SetFavorites replaces the cached favorite set. An empty set is not cached.
func (c *Cache) SetFavorites(ctx context.Context, username string, ids []string) error {
	key := FavoritesKey(username)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(ids) > 0 {
		members := make([]any, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, DefaultTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache favorites: %w", err)
	}
	return nil
}

// AddFavorite adds id to a cached set. A set that is not cached stays absent.
func (c *Cache) AddFavorite(ctx context.Context, username, id string) error {
	key := FavoritesKey(username)

	exists, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check favorites: %w", err)
	}
	if exists == 0 {
		return nil
	}
	return c.client.SAdd(ctx, key, id).Err()
}

// RemoveFavorite removes id from the cached set.
func (c *Cache) RemoveFavorite(ctx context.Context, username, id string) error {
	return c.client.SRem(ctx, FavoritesKey(username), id).Err()
}

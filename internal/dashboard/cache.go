package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tijara-apps/tijara/internal/window"
)

const cacheVersionKey = "dashboard:version"

// Cache wraps Redis-based caching of built dashboards with a global version
// for invalidation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client degrades to a
// pass-through loader.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key composes a versioned cache key for one build request.
func (c *Cache) Key(ctx context.Context, shop string, win window.Window, accountID string, rate float64) string {
	parts := []string{"dashboard", shop, win.Since, win.Until, accountID, fmt.Sprintf("%g", rate)}
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil {
		ver = 1
	}
	return fmt.Sprintf("%s:%d", joined, ver)
}

// Fetch loads a cached result or populates it via the loader.
func (c *Cache) Fetch(ctx context.Context, key string, loader func(context.Context) (Result, error)) (Result, error) {
	if loader == nil {
		return Result{}, errors.New("dashboard: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached Result
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}

	result, err := loader(ctx)
	if err != nil {
		return Result{}, err
	}
	if raw, err := json.Marshal(result); err == nil {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return result, nil
}

// Bump invalidates every cached dashboard by incrementing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

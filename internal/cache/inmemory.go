package cache

import (
	"context"
	"path"
	"time"

	goCache "github.com/patrickmn/go-cache"
	"github.com/plexbill/plexbill/internal/config"
)

// DefaultExpiration is the default expiration time for cache entries
const DefaultExpiration = goCache.NoExpiration

// DefaultCleanupInterval is how often expired items are removed from the cache
const DefaultCleanupInterval = 1 * time.Hour

// InMemoryCache implements the Cache interface using github.com/patrickmn/go-cache.
// Used for local mode and tests; production runs against Redis.
type InMemoryCache struct {
	cache *goCache.Cache
	cfg   *config.Configuration
}

// NewInMemoryCache creates a new InMemoryCache instance
func NewInMemoryCache(cfg *config.Configuration) *InMemoryCache {
	return &InMemoryCache{
		cache: goCache.New(DefaultExpiration, DefaultCleanupInterval),
		cfg:   cfg,
	}
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(_ context.Context, key string) (string, bool) {
	if !c.cfg.Cache.Enabled {
		return "", false
	}
	v, found := c.cache.Get(key)
	if !found {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set adds a value to the cache with the specified expiration
func (c *InMemoryCache) Set(_ context.Context, key string, value string, expiration time.Duration) {
	if !c.cfg.Cache.Enabled {
		return
	}
	c.cache.Set(key, value, expiration)
}

// Delete removes a key from the cache
func (c *InMemoryCache) Delete(_ context.Context, key string) {
	if !c.cfg.Cache.Enabled {
		return
	}
	c.cache.Delete(key)
}

// DeleteByPattern removes all keys matching the given glob pattern
func (c *InMemoryCache) DeleteByPattern(_ context.Context, pattern string) {
	if !c.cfg.Cache.Enabled {
		return
	}

	for k := range c.cache.Items() {
		if ok, _ := path.Match(pattern, k); ok {
			c.cache.Delete(k)
		}
	}
}

// Exists reports whether the key is present
func (c *InMemoryCache) Exists(ctx context.Context, key string) bool {
	_, found := c.Get(ctx, key)
	return found
}

// Flush removes all items from the cache
func (c *InMemoryCache) Flush(_ context.Context) {
	if !c.cfg.Cache.Enabled {
		return
	}
	c.cache.Flush()
}

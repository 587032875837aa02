package cache

import (
	"github.com/plexbill/plexbill/internal/config"
	"github.com/plexbill/plexbill/internal/logger"
)

// Initialize picks the cache store for the current configuration: Redis in
// production, the in-process store when cache.inmemory is set.
func Initialize(cfg *config.Configuration, logger *logger.Logger) Cache {
	if cfg.Cache.InMemory {
		return NewInMemoryCache(cfg)
	}
	return NewRedisCache(NewRedisClient(cfg), cfg, logger)
}

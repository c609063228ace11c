package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend         string // "memory" or "redis"
	Capacity        int
	TTL             time.Duration
	CleanupInterval time.Duration
	Prefix          string
}

// New builds the query cache for the configured backend. Every namespace
// store is wrapped with logging and metrics.
func New(cfg Config, redisClient *redis.Client) *QueryCache {
	c := newQueryCache(cfg.TTL)

	for _, ns := range Namespaces {
		var store Store
		switch cfg.Backend {
		case "redis":
			store = NewRedisStore(redisClient, RedisConfig{
				Prefix: cfg.Prefix + ":" + string(ns),
			})
		default:
			store = NewMemoryStore(MemoryConfig{
				Capacity:        cfg.Capacity,
				CleanupInterval: cfg.CleanupInterval,
				OnEvict:         c.evictionRecorder(ns),
			})
		}
		c.stores[ns] = NewLoggingStore(store, ns)
	}

	return c
}

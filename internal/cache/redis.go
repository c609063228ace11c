package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis.
// Capacity is left to the server (maxmemory-policy allkeys-lru); TTL maps to
// key expiry. Each scope keeps a set of its keys so DeleteScope does not scan.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisConfig struct {
	// Prefix is prepended to every key, e.g. "docqa:response".
	Prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, config RedisConfig) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
	}
}

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) scopeIndex(scope string) string {
	return s.key("scope:" + ScopeSegment(scope))
}

// Get retrieves a value. On Redis error it returns (nil, false, err) so the
// caller can log and treat it as a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("context error: %w", err)
	}

	res, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	return res, true, nil
}

// Set stores value with ttl and records key in its scope index.
// If ttl <= 0 the key is removed.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	redisKey := s.key(key)

	if ttl <= 0 {
		if err := s.client.Del(ctx, redisKey).Err(); err != nil {
			return fmt.Errorf("redis del failed: %w", err)
		}
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisKey, value, ttl)
	if scope, ok := ScopeOfKey(key); ok {
		pipe.SAdd(ctx, s.scopeIndex(scope), redisKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// DeleteScope removes all keys indexed under scope, then the index itself.
func (s *RedisStore) DeleteScope(ctx context.Context, scope string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	index := s.scopeIndex(scope)
	members, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers failed: %w", err)
	}

	var removed int64
	if len(members) > 0 {
		removed, err = s.client.Del(ctx, members...).Result()
		if err != nil {
			return 0, fmt.Errorf("redis del failed: %w", err)
		}
	}
	if err := s.client.Del(ctx, index).Err(); err != nil {
		return int(removed), fmt.Errorf("redis del index failed: %w", err)
	}

	return int(removed), nil
}

// Ping checks if the Redis connection is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return s.client.Ping(ctx).Err()
}

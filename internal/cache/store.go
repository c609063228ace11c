package cache

import (
	"context"
	"time"
)

// Namespace partitions the query cache.
type Namespace string

const (
	// Response holds final answers keyed by question fingerprint.
	Response Namespace = "response"
	// Retrieval holds context bundles keyed by question fingerprint.
	Retrieval Namespace = "retrieval"
)

// Namespaces lists every namespace in a stable order.
var Namespaces = []Namespace{Response, Retrieval}

// Store is a single namespace backend.
// Implemented by the in-process LRU store (default) and Redis.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeleteScope removes every entry whose key belongs to scope and
	// returns how many were removed.
	DeleteScope(ctx context.Context, scope string) (int, error)
}

// Evict reasons reported by stores.
const (
	EvictLRU   = "lru"
	EvictTTL   = "ttl"
	EvictScope = "scope"
)

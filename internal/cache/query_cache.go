package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"docqa-gateway/pkg/logging"
)

// QueryCache is the dual-namespace cache consulted before any retrieval or
// generation. It is advisory: every failure is logged and reported as a miss.
type QueryCache struct {
	stores map[Namespace]Store
	ttl    time.Duration
	stats  map[Namespace]*counters
}

type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	errors    atomic.Int64
	evictions atomic.Int64
}

// NamespaceStats is a point-in-time view of one namespace.
type NamespaceStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Errors    int64 `json:"errors"`
	Evictions int64 `json:"evictions"`
	// Size is -1 when the backend cannot report it.
	Size int `json:"size"`
}

// NewQueryCache builds a cache over one store per namespace.
// Missing namespaces get an in-process store with default capacity.
func NewQueryCache(stores map[Namespace]Store, ttl time.Duration) *QueryCache {
	c := newQueryCache(ttl)
	for _, ns := range Namespaces {
		if s, ok := stores[ns]; ok && s != nil {
			c.stores[ns] = s
		} else {
			c.stores[ns] = NewMemoryStore(MemoryConfig{OnEvict: c.evictionRecorder(ns)})
		}
	}
	return c
}

func newQueryCache(ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &QueryCache{
		stores: make(map[Namespace]Store, len(Namespaces)),
		ttl:    ttl,
		stats:  make(map[Namespace]*counters, len(Namespaces)),
	}
	for _, ns := range Namespaces {
		c.stats[ns] = &counters{}
	}
	return c
}

// TTL returns the default entry lifetime.
func (c *QueryCache) TTL() time.Duration { return c.ttl }

// Get looks up key in ns.
func (c *QueryCache) Get(ctx context.Context, ns Namespace, key string) (value []byte, hit bool) {
	st, ok := c.stats[ns]
	if !ok {
		return nil, false
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.L(ctx).Error("query_cache_get_panic",
				zap.String("cache_namespace", string(ns)),
				zap.Any("error", rec),
			)
			st.errors.Add(1)
			st.misses.Add(1)
			value, hit = nil, false
		}
	}()

	value, hit, err := c.stores[ns].Get(ctx, key)
	if err != nil {
		st.errors.Add(1)
		st.misses.Add(1)
		return nil, false
	}
	if !hit {
		st.misses.Add(1)
		return nil, false
	}
	st.hits.Add(1)
	return value, true
}

// Put stores value in ns with the default TTL.
func (c *QueryCache) Put(ctx context.Context, ns Namespace, key string, value []byte) {
	c.PutTTL(ctx, ns, key, value, c.ttl)
}

// PutTTL stores value in ns with an explicit TTL.
func (c *QueryCache) PutTTL(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) {
	st, ok := c.stats[ns]
	if !ok {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.L(ctx).Error("query_cache_set_panic",
				zap.String("cache_namespace", string(ns)),
				zap.Any("error", rec),
			)
			st.errors.Add(1)
		}
	}()

	if err := c.stores[ns].Set(ctx, key, value, ttl); err != nil {
		st.errors.Add(1)
	}
}

// GetJSON decodes a cached value into v. Undecodable entries count as a miss.
func (c *QueryCache) GetJSON(ctx context.Context, ns Namespace, key string, v any) bool {
	raw, hit := c.Get(ctx, ns, key)
	if !hit {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logging.L(ctx).Warn("query_cache_unmarshal_error",
			zap.String("cache_namespace", string(ns)),
			zap.Error(err),
		)
		return false
	}
	return true
}

// PutJSON encodes v and stores it with ttl (default TTL when ttl <= 0).
func (c *QueryCache) PutJSON(ctx context.Context, ns Namespace, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		logging.L(ctx).Warn("query_cache_marshal_error",
			zap.String("cache_namespace", string(ns)),
			zap.Error(err),
		)
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.PutTTL(ctx, ns, key, raw, ttl)
}

// InvalidateScope drops every entry derived from scope in both namespaces.
// It is wired to document deletion and re-upload.
func (c *QueryCache) InvalidateScope(ctx context.Context, scope string) int {
	scope = NormalizeScope(scope)

	total := 0
	for _, ns := range Namespaces {
		n, err := c.stores[ns].DeleteScope(ctx, scope)
		if err != nil {
			c.stats[ns].errors.Add(1)
		}
		total += n
	}
	return total
}

// Stats returns counters for every namespace.
func (c *QueryCache) Stats() map[Namespace]NamespaceStats {
	out := make(map[Namespace]NamespaceStats, len(Namespaces))
	for _, ns := range Namespaces {
		st := c.stats[ns]
		size := -1
		if sz, ok := c.stores[ns].(interface{ Len() int }); ok {
			size = sz.Len()
		}
		out[ns] = NamespaceStats{
			Hits:      st.hits.Load(),
			Misses:    st.misses.Load(),
			Errors:    st.errors.Load(),
			Evictions: st.evictions.Load(),
			Size:      size,
		}
	}
	return out
}

// Close releases store resources (cleanup goroutines).
func (c *QueryCache) Close() error {
	var firstErr error
	for _, ns := range Namespaces {
		if closer, ok := c.stores[ns].(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close %s store: %w", ns, err)
			}
		}
	}
	return firstErr
}

// evictionRecorder returns an OnEvict hook counting evictions for ns.
func (c *QueryCache) evictionRecorder(ns Namespace) func(key, reason string) {
	return func(_ string, reason string) {
		if st, ok := c.stats[ns]; ok {
			st.evictions.Add(1)
		}
		recordEviction(ns, reason)
	}
}

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key       string
	value     []byte
	createdAt time.Time
	ttl       time.Duration
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// MemoryConfig configures a MemoryStore.
type MemoryConfig struct {
	// Capacity bounds the number of entries (default: 500).
	Capacity int
	// CleanupInterval enables a background sweep of expired entries.
	// Zero disables it; expiry is still enforced lazily on read.
	CleanupInterval time.Duration
	// OnEvict is called for every entry removed by the store, outside the lock.
	OnEvict func(key, reason string)
}

// MemoryStore is an LRU map bounded by Capacity with absolute per-entry TTL.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[string]*list.Element
	scopes   map[string]map[string]struct{} // scope -> keys
	onEvict  func(key, reason string)
	now      func() time.Time

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewMemoryStore creates an in-process LRU store.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 500
	}

	s := &MemoryStore{
		capacity:    cfg.Capacity,
		ll:          list.New(),
		items:       make(map[string]*list.Element),
		scopes:      make(map[string]map[string]struct{}),
		onEvict:     cfg.OnEvict,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go s.cleanupExpired(cfg.CleanupInterval)
	}

	return s
}

// Get returns the value for key and marks it most recently used.
// An expired entry is removed and reported as a miss.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		return nil, false, nil
	}

	entry := el.Value.(*memoryEntry)
	if entry.expired(s.now()) {
		s.removeElement(el)
		s.mu.Unlock()
		s.evicted(key, EvictTTL)
		return nil, false, nil
	}

	s.ll.MoveToFront(el)
	value := entry.value
	s.mu.Unlock()

	return value, true, nil
}

// Set inserts or refreshes key. TTL restarts from now.
// When the store is full, expired entries go first, then the least recently used one.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		s.mu.Lock()
		if el, ok := s.items[key]; ok {
			s.removeElement(el)
		}
		s.mu.Unlock()
		return nil
	}

	// Copy to decouple from caller's buffer
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	now := s.now()
	var evicted []string
	var reasons []string

	s.mu.Lock()
	if el, ok := s.items[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = valueCopy
		entry.createdAt = now
		entry.ttl = ttl
		s.ll.MoveToFront(el)
		s.mu.Unlock()
		return nil
	}

	if s.ll.Len() >= s.capacity {
		for _, k := range s.dropExpiredLocked(now) {
			evicted = append(evicted, k)
			reasons = append(reasons, EvictTTL)
		}
	}
	for s.ll.Len() >= s.capacity {
		oldest := s.ll.Back()
		if oldest == nil {
			break
		}
		evicted = append(evicted, oldest.Value.(*memoryEntry).key)
		reasons = append(reasons, EvictLRU)
		s.removeElement(oldest)
	}

	s.items[key] = s.ll.PushFront(&memoryEntry{
		key:       key,
		value:     valueCopy,
		createdAt: now,
		ttl:       ttl,
	})
	if scope, ok := ScopeOfKey(key); ok {
		keys := s.scopes[scope]
		if keys == nil {
			keys = make(map[string]struct{})
			s.scopes[scope] = keys
		}
		keys[key] = struct{}{}
	}
	s.mu.Unlock()

	for i, k := range evicted {
		s.evicted(k, reasons[i])
	}
	return nil
}

// DeleteScope removes all keys built for scope.
func (s *MemoryStore) DeleteScope(_ context.Context, scope string) (int, error) {
	var removed []string

	s.mu.Lock()
	for key := range s.scopes[scope] {
		if el, ok := s.items[key]; ok {
			s.removeElement(el)
			removed = append(removed, key)
		}
	}
	delete(s.scopes, scope)
	s.mu.Unlock()

	for _, k := range removed {
		s.evicted(k, EvictScope)
	}
	return len(removed), nil
}

// Len returns the number of entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

// Clear removes all entries.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.ll.Init()
	s.items = make(map[string]*list.Element)
	s.scopes = make(map[string]map[string]struct{})
	s.mu.Unlock()
}

// Close stops the cleanup goroutine. Call this on shutdown or in tests.
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

func (s *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			removed := s.dropExpiredLocked(s.now())
			s.mu.Unlock()
			for _, k := range removed {
				s.evicted(k, EvictTTL)
			}
		case <-s.stopCleanup:
			return
		}
	}
}

// dropExpiredLocked removes expired entries; s.mu must be held.
func (s *MemoryStore) dropExpiredLocked(now time.Time) []string {
	var removed []string
	for el := s.ll.Back(); el != nil; {
		prev := el.Prev()
		entry := el.Value.(*memoryEntry)
		if entry.expired(now) {
			s.removeElement(el)
			removed = append(removed, entry.key)
		}
		el = prev
	}
	return removed
}

func (s *MemoryStore) removeElement(el *list.Element) {
	key := el.Value.(*memoryEntry).key
	s.ll.Remove(el)
	delete(s.items, key)

	if scope, ok := ScopeOfKey(key); ok {
		if keys := s.scopes[scope]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.scopes, scope)
			}
		}
	}
}

func (s *MemoryStore) evicted(key, reason string) {
	if s.onEvict != nil {
		s.onEvict(key, reason)
	}
}

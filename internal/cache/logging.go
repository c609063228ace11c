package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"docqa-gateway/internal/metrics"
	"docqa-gateway/pkg/logging"
)

// LoggingStore wraps a Store with logging + metrics.
type LoggingStore struct {
	inner     Store
	namespace Namespace
}

// NewLoggingStore returns a store that logs and records metrics for ns.
func NewLoggingStore(inner Store, ns Namespace) Store {
	return &LoggingStore{inner: inner, namespace: ns}
}

func (s *LoggingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := s.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
	}
	metrics.CacheLookupsTotal.WithLabelValues(string(s.namespace), result).Inc()

	fields := s.fields(key, latencyMs)
	fields = append(fields, zap.String("cache_result", result))

	logger := logging.L(ctx)
	if err != nil {
		logger.Warn("query_cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("query_cache_get", fields...)
	}

	return value, ok, err
}

func (s *LoggingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := s.inner.Set(ctx, key, value, ttl)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	fields := append(s.fields(key, latencyMs),
		zap.Duration("ttl", ttl),
		zap.Int("bytes", len(value)),
	)

	logger := logging.L(ctx)
	if err != nil {
		logger.Warn("query_cache_set", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("query_cache_set", fields...)
	}

	return err
}

func (s *LoggingStore) DeleteScope(ctx context.Context, scope string) (int, error) {
	n, err := s.inner.DeleteScope(ctx, scope)

	logger := logging.L(ctx)
	fields := []zap.Field{
		zap.String("cache_namespace", string(s.namespace)),
		zap.String("document_scope", scope),
		zap.Int("removed", n),
	}
	if err != nil {
		logger.Warn("query_cache_invalidate", append(fields, zap.Error(err))...)
	} else {
		logger.Info("query_cache_invalidate", fields...)
	}

	return n, err
}

// Len forwards to the wrapped store when it can report its size.
func (s *LoggingStore) Len() int {
	if sz, ok := s.inner.(interface{ Len() int }); ok {
		return sz.Len()
	}
	return -1
}

// Close forwards to the wrapped store when it holds resources.
func (s *LoggingStore) Close() error {
	if c, ok := s.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *LoggingStore) fields(key string, latencyMs float64) []zap.Field {
	fields := []zap.Field{
		zap.String("cache_namespace", string(s.namespace)),
		zap.String("cache_key", key),
		zap.Float64("latency_ms", latencyMs),
	}
	if scope, ok := ScopeOfKey(key); ok {
		fields = append(fields, zap.String("document_scope", scope))
	}
	return fields
}

func recordEviction(ns Namespace, reason string) {
	metrics.CacheEvictionsTotal.WithLabelValues(string(ns), reason).Inc()
}

package handlers

import (
	"net/http"

	"docqa-gateway/internal/cache"
)

// CacheHandler exposes query cache counters.
type CacheHandler struct {
	Cache *cache.QueryCache
}

func NewCacheHandler(c *cache.QueryCache) *CacheHandler {
	return &CacheHandler{Cache: c}
}

// Stats handles GET /v1/cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Cache.Stats())
}

package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache lookups by namespace and result (hit | miss | error).
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_cache_lookups_total",
			Help: "Query cache lookups by namespace and result.",
		},
		[]string{"namespace", "result"},
	)

	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_cache_evictions_total",
			Help: "Query cache evictions by namespace and reason (lru | ttl | scope).",
		},
		[]string{"namespace", "reason"},
	)

	// Mean similarity of retrieved chunks before gating.
	RetrievalConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docqa_retrieval_confidence",
			Help:    "Mean similarity score of chunks returned by the vector store.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	RetrievalFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_retrieval_fallbacks_total",
			Help: "Retrievals that degraded (low_confidence | empty | error | timeout).",
		},
		[]string{"reason"},
	)

	GenerationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docqa_generation_failures_total",
			Help: "Answer generations that failed after retry.",
		},
	)

	// Final visualization kind emitted by the contract enforcer.
	ContractOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docqa_contract_outcomes_total",
			Help: "Visualization contract outcomes by intent and result kind.",
		},
		[]string{"intent", "kind"},
	)

	HTTPLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docqa_http_latency_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"route", "method", "status_code"},
	)
)

var registerOnce sync.Once

// Register is called once in main() to register metrics.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CacheLookupsTotal,
			CacheEvictionsTotal,
			RetrievalConfidence,
			RetrievalFallbacksTotal,
			GenerationFailuresTotal,
			ContractOutcomesTotal,
			HTTPLatencySeconds,
		)
	})
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures latency for each HTTP request.
// The chi route pattern is used as label so /v1/documents/{scope} stays bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		HTTPLatencySeconds.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

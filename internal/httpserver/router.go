package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"docqa-gateway/internal/handlers"
	"docqa-gateway/internal/metrics"
	"docqa-gateway/internal/middleware"
)

// Handlers groups the route handlers.
type Handlers struct {
	Ask       *handlers.AskHandler
	Documents *handlers.DocumentHandler
	Cache     *handlers.CacheHandler
}

type Options struct {
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
	MaxAskBytes    int64
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
	if o.UploadTimeout <= 0 {
		o.UploadTimeout = 2 * time.Minute
	}
	if o.MaxAskBytes <= 0 {
		o.MaxAskBytes = 64 * 1024
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 20 << 20
	}
	return o
}

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, h Handlers, opts Options) {
	opts = opts.withDefaults()

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer()) // panic recovery

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.RequestTimeout))
			r.Use(middleware.MaxBodySize(opts.MaxAskBytes))
			if opts.RateLimitRPS > 0 {
				r.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, 10*time.Minute))
			}
			r.Post("/ask", h.Ask.Ask)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.UploadTimeout))
			r.Use(middleware.MaxBodySize(opts.MaxUploadBytes))
			r.Post("/documents", h.Documents.Upload)
			r.Delete("/documents/{scope}", h.Documents.Delete)
		})

		r.Get("/cache/stats", h.Cache.Stats)
	})

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}

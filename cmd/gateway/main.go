package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"docqa-gateway/internal/answer"
	"docqa-gateway/internal/cache"
	"docqa-gateway/internal/config"
	"docqa-gateway/internal/contract"
	"docqa-gateway/internal/handlers"
	"docqa-gateway/internal/httpserver"
	"docqa-gateway/internal/ingest"
	"docqa-gateway/internal/llm"
	"docqa-gateway/internal/metrics"
	"docqa-gateway/internal/pipeline"
	"docqa-gateway/internal/retrieval"
	"docqa-gateway/internal/vectorstore"
	"docqa-gateway/internal/vectorstore/memory"
	"docqa-gateway/internal/vectorstore/qdrant"
	"docqa-gateway/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("gateway exited with error: %v", err)
	}
}

func run() error {
	// ----- Config (loads .env before the logger reads ENV/LOG_LEVEL) -----
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("vector_store", cfg.VectorStore),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("llm_base_url", cfg.LLMBaseURL),
		zap.String("pipeline_config", cfg.TuningFile),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}

	// ----- Query cache (response + retrieval namespaces) -----
	queryCache := cache.New(cache.Config{
		Backend:         cfg.CacheBackend,
		Capacity:        cfg.CacheCapacity,
		TTL:             cfg.CacheTTL,
		CleanupInterval: cfg.CacheCleanupInterval,
		Prefix:          cfg.CachePrefix,
	}, redisClient)
	defer queryCache.Close()

	// ----- LLM clients -----
	llmCfg := llm.Config{
		BaseURL:        cfg.LLMBaseURL,
		APIKey:         cfg.LLMAPIKey,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: cfg.EmbeddingModel,
	}
	llmClient, err := llm.NewClient(llmCfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// Generation attempts are counted by the pipeline alone.
	chatCfg := llmCfg
	chatCfg.MaxRetries = -1
	chatClient, err := llm.NewClient(chatCfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := chatClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// ----- Vector store -----
	var store vectorstore.Store
	switch cfg.VectorStore {
	case "qdrant":
		qs, err := qdrant.New(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		})
		if err != nil {
			return err
		}
		if err := qs.EnsureCollection(ctx, cfg.VectorSize); err != nil {
			logger.Error("qdrant collection setup failed", zap.Error(err))
			return err
		}
		store = qs
	default:
		store = memory.New()
	}

	// ----- Pipeline -----
	retriever := retrieval.New(cfg.Tuning.Retrieval, queryCache, llmClient, store, logger)
	service := pipeline.New(cfg.Tuning.Pipeline, pipeline.Deps{
		Cache:     queryCache,
		Retriever: retriever,
		Generator: answer.NewLLMGenerator(chatClient, answer.LLMConfig{}),
		Intents:   contract.NewIntentClassifier(cfg.Tuning.Intent.ChartKeywords),
	})

	// ----- Ingestion -----
	indexer := ingest.NewIndexer(llmClient, store, queryCache, cfg.Tuning.Chunking)

	if cfg.DocsDir != "" {
		watcher, err := ingest.NewWatcher(cfg.DocsDir, indexer, logger)
		if err != nil {
			return err
		}
		defer watcher.Close()

		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("document watcher stopped", zap.Error(err))
			}
		}()
		logger.Info("watching documents", zap.String("dir", cfg.DocsDir))
	}

	// ----- Router + middleware -----
	routeOpts := httpserver.Options{
		RequestTimeout: cfg.Tuning.AskTimeout(),
		UploadTimeout:  2 * time.Minute,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, httpserver.Handlers{
		Ask:       handlers.NewAskHandler(service),
		Documents: handlers.NewDocumentHandler(indexer),
		Cache:     handlers.NewCacheHandler(queryCache),
	}, routeOpts)

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       routeOpts.UploadTimeout,
		WriteTimeout:      max(routeOpts.UploadTimeout, routeOpts.RequestTimeout) + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting gateway",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("vector_store", cfg.VectorStore),
		zap.Duration("ask_timeout", routeOpts.RequestTimeout),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

// Package retrieval builds the context bundle for a question: cached,
// confidence-gated similarity search with boilerplate stripping and a token
// budget.
package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"docqa-gateway/internal/cache"
	"docqa-gateway/internal/llm"
	"docqa-gateway/internal/metrics"
	"docqa-gateway/internal/vectorstore"
	"docqa-gateway/pkg/logging"
)

// Retriever is safe for concurrent use.
type Retriever struct {
	cfg      Config
	cache    *cache.QueryCache
	embedder llm.Embedder
	store    vectorstore.Store
	breaker  *gobreaker.CircuitBreaker
}

func New(cfg Config, qc *cache.QueryCache, embedder llm.Embedder, store vectorstore.Store, logger *zap.Logger) *Retriever {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vectorstore",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Retriever{
		cfg:      cfg,
		cache:    qc,
		embedder: embedder,
		store:    store,
		breaker:  breaker,
	}
}

// Config returns the effective configuration.
func (r *Retriever) Config() Config { return r.cfg }

// ChooseK picks the search width for a question.
func (r *Retriever) ChooseK(question string) int {
	if EstimateTokens(question) > r.cfg.LongQuestionTokens {
		return r.cfg.ExtendedK
	}
	return r.cfg.DefaultK
}

// Retrieve returns the context bundle for question within scope.
// It never fails: any store or embedding problem yields an empty bundle,
// which is not cached.
func (r *Retriever) Retrieve(ctx context.Context, question, scope string) ContextBundle {
	logger := logging.L(ctx)
	fp := cache.NewFingerprint(question, scope)
	key := fp.String()

	var cached ContextBundle
	if r.cache != nil && r.cache.GetJSON(ctx, cache.Retrieval, key, &cached) {
		logger.Debug("retrieval_cache_hit", zap.String("cache_key", key))
		return cached
	}

	k := r.ChooseK(question)
	empty := ContextBundle{K: k, TokenBudget: r.cfg.TokenBudget}

	start := time.Now()
	matches, err := r.search(ctx, question, strings.TrimSpace(scope), k)
	if err != nil {
		reason := "error"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			reason = "breaker_open"
		}
		metrics.RetrievalFallbacksTotal.WithLabelValues(reason).Inc()
		logger.Warn("retrieval_failed",
			zap.String("reason", reason),
			zap.Int("k", k),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return empty
	}
	if len(matches) == 0 {
		metrics.RetrievalFallbacksTotal.WithLabelValues("empty").Inc()
		logger.Info("retrieval_empty", zap.Int("k", k))
		return empty
	}

	bundle := r.build(matches, k)
	metrics.RetrievalConfidence.Observe(bundle.Confidence)
	if bundle.Truncated {
		metrics.RetrievalFallbacksTotal.WithLabelValues("low_confidence").Inc()
	}

	logger.Info("retrieval_done",
		zap.Int("k", k),
		zap.Int("returned", len(matches)),
		zap.Int("kept", len(bundle.Chunks)),
		zap.Int("tokens", bundle.Tokens),
		zap.Float64("confidence", bundle.Confidence),
		zap.Bool("truncated", bundle.Truncated),
		zap.Duration("latency", time.Since(start)),
	)

	if bundle.Empty() {
		// everything was boilerplate
		return bundle
	}
	if r.cache != nil {
		r.cache.PutJSON(ctx, cache.Retrieval, key, bundle, 0)
	}
	return bundle
}

func (r *Retriever) search(ctx context.Context, question, scope string, k int) ([]vectorstore.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.store.Search(ctx, vector, k, scope)
	})
	if err != nil {
		return nil, err
	}
	matches, _ := res.([]vectorstore.Match)
	return matches, nil
}

// build applies confidence gating, cleaning and the token budget.
func (r *Retriever) build(matches []vectorstore.Match, k int) ContextBundle {
	sorted := make([]vectorstore.Match, len(matches))
	copy(sorted, matches)
	for i := range sorted {
		sorted[i].Score = vectorstore.ClampScore(sorted[i].Score)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > k {
		sorted = sorted[:k]
	}

	var sum float64
	for _, m := range sorted {
		sum += m.Score
	}

	bundle := ContextBundle{
		K:           k,
		TokenBudget: r.cfg.TokenBudget,
		Confidence:  sum / float64(len(sorted)),
	}

	if bundle.Confidence < r.cfg.ConfidenceThreshold && len(sorted) > r.cfg.LowConfidenceKeep {
		sorted = sorted[:r.cfg.LowConfidenceKeep]
		bundle.Truncated = true
	}

	seen := lineSet{}
	for _, m := range sorted {
		text := cleanText(m.Text, seen)
		if text == "" {
			continue
		}
		tokens := EstimateTokens(text)
		if bundle.Tokens+tokens > bundle.TokenBudget {
			break
		}
		bundle.Tokens += tokens
		bundle.Chunks = append(bundle.Chunks, RetrievedChunk{
			Text:             text,
			SimilarityScore:  m.Score,
			SourceDocumentID: m.DocumentID,
			PageOrOffset:     m.Location,
		})
	}
	return bundle
}

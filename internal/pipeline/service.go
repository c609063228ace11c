// Package pipeline answers document questions: response cache, retrieval,
// generation, visualization classification, contract enforcement and
// assembly.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"docqa-gateway/internal/answer"
	"docqa-gateway/internal/cache"
	"docqa-gateway/internal/contract"
	"docqa-gateway/internal/metrics"
	"docqa-gateway/internal/response"
	"docqa-gateway/internal/retrieval"
	"docqa-gateway/internal/visualization"
	"docqa-gateway/pkg/logging"
)

var (
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrQuestionTooLong = errors.New("question is too long")
)

const (
	InsufficientContextAnswer = "The document does not contain enough information to answer this question."
	GenerationFailedAnswer    = "The answer could not be generated right now. Please try again."
)

// Request is one question, optionally bound to a document.
type Request struct {
	Question      string `json:"question"`
	DocumentScope string `json:"document_scope,omitempty"`
}

// Retriever is satisfied by *retrieval.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, question, scope string) retrieval.ContextBundle
}

type Config struct {
	MaxQuestionChars  int           `yaml:"max_question_chars"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
	// GenerationRetries is the number of extra attempts after a failure.
	GenerationRetries      int           `yaml:"generation_retries"`
	InsufficientContextTTL time.Duration `yaml:"insufficient_context_ttl"`
}

func (c Config) WithDefaults() Config {
	if c.MaxQuestionChars <= 0 {
		c.MaxQuestionChars = 2000
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = 6 * time.Second
	}
	if c.GenerationRetries < 0 {
		c.GenerationRetries = 0
	} else if c.GenerationRetries == 0 {
		c.GenerationRetries = 1
	}
	if c.InsufficientContextTTL <= 0 {
		c.InsufficientContextTTL = 30 * time.Second
	}
	return c
}

// Deps are the collaborators of a Service.
type Deps struct {
	Cache     *cache.QueryCache
	Retriever Retriever
	Generator answer.Generator
	Intents   *contract.IntentClassifier
}

// Service is safe for concurrent use. Concurrent identical questions are
// computed once.
type Service struct {
	cfg       Config
	cache     *cache.QueryCache
	retriever Retriever
	generator answer.Generator
	intents   *contract.IntentClassifier
	enforcer  *contract.Enforcer
	assembler *response.Assembler
	group     singleflight.Group
}

func New(cfg Config, deps Deps) *Service {
	intents := deps.Intents
	if intents == nil {
		intents = contract.NewIntentClassifier(nil)
	}
	return &Service{
		cfg:       cfg.WithDefaults(),
		cache:     deps.Cache,
		retriever: deps.Retriever,
		generator: deps.Generator,
		intents:   intents,
		enforcer:  contract.NewEnforcer(),
		assembler: response.NewAssembler(deps.Cache),
	}
}

// Validate checks a request before any work is done.
func (s *Service) Validate(req Request) error {
	q := strings.TrimSpace(req.Question)
	if q == "" {
		return ErrEmptyQuestion
	}
	if utf8.RuneCountInString(q) > s.cfg.MaxQuestionChars {
		return ErrQuestionTooLong
	}
	return nil
}

// Answer returns a contract-clean result. The only errors are request
// validation errors and ctx cancellation; every pipeline fault is turned
// into a fixed answer.
func (s *Service) Answer(ctx context.Context, req Request) (response.AnswerResult, error) {
	if err := s.Validate(req); err != nil {
		return response.AnswerResult{}, err
	}

	start := time.Now()
	fp := cache.NewFingerprint(req.Question, req.DocumentScope)
	key := fp.String()
	logger := logging.L(ctx).With(zap.String("cache_key", key))

	if cached, ok := s.assembler.Lookup(ctx, fp); ok {
		logger.Info("answer_decision",
			zap.Bool("cache_hit", true),
			zap.Duration("total_latency", time.Since(start)),
		)
		return cached, nil
	}

	// Detached from caller cancellation; every waiter on key shares the result.
	work := logging.WithLogger(context.WithoutCancel(ctx), logger)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.compute(work, req, fp), nil
	})

	select {
	case <-ctx.Done():
		return response.AnswerResult{}, ctx.Err()
	case res := <-ch:
		out := res.Val.(response.AnswerResult)
		logger.Info("answer_decision",
			zap.Bool("cache_hit", false),
			zap.Bool("shared", res.Shared),
			zap.Duration("total_latency", time.Since(start)),
		)
		return out, nil
	}
}

func (s *Service) compute(ctx context.Context, req Request, fp cache.Fingerprint) response.AnswerResult {
	logger := logging.L(ctx)

	// a previous flight may have finished between lookup and here
	if cached, ok := s.assembler.Lookup(ctx, fp); ok {
		return cached
	}

	intent := s.intents.Classify(req.Question)
	bundle := s.retriever.Retrieve(ctx, req.Question, req.DocumentScope)

	if bundle.Empty() {
		outcome := s.enforce(ctx, intent, visualization.None())
		logger.Info("answer_insufficient_context", zap.String("intent", intent.String()))
		return s.assembler.AssembleTTL(ctx, fp, InsufficientContextAnswer, outcome.Result, s.cfg.InsufficientContextTTL)
	}

	gen, err := s.generate(ctx, req.Question, bundle.Text(), answer.Options{
		ChartRequested: intent == contract.IntentChartRequested,
	})
	if err != nil {
		metrics.GenerationFailuresTotal.Inc()
		logger.Error("answer_generation_failed", zap.Error(err))
		return response.Build(GenerationFailedAnswer, visualization.None())
	}

	classified := visualization.Classify(gen.Visualization)
	outcome := s.enforce(ctx, intent, classified)
	return s.assembler.Assemble(ctx, fp, gen.AnswerText, outcome.Result)
}

func (s *Service) generate(ctx context.Context, question, contextText string, opts answer.Options) (answer.Generation, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.GenerationRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		gen, err := s.generator.Generate(attemptCtx, question, contextText, opts)
		cancel()
		if err == nil {
			return gen, nil
		}
		lastErr = err
		logging.L(ctx).Warn("answer_generation_attempt_failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return answer.Generation{}, lastErr
}

func (s *Service) enforce(ctx context.Context, intent contract.Intent, classified visualization.Result) contract.Outcome {
	outcome := s.enforcer.Enforce(intent, classified)
	metrics.ContractOutcomesTotal.WithLabelValues(intent.String(), string(outcome.Result.Kind)).Inc()

	states := make([]string, len(outcome.Trace))
	for i, st := range outcome.Trace {
		states[i] = string(st)
	}
	logging.L(ctx).Debug("contract_enforced",
		zap.String("intent", intent.String()),
		zap.String("classified", string(classified.Kind)),
		zap.String("result", string(outcome.Result.Kind)),
		zap.Strings("trace", states),
		zap.String("rule", outcome.Rule),
		zap.String("reason", outcome.Reason),
	)
	return outcome
}

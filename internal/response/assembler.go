// Package response maps answer text and an enforced visualization onto the
// wire contract and writes the result through to the response cache.
package response

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"docqa-gateway/internal/cache"
	"docqa-gateway/internal/visualization"
	"docqa-gateway/pkg/logging"
)

// FallbackAnswer keeps answer non-empty when nothing else is available.
const FallbackAnswer = "No answer could be generated for this question."

// AnswerResult is the wire response. At most one of Chart and Table is set;
// both encode as null when absent.
type AnswerResult struct {
	Answer string               `json:"answer"`
	Chart  *visualization.Chart `json:"chart"`
	Table  *string              `json:"table"`
}

// Build maps a visualization onto the wire shape.
func Build(answerText string, viz visualization.Result) AnswerResult {
	out := AnswerResult{Answer: strings.TrimSpace(answerText)}

	switch viz.Kind {
	case visualization.KindChart:
		if viz.Chart != nil {
			out.Chart = viz.Chart
		}
	case visualization.KindTable:
		if viz.Table != nil {
			md := viz.Table.Markdown()
			out.Table = &md
		}
	case visualization.KindError:
		if msg := strings.TrimSpace(viz.Message); msg != "" {
			out.Answer = msg
		}
	}

	if out.Answer == "" {
		out.Answer = FallbackAnswer
	}
	return out
}

// Assembler writes assembled results into the response namespace.
type Assembler struct {
	cache *cache.QueryCache
}

func NewAssembler(qc *cache.QueryCache) *Assembler {
	return &Assembler{cache: qc}
}

// Assemble builds the result and caches it under fp with the default TTL.
func (a *Assembler) Assemble(ctx context.Context, fp cache.Fingerprint, answerText string, viz visualization.Result) AnswerResult {
	return a.AssembleTTL(ctx, fp, answerText, viz, 0)
}

// AssembleTTL is Assemble with an explicit TTL (default TTL when ttl <= 0).
func (a *Assembler) AssembleTTL(ctx context.Context, fp cache.Fingerprint, answerText string, viz visualization.Result, ttl time.Duration) AnswerResult {
	out := Build(answerText, viz)
	if a.cache != nil {
		a.cache.PutJSON(ctx, cache.Response, fp.String(), out, ttl)
	}

	logging.L(ctx).Debug("response_assembled",
		zap.String("cache_key", fp.String()),
		zap.String("visualization", string(viz.Kind)),
		zap.Bool("has_chart", out.Chart != nil),
		zap.Bool("has_table", out.Table != nil),
	)
	return out
}

// Lookup returns a previously assembled result for fp.
func (a *Assembler) Lookup(ctx context.Context, fp cache.Fingerprint) (AnswerResult, bool) {
	if a.cache == nil {
		return AnswerResult{}, false
	}
	var out AnswerResult
	if !a.cache.GetJSON(ctx, cache.Response, fp.String(), &out) {
		return AnswerResult{}, false
	}
	return out, true
}

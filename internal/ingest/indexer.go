package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docqa-gateway/internal/cache"
	"docqa-gateway/internal/llm"
	"docqa-gateway/internal/vectorstore"
	"docqa-gateway/pkg/logging"
)

// ScopeInvalidator is satisfied by *cache.QueryCache.
type ScopeInvalidator interface {
	InvalidateScope(ctx context.Context, scope string) int
}

// Result describes one ingested document.
type Result struct {
	DocumentScope string `json:"document_scope"`
	Chunks        int    `json:"chunks"`
	// Invalidated is the number of cache entries dropped for the scope.
	Invalidated int `json:"invalidated"`
}

// Indexer embeds documents into the vector store. A document is replaced as
// a whole: old chunks for its scope are deleted and cached answers dropped.
type Indexer struct {
	embedder llm.Embedder
	store    vectorstore.Store
	cache    ScopeInvalidator
	chunking ChunkerConfig
}

func NewIndexer(embedder llm.Embedder, store vectorstore.Store, cache ScopeInvalidator, chunking ChunkerConfig) *Indexer {
	return &Indexer{
		embedder: embedder,
		store:    store,
		cache:    cache,
		chunking: chunking.WithDefaults(),
	}
}

// NewScope returns a fresh document scope id.
func NewScope() string {
	return uuid.NewString()
}

// Ingest extracts, chunks, embeds and stores a document under scope.
// An empty scope gets a generated one.
func (ix *Indexer) Ingest(ctx context.Context, scope, name string, data []byte) (Result, error) {
	start := time.Now()
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = NewScope()
	}

	pages, err := Extract(name, data)
	if err != nil {
		return Result{}, err
	}
	chunks := ChunkPages(pages, ix.chunking)
	if len(chunks) == 0 {
		return Result{}, ErrNoText
	}

	records := make([]vectorstore.Record, 0, len(chunks))
	for i, c := range chunks {
		vec, err := ix.embedder.Embed(ctx, c.Text)
		if err != nil {
			return Result{}, fmt.Errorf("ingest: embed chunk %d: %w", i, err)
		}
		records = append(records, vectorstore.Record{
			ID:         fmt.Sprintf("%s#%d", scope, i),
			DocumentID: scope,
			Text:       c.Text,
			Location:   c.Location,
			Vector:     vec,
		})
	}

	if err := ix.store.DeleteScope(ctx, scope); err != nil {
		return Result{}, fmt.Errorf("ingest: replace %s: %w", scope, err)
	}
	if err := ix.store.Upsert(ctx, records); err != nil {
		return Result{}, fmt.Errorf("ingest: upsert %s: %w", scope, err)
	}

	res := Result{
		DocumentScope: scope,
		Chunks:        len(records),
		Invalidated:   ix.invalidate(ctx, scope),
	}

	logging.L(ctx).Info("document_ingested",
		zap.String("document_scope", scope),
		zap.String("name", name),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", res.Chunks),
		zap.Int("cache_invalidated", res.Invalidated),
		zap.Duration("latency", time.Since(start)),
	)
	return res, nil
}

// Delete removes a document and drops cached answers for its scope.
func (ix *Indexer) Delete(ctx context.Context, scope string) (int, error) {
	scope = strings.TrimSpace(scope)
	if err := ix.store.DeleteScope(ctx, scope); err != nil {
		return 0, fmt.Errorf("ingest: delete %s: %w", scope, err)
	}
	n := ix.invalidate(ctx, scope)

	logging.L(ctx).Info("document_deleted",
		zap.String("document_scope", scope),
		zap.Int("cache_invalidated", n),
	)
	return n, nil
}

func (ix *Indexer) invalidate(ctx context.Context, scope string) int {
	if ix.cache == nil {
		return 0
	}
	// unscoped questions search every document, so they go stale too
	return ix.cache.InvalidateScope(ctx, scope) + ix.cache.InvalidateScope(ctx, cache.GlobalScope)
}

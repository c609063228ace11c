package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyInput is returned when Embed is called with blank text.
var ErrEmptyInput = errors.New("llmclient: embedding input is empty")

// Embed returns the embedding of text using Config.EmbeddingModel.
func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if len(text) > maxMessageSize {
		return nil, fmt.Errorf("llmclient: embedding input too large (%d bytes, max %d)", len(text), maxMessageSize)
	}

	var pResp providerEmbeddingResponse
	err := c.postJSON(ctx, "/v1/embeddings", providerEmbeddingRequest{
		Model: c.cfg.EmbeddingModel,
		Input: text,
	}, &pResp)
	if err != nil {
		return nil, err
	}

	if len(pResp.Data) == 0 || len(pResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("llmclient: provider returned no embedding")
	}

	c.logger.Debug("embedding completed",
		zap.String("model", pResp.Model),
		zap.Int("dimension", len(pResp.Data[0].Embedding)),
		zap.Duration("duration", time.Since(start)),
	)

	return pResp.Data[0].Embedding, nil
}

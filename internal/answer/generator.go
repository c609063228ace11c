// Package answer turns a question and its retrieved context into answer text
// and a raw visualization payload.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa-gateway/internal/llm"
	"docqa-gateway/internal/visualization"
)

// ErrEmptyGeneration is returned when the provider answered with no content.
var ErrEmptyGeneration = errors.New("answer: provider returned no content")

// Options tune a single generation.
type Options struct {
	// ChartRequested asks the model to prefer chart-shaped data.
	ChartRequested bool
	Temperature    float32
	MaxTokens      int
}

// Generation is the raw generator output. Visualization may be nil.
type Generation struct {
	AnswerText    string
	Visualization visualization.RawPayload
}

// Generator produces an answer from context.
type Generator interface {
	Generate(ctx context.Context, question, contextText string, opts Options) (Generation, error)
}

// ChatCompleter is the part of llm.Client the generator needs.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

type LLMConfig struct {
	// Model overrides the client's chat model when set.
	Model       string
	Temperature float32
	MaxTokens   int
}

// LLMGenerator asks a chat model for a JSON object {answer, visualization}.
type LLMGenerator struct {
	client ChatCompleter
	cfg    LLMConfig
}

func NewLLMGenerator(client ChatCompleter, cfg LLMConfig) *LLMGenerator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	return &LLMGenerator{client: client, cfg: cfg}
}

const systemPrompt = `You answer questions about a document using only the provided context.
Reply with a single JSON object: {"answer": string, "visualization": object|null}.
"answer" is a concise answer in plain text. If the context does not contain the answer, say so.
"visualization" is null unless the answer contains structured numbers. It is either
a chart {"type": "bar"|"line"|"pie"|"stacked_bar", "labels": [string], "values": [number]}
or a table {"headers": [string], "rows": [[string]]}.
Never invent numbers that are not in the context.`

const chartHint = `The user asked for a chart. Prefer a chart visualization when the context has numeric data.`

func (g *LLMGenerator) Generate(ctx context.Context, question, contextText string, opts Options) (Generation, error) {
	system := systemPrompt
	if opts.ChartRequested {
		system += "\n" + chartHint
	}

	temperature := g.cfg.Temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	maxTokens := g.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	req := &llm.ChatRequest{
		Model: g.cfg.Model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: "Context:\n" + contextText + "\n\nQuestion: " + question},
		},
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: &llm.ResponseFormat{Type: "json_object"},
	}

	resp, err := g.client.ChatCompletion(ctx, req)
	if err != nil {
		return Generation{}, fmt.Errorf("answer: chat completion: %w", err)
	}

	content := strings.TrimSpace(resp.Content())
	if content == "" {
		return Generation{}, ErrEmptyGeneration
	}
	return ParseContent(content), nil
}

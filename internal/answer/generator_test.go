package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docqa-gateway/internal/llm"
)

type fakeChat struct {
	content string
	err     error
	last    *llm.ChatRequest
}

func (f *fakeChat) ChatCompletion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Choices: []llm.ChatChoice{{Message: llm.ChatMessage{Role: llm.RoleAssistant, Content: f.content}}}}, nil
}

func TestLLMGenerator_StructuredReply(t *testing.T) {
	chat := &fakeChat{content: `{"answer":"Rent and bank fees.","visualization":{"type":"bar","labels":["Rent"],"values":[500]}}`}
	g := NewLLMGenerator(chat, LLMConfig{Model: "test-model"})

	gen, err := g.Generate(context.Background(), "Chart the expenses", "[doc p.1]\nRent 500", Options{ChartRequested: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.AnswerText != "Rent and bank fees." {
		t.Fatalf("unexpected answer %q", gen.AnswerText)
	}
	if gen.Visualization["type"] != "bar" {
		t.Fatalf("visualization not decoded: %v", gen.Visualization)
	}

	if chat.last.ResponseFormat == nil || chat.last.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format")
	}
	if chat.last.Model != "test-model" {
		t.Fatalf("model override not applied")
	}
	if !strings.Contains(chat.last.Messages[0].Content, "asked for a chart") {
		t.Fatalf("chart hint missing from system prompt")
	}
	if !strings.Contains(chat.last.Messages[1].Content, "Rent 500") {
		t.Fatalf("context missing from user message")
	}
}

func TestLLMGenerator_Errors(t *testing.T) {
	g := NewLLMGenerator(&fakeChat{err: errors.New("boom")}, LLMConfig{})
	if _, err := g.Generate(context.Background(), "q", "ctx", Options{}); err == nil {
		t.Fatalf("expected provider error")
	}

	g = NewLLMGenerator(&fakeChat{content: "   "}, LLMConfig{})
	if _, err := g.Generate(context.Background(), "q", "ctx", Options{}); !errors.Is(err, ErrEmptyGeneration) {
		t.Fatalf("expected ErrEmptyGeneration, got %v", err)
	}
}

func TestParseContent(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		gen := ParseContent("```json\n{\"answer\":\"42\",\"visualization\":null}\n```")
		if gen.AnswerText != "42" || gen.Visualization != nil {
			t.Fatalf("unexpected generation %+v", gen)
		}
	})

	t.Run("plain text with table", func(t *testing.T) {
		gen := ParseContent("Here are the balances:\n| Account | Amount |\n|---|---|\n| Cash | 100 |")
		if gen.AnswerText != "Here are the balances:" {
			t.Fatalf("prose not separated: %q", gen.AnswerText)
		}
		table, _ := gen.Visualization["table"].(string)
		if !strings.Contains(table, "| Cash | 100 |") {
			t.Fatalf("table not extracted: %v", gen.Visualization)
		}
	})

	t.Run("visualization as markdown string", func(t *testing.T) {
		gen := ParseContent(`{"answer":"See table.","visualization":"| A | B |\n|---|---|\n| x | 1 |"}`)
		if _, ok := gen.Visualization["table"].(string); !ok {
			t.Fatalf("string visualization not kept: %v", gen.Visualization)
		}
	})

	t.Run("plain text", func(t *testing.T) {
		gen := ParseContent("The company has no debt.")
		if gen.AnswerText != "The company has no debt." || gen.Visualization != nil {
			t.Fatalf("unexpected generation %+v", gen)
		}
	})
}

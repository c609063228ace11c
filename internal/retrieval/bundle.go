package retrieval

import (
	"math"
	"strings"
	"unicode/utf8"
)

// RetrievedChunk is one passage returned by the similarity store.
type RetrievedChunk struct {
	Text             string  `json:"text"`
	SimilarityScore  float64 `json:"similarity_score"`
	SourceDocumentID string  `json:"source_document_id"`
	PageOrOffset     string  `json:"page_or_offset,omitempty"`
}

// ContextBundle is the context handed to the answer generator.
// Chunks are in descending similarity and Tokens never exceeds TokenBudget.
type ContextBundle struct {
	Chunks      []RetrievedChunk `json:"chunks"`
	Tokens      int              `json:"tokens"`
	TokenBudget int              `json:"token_budget"`
	// Confidence is the mean similarity of what the store returned.
	Confidence float64 `json:"confidence"`
	K          int     `json:"k"`
	// Truncated is set when low confidence shrank the result.
	Truncated bool `json:"truncated"`
}

// Empty reports whether the bundle holds no usable context.
func (b ContextBundle) Empty() bool {
	return len(b.Chunks) == 0
}

// Text renders the chunks for the prompt, each prefixed with its source.
func (b ContextBundle) Text() string {
	var sb strings.Builder
	for i, c := range b.Chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("[")
		sb.WriteString(c.SourceDocumentID)
		if c.PageOrOffset != "" {
			sb.WriteString(" ")
			sb.WriteString(c.PageOrOffset)
		}
		sb.WriteString("]\n")
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// EstimateTokens approximates the token count of s as ceil(chars/4),
// never less than the number of words.
func EstimateTokens(s string) int {
	chars := utf8.RuneCountInString(s)
	if chars == 0 {
		return 0
	}
	est := int(math.Ceil(float64(chars) / 4))
	if words := len(strings.Fields(s)); words > est {
		return words
	}
	return est
}

package answer

import (
	"encoding/json"
	"strings"

	"docqa-gateway/internal/visualization"
)

type structuredReply struct {
	Answer        json.RawMessage `json:"answer"`
	Visualization json.RawMessage `json:"visualization"`
}

// ParseContent reads a model reply. JSON replies are split into answer and
// visualization; anything else is treated as plain text, and a pipe table
// inside it becomes the visualization payload.
func ParseContent(content string) Generation {
	body := stripCodeFence(content)

	var reply structuredReply
	if err := json.Unmarshal([]byte(body), &reply); err == nil && len(reply.Answer) > 0 {
		gen := Generation{AnswerText: rawText(reply.Answer)}

		var payload map[string]any
		if len(reply.Visualization) > 0 && json.Unmarshal(reply.Visualization, &payload) == nil && len(payload) > 0 {
			gen.Visualization = visualization.RawPayload(payload)
		}
		var tableText string
		if gen.Visualization == nil && json.Unmarshal(reply.Visualization, &tableText) == nil && strings.Contains(tableText, "|") {
			gen.Visualization = visualization.RawPayload{"table": tableText}
		}
		if gen.Visualization == nil {
			gen.AnswerText, gen.Visualization = splitTable(gen.AnswerText)
		}
		return gen
	}

	text, payload := splitTable(content)
	return Generation{AnswerText: text, Visualization: payload}
}

// rawText accepts a JSON string, or renders any other JSON value as text.
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// splitTable moves a markdown table out of text into a payload.
func splitTable(text string) (string, visualization.RawPayload) {
	if !strings.Contains(text, "|") {
		return text, nil
	}
	if _, _, ok := visualization.ParseMarkdownTable(text); !ok {
		return text, nil
	}

	var prose, table []string
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "|") {
			table = append(table, line)
		} else {
			prose = append(prose, line)
		}
	}
	return strings.TrimSpace(strings.Join(prose, "\n")), visualization.RawPayload{
		"table": strings.Join(table, "\n"),
	}
}

// Package contract decides the final visualization shape of an answer.
// A table is never returned when the user asked for a chart.
package contract

import (
	"regexp"
	"strings"
)

// Intent is what the user asked for, as far as visualization goes.
type Intent int

const (
	IntentNotRequested Intent = iota
	IntentChartRequested
)

func (i Intent) String() string {
	if i == IntentChartRequested {
		return "chart_requested"
	}
	return "not_requested"
}

// DefaultChartKeywords trigger IntentChartRequested when no list is configured.
var DefaultChartKeywords = []string{
	"chart",
	"graph",
	"visualize",
	"visualise",
	"plot",
	"diagram",
	"pie",
	"bar chart",
	"histogram",
}

// IntentClassifier matches configured keywords on word boundaries,
// case-insensitively. It holds no state beyond the compiled patterns.
type IntentClassifier struct {
	keywords []string
	pattern  *regexp.Regexp
}

// NewIntentClassifier compiles keywords. Blank entries are ignored; an empty
// list falls back to DefaultChartKeywords.
func NewIntentClassifier(keywords []string) *IntentClassifier {
	var clean []string
	for _, k := range keywords {
		k = strings.ToLower(strings.Join(strings.Fields(k), " "))
		if k != "" {
			clean = append(clean, k)
		}
	}
	if len(clean) == 0 {
		clean = append(clean, DefaultChartKeywords...)
	}

	alts := make([]string, len(clean))
	for i, k := range clean {
		words := strings.Fields(k)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alts[i] = strings.Join(words, `\s+`)
	}

	return &IntentClassifier{
		keywords: clean,
		pattern:  regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`),
	}
}

// Keywords returns the normalized keyword list.
func (c *IntentClassifier) Keywords() []string {
	out := make([]string, len(c.keywords))
	copy(out, c.keywords)
	return out
}

// Classify reports whether question asks for a chart.
func (c *IntentClassifier) Classify(question string) Intent {
	if c.pattern.MatchString(question) {
		return IntentChartRequested
	}
	return IntentNotRequested
}

package visualization

import (
	"fmt"
	"strconv"
	"strings"
)

// RawPayload is the visualization object as decoded from the generator's
// JSON. Any key may be missing or carry an unexpected type.
type RawPayload map[string]any

// DefaultErrorMessage is used when the payload flags an error without text.
const DefaultErrorMessage = "The visualization could not be produced."

var chartTypeAliases = map[string]ChartType{
	"bar":         Bar,
	"column":      Bar,
	"line":        Line,
	"pie":         Pie,
	"doughnut":    Pie,
	"donut":       Pie,
	"stacked_bar": StackedBar,
	"stacked-bar": StackedBar,
	"stackedbar":  StackedBar,
	"stacked":     StackedBar,
}

// ParseChartType maps a loose chart tag onto a ChartType.
func ParseChartType(tag string) (ChartType, bool) {
	t, ok := chartTypeAliases[strings.ToLower(strings.TrimSpace(tag))]
	return t, ok
}

// Classify turns a raw payload into a Result. It is pure: the same input
// always yields the same output, and a payload it cannot place is None.
func Classify(raw RawPayload) Result {
	if len(raw) == 0 {
		return None()
	}

	if msg, ok := errorMarker(raw); ok {
		return Error(msg)
	}

	// {"chart": {...}} and {"table": {...}} wrappers
	if nested, ok := raw["chart"].(map[string]any); ok {
		if c, ok := chartFrom(RawPayload(nested)); ok {
			return ChartResult(c)
		}
	}
	if c, ok := chartFrom(raw); ok {
		return ChartResult(c)
	}

	if nested, ok := raw["table"].(map[string]any); ok {
		if t, ok := tableFrom(RawPayload(nested)); ok {
			return TableResult(t)
		}
	}
	if t, ok := tableFrom(raw); ok {
		return TableResult(t)
	}

	return None()
}

func errorMarker(raw RawPayload) (string, bool) {
	v, present := raw["error"]
	if !present {
		return "", false
	}
	switch e := v.(type) {
	case string:
		if strings.TrimSpace(e) == "" {
			return "", false
		}
		return strings.TrimSpace(e), true
	case bool:
		if e {
			return DefaultErrorMessage, true
		}
	case map[string]any:
		if msg, ok := e["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg), true
		}
		return DefaultErrorMessage, true
	}
	return "", false
}

func chartFrom(raw RawPayload) (*Chart, bool) {
	tag := firstString(raw, "type", "chart_type", "chartType", "kind")
	chartType, ok := ParseChartType(tag)
	if !ok {
		return nil, false
	}

	labels, ok := stringList(raw["labels"])
	if !ok || len(labels) == 0 {
		return nil, false
	}
	values, ok := numberList(raw["values"])
	if !ok || len(values) != len(labels) {
		return nil, false
	}

	c := &Chart{
		Type:   chartType,
		Labels: labels,
		Values: values,
	}

	if groups, ok := raw["groups"].(map[string]any); ok {
		for name, g := range groups {
			if vals, ok := numberList(g); ok && len(vals) == len(labels) {
				if c.Groups == nil {
					c.Groups = make(map[string][]float64)
				}
				c.Groups[name] = vals
			}
		}
	}

	if axes, ok := raw["axis_titles"].(map[string]any); ok {
		x, _ := axes["x"].(string)
		y, _ := axes["y"].(string)
		if x != "" || y != "" {
			c.AxisTitles = &AxisTitles{X: x, Y: y}
		}
	} else {
		x := firstString(raw, "x_axis", "x_title")
		y := firstString(raw, "y_axis", "y_title")
		if x != "" || y != "" {
			c.AxisTitles = &AxisTitles{X: x, Y: y}
		}
	}

	return c, true
}

func tableFrom(raw RawPayload) (*Table, bool) {
	if headers, ok := stringList(raw["headers"]); ok && len(headers) > 0 {
		if rows, ok := rowList(raw["rows"]); ok && len(rows) > 0 {
			return buildTable(headers, rows), true
		}
	}

	for _, key := range []string{"table", "markdown", "table_markdown"} {
		text, ok := raw[key].(string)
		if !ok || !strings.Contains(text, "|") {
			continue
		}
		if headers, rows, ok := ParseMarkdownTable(text); ok {
			return buildTable(headers, rows), true
		}
	}

	return nil, false
}

func firstString(raw RawPayload, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// stringList accepts []any of strings or numbers.
func stringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := cellString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// numberList accepts []any of numbers or numeric strings.
func numberList(v any) ([]float64, bool) {
	switch list := v.(type) {
	case []float64:
		return list, true
	case []any:
		out := make([]float64, 0, len(list))
		for _, item := range list {
			switch n := item.(type) {
			case float64:
				out = append(out, n)
			case int:
				out = append(out, float64(n))
			case string:
				f, ok := ParseNumber(n)
				if !ok {
					return nil, false
				}
				out = append(out, f)
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

func rowList(v any) ([][]string, bool) {
	switch list := v.(type) {
	case [][]string:
		return list, true
	case []any:
		out := make([][]string, 0, len(list))
		for _, item := range list {
			row, ok := stringList(item)
			if !ok {
				return nil, false
			}
			out = append(out, row)
		}
		return out, true
	}
	return nil, false
}

func cellString(v any) (string, bool) {
	switch c := v.(type) {
	case string:
		return c, true
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64), true
	case int:
		return strconv.Itoa(c), true
	case bool:
		return strconv.FormatBool(c), true
	case nil:
		return "", true
	default:
		return fmt.Sprint(c), true
	}
}

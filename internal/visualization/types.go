// Package visualization classifies loosely-typed visualization payloads
// coming back from the answer generator into a closed set of shapes.
package visualization

import (
	"strings"
)

// Kind tags a Result.
type Kind string

const (
	KindNone  Kind = "none"
	KindChart Kind = "chart"
	KindTable Kind = "table"
	KindError Kind = "error"
)

// ChartType is one of the chart shapes clients know how to draw.
type ChartType string

const (
	Bar        ChartType = "bar"
	Line       ChartType = "line"
	Pie        ChartType = "pie"
	StackedBar ChartType = "stacked_bar"
)

// Valid reports whether t is a drawable chart type.
func (t ChartType) Valid() bool {
	switch t {
	case Bar, Line, Pie, StackedBar:
		return true
	}
	return false
}

// AxisTitles are optional axis captions.
type AxisTitles struct {
	X string `json:"x,omitempty"`
	Y string `json:"y,omitempty"`
}

type Chart struct {
	Type       ChartType            `json:"type"`
	Labels     []string             `json:"labels"`
	Values     []float64            `json:"values"`
	Groups     map[string][]float64 `json:"groups,omitempty"`
	AxisTitles *AxisTitles          `json:"axis_titles,omitempty"`
}

type Table struct {
	Headers []string
	Rows    [][]string
	// NumericColumns lists column indexes whose every non-empty cell is a number.
	NumericColumns []int
	// TotalRows lists row indexes with a cell mentioning "total"; they are
	// rendered with emphasis, never dropped.
	TotalRows []int
}

// IsNumericColumn reports whether column i was detected as numeric.
func (t *Table) IsNumericColumn(i int) bool {
	for _, c := range t.NumericColumns {
		if c == i {
			return true
		}
	}
	return false
}

// IsTotalRow reports whether row i was flagged as a total.
func (t *Table) IsTotalRow(i int) bool {
	for _, r := range t.TotalRows {
		if r == i {
			return true
		}
	}
	return false
}

// ColumnIndex finds a header case-insensitively, or returns -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Markdown serializes the table as a pipe table.
func (t *Table) Markdown() string {
	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for _, c := range cells {
			sb.WriteString(" ")
			sb.WriteString(strings.ReplaceAll(c, "|", "/"))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(t.Headers)
	sep := make([]string, len(t.Headers))
	for i := range sep {
		if t.IsNumericColumn(i) {
			sep[i] = "---:"
		} else {
			sep[i] = "---"
		}
	}
	writeRow(sep)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Result is the only visualization shape that leaves the pipeline.
// Exactly one of Chart/Table is set for KindChart/KindTable; Message is
// set for KindError.
type Result struct {
	Kind    Kind
	Chart   *Chart
	Table   *Table
	Message string
}

func None() Result { return Result{Kind: KindNone} }

func ChartResult(c *Chart) Result { return Result{Kind: KindChart, Chart: c} }

func TableResult(t *Table) Result { return Result{Kind: KindTable, Table: t} }

func Error(message string) Result { return Result{Kind: KindError, Message: message} }

package contract

import (
	"strings"

	"docqa-gateway/internal/visualization"
)

// Conversion rule names, reported in the enforcer trace.
const (
	RuleDebitCredit   = "debit_credit"
	RuleSingleNumeric = "single_numeric_column"
	RuleCategories    = "categorical_totals"
)

// categorySets are tried in order by the categorical rule. A set applies
// when at least two of its categories are found among the row labels.
var categorySets = [][]string{
	{"assets", "liabilities", "equity"},
	{"revenue", "expenses"},
}

type conversionRule struct {
	name    string
	convert func(t *visualization.Table) (*visualization.Chart, bool)
}

var conversionRules = []conversionRule{
	{RuleDebitCredit, convertDebitCredit},
	{RuleSingleNumeric, convertSingleNumeric},
	{RuleCategories, convertCategories},
}

// Convert turns a table into a chart using the first rule that matches.
// It returns the rule name, or ok=false when no rule applies.
func Convert(t *visualization.Table) (chart *visualization.Chart, rule string, ok bool) {
	if t == nil || len(t.Headers) == 0 || len(t.Rows) == 0 {
		return nil, "", false
	}
	for _, r := range conversionRules {
		if c, ok := r.convert(t); ok {
			return c, r.name, true
		}
	}
	return nil, "", false
}

// labelColumn is the first non-numeric column, or 0.
func labelColumn(t *visualization.Table) int {
	for i := range t.Headers {
		if !t.IsNumericColumn(i) {
			return i
		}
	}
	return 0
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func convertDebitCredit(t *visualization.Table) (*visualization.Chart, bool) {
	debit, credit := t.ColumnIndex("debit"), t.ColumnIndex("credit")
	if debit < 0 || credit < 0 {
		return nil, false
	}

	label := labelColumn(t)
	if label == debit || label == credit {
		return nil, false
	}

	c := &visualization.Chart{Type: visualization.Bar}
	for i, row := range t.Rows {
		if t.IsTotalRow(i) {
			continue
		}
		name := cell(row, label)
		if name == "" {
			continue
		}
		d, dok := visualization.ParseNumber(cell(row, debit))
		cr, cok := visualization.ParseNumber(cell(row, credit))
		if !dok && !cok {
			continue
		}
		v := d
		if !dok || (cok && cr > d) {
			v = cr
		}
		c.Labels = append(c.Labels, name)
		c.Values = append(c.Values, v)
	}

	if len(c.Labels) == 0 {
		return nil, false
	}
	c.AxisTitles = &visualization.AxisTitles{X: t.Headers[label], Y: "Amount"}
	return c, true
}

func convertSingleNumeric(t *visualization.Table) (*visualization.Chart, bool) {
	label := labelColumn(t)

	value := -1
	for _, col := range t.NumericColumns {
		if col == label {
			continue
		}
		if value >= 0 {
			// more than one numeric column
			return nil, false
		}
		value = col
	}
	if value < 0 {
		return nil, false
	}

	c := &visualization.Chart{Type: visualization.Bar}
	for i, row := range t.Rows {
		if t.IsTotalRow(i) {
			continue
		}
		name := cell(row, label)
		v, ok := visualization.ParseNumber(cell(row, value))
		if name == "" || !ok {
			continue
		}
		c.Labels = append(c.Labels, name)
		c.Values = append(c.Values, v)
	}

	if len(c.Labels) == 0 {
		return nil, false
	}
	c.AxisTitles = &visualization.AxisTitles{X: t.Headers[label], Y: t.Headers[value]}
	return c, true
}

func convertCategories(t *visualization.Table) (*visualization.Chart, bool) {
	label := labelColumn(t)

	for _, set := range categorySets {
		used := make(map[int]bool)
		c := &visualization.Chart{Type: visualization.Pie}

		for _, category := range set {
			row := findCategoryRow(t, label, category, used)
			if row < 0 {
				continue
			}
			v, ok := firstNumber(t, t.Rows[row], label)
			if !ok {
				continue
			}
			used[row] = true
			c.Labels = append(c.Labels, cell(t.Rows[row], label))
			c.Values = append(c.Values, v)
		}

		if len(c.Labels) >= 2 {
			return c, true
		}
	}
	return nil, false
}

// findCategoryRow prefers a label equal to the category or "total <category>",
// then any label containing it.
func findCategoryRow(t *visualization.Table, label int, category string, used map[int]bool) int {
	contains := -1
	for i, row := range t.Rows {
		if used[i] {
			continue
		}
		name := strings.ToLower(strings.Join(strings.Fields(cell(row, label)), " "))
		if name == category || name == "total "+category {
			return i
		}
		if contains < 0 && strings.Contains(name, category) {
			contains = i
		}
	}
	return contains
}

func firstNumber(t *visualization.Table, row []string, label int) (float64, bool) {
	for _, col := range t.NumericColumns {
		if col == label {
			continue
		}
		if v, ok := visualization.ParseNumber(cell(row, col)); ok {
			return v, true
		}
	}
	return 0, false
}

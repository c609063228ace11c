package contract

import (
	"math"
	"reflect"
	"testing"

	"docqa-gateway/internal/visualization"
)

func tableResult(t *testing.T, payload visualization.RawPayload) visualization.Result {
	t.Helper()
	r := visualization.Classify(payload)
	if r.Kind != visualization.KindTable {
		t.Fatalf("fixture should classify as table, got %s", r.Kind)
	}
	return r
}

func TestEnforce_DebitCreditConversion(t *testing.T) {
	classified := tableResult(t, visualization.RawPayload{
		"headers": []any{"Account", "Debit", "Credit"},
		"rows":    []any{[]any{"Rent", "500", "0"}, []any{"Bank", "0", "500"}},
	})

	out := NewEnforcer().Enforce(IntentChartRequested, classified)

	if out.Result.Kind != visualization.KindChart {
		t.Fatalf("expected chart, got %+v", out.Result)
	}
	c := out.Result.Chart
	if c.Type != visualization.Bar {
		t.Fatalf("expected bar chart, got %s", c.Type)
	}
	if !reflect.DeepEqual(c.Labels, []string{"Rent", "Bank"}) {
		t.Fatalf("unexpected labels %v", c.Labels)
	}
	if !reflect.DeepEqual(c.Values, []float64{500, 500}) {
		t.Fatalf("unexpected values %v", c.Values)
	}
	if out.Rule != RuleDebitCredit {
		t.Fatalf("expected debit/credit rule, got %q", out.Rule)
	}
	wantTrace := []State{StateNormalize, StateConvert, StateValidate, StateFinalize}
	if !reflect.DeepEqual(out.Trace, wantTrace) {
		t.Fatalf("unexpected trace %v", out.Trace)
	}
}

func TestEnforce_SingleNumericColumn(t *testing.T) {
	classified := tableResult(t, visualization.RawPayload{
		"headers": []any{"Expense", "Amount"},
		"rows": []any{
			[]any{"Rent", "$1,200"},
			[]any{"Utilities", "300"},
			[]any{"Total", "1,500"},
		},
	})

	out := NewEnforcer().Enforce(IntentChartRequested, classified)
	if out.Result.Kind != visualization.KindChart || out.Rule != RuleSingleNumeric {
		t.Fatalf("expected single-column conversion, got %+v rule=%q", out.Result, out.Rule)
	}
	if !reflect.DeepEqual(out.Result.Chart.Labels, []string{"Rent", "Utilities"}) {
		t.Fatalf("total row should not be plotted: %v", out.Result.Chart.Labels)
	}
}

func TestEnforce_CategoricalPie(t *testing.T) {
	classified := tableResult(t, visualization.RawPayload{
		"headers": []any{"Item", "2023", "2022"},
		"rows": []any{
			[]any{"Cash", "100", "90"},
			[]any{"Total Assets", "1,000", "900"},
			[]any{"Total Liabilities", "600", "500"},
			[]any{"Equity", "400", "400"},
		},
	})

	out := NewEnforcer().Enforce(IntentChartRequested, classified)
	if out.Result.Kind != visualization.KindChart || out.Rule != RuleCategories {
		t.Fatalf("expected pie conversion, got %+v rule=%q", out.Result, out.Rule)
	}
	c := out.Result.Chart
	if c.Type != visualization.Pie {
		t.Fatalf("expected pie, got %s", c.Type)
	}
	if !reflect.DeepEqual(c.Labels, []string{"Total Assets", "Total Liabilities", "Equity"}) {
		t.Fatalf("unexpected labels %v", c.Labels)
	}
	if !reflect.DeepEqual(c.Values, []float64{1000, 600, 400}) {
		t.Fatalf("unexpected values %v", c.Values)
	}
}

func TestEnforce_UnconvertibleTableBecomesError(t *testing.T) {
	classified := tableResult(t, visualization.RawPayload{
		"table": "| Topic | Notes |\n|---|---|\n| Expenses | Rose sharply in Q3 |\n| Outlook | Cautious |",
	})

	out := NewEnforcer().Enforce(IntentChartRequested, classified)
	if out.Result.Kind != visualization.KindError || out.Result.Message != ChartUnavailableMessage {
		t.Fatalf("expected fixed error, got %+v", out.Result)
	}
	if out.Reason == "" {
		t.Fatalf("expected a downgrade reason")
	}
}

// Whatever the table, a chart request never yields a table.
func TestEnforce_NeverTableWhenChartRequested(t *testing.T) {
	tables := []visualization.RawPayload{
		{"headers": []any{"Account", "Debit", "Credit"}, "rows": []any{[]any{"Rent", "500", "0"}}},
		{"headers": []any{"A", "B", "C"}, "rows": []any{[]any{"x", "1", "2"}, []any{"y", "3", "4"}}},
		{"headers": []any{"Name"}, "rows": []any{[]any{"only text"}}},
		{"headers": []any{"Year", "Value"}, "rows": []any{[]any{"2023", "-"}}},
		{"table": "| a | b |\n|---|---|\n| - | - |"},
		{"headers": []any{"Account", "Debit", "Credit"}, "rows": []any{[]any{"Total", "1", "1"}}},
	}

	e := NewEnforcer()
	for i, raw := range tables {
		classified := visualization.Classify(raw)
		if classified.Kind != visualization.KindTable {
			continue
		}
		out := e.Enforce(IntentChartRequested, classified)
		switch out.Result.Kind {
		case visualization.KindChart:
			if err := ValidateChart(out.Result.Chart); err != nil {
				t.Fatalf("case %d: emitted invalid chart: %v", i, err)
			}
		case visualization.KindError:
		default:
			t.Fatalf("case %d: chart request produced %s", i, out.Result.Kind)
		}
	}
}

func TestEnforce_NotRequestedPassesThrough(t *testing.T) {
	e := NewEnforcer()

	table := tableResult(t, visualization.RawPayload{
		"headers": []any{"Account", "Debit", "Credit"},
		"rows":    []any{[]any{"Rent", "500", "0"}},
	})
	if out := e.Enforce(IntentNotRequested, table); out.Result.Kind != visualization.KindTable {
		t.Fatalf("table should pass through, got %s", out.Result.Kind)
	}

	if out := e.Enforce(IntentNotRequested, visualization.None()); out.Result.Kind != visualization.KindNone {
		t.Fatalf("none should pass through, got %s", out.Result.Kind)
	}

	bad := visualization.ChartResult(&visualization.Chart{
		Type:   visualization.Bar,
		Labels: []string{"a"},
		Values: []float64{math.Inf(1)},
	})
	if out := e.Enforce(IntentNotRequested, bad); out.Result.Kind != visualization.KindNone {
		t.Fatalf("invalid chart should degrade to none, got %s", out.Result.Kind)
	}
}

func TestEnforce_ErrorPassesThrough(t *testing.T) {
	for _, intent := range []Intent{IntentNotRequested, IntentChartRequested} {
		out := NewEnforcer().Enforce(intent, visualization.Error("upstream failed"))
		if out.Result.Kind != visualization.KindError || out.Result.Message != "upstream failed" {
			t.Fatalf("%s: expected error to pass through, got %+v", intent, out.Result)
		}
		if out.Result.Chart != nil || out.Result.Table != nil {
			t.Fatalf("error result must not carry a chart or table")
		}
	}
}

func TestEnforce_ChartRequestedWithoutPayload(t *testing.T) {
	out := NewEnforcer().Enforce(IntentChartRequested, visualization.None())
	if out.Result.Kind != visualization.KindError || out.Result.Message != ChartUnavailableMessage {
		t.Fatalf("expected fixed error, got %+v", out.Result)
	}
}

func TestValidateChart(t *testing.T) {
	cases := map[string]*visualization.Chart{
		"nil":      nil,
		"type":     {Type: "radar", Labels: []string{"a"}, Values: []float64{1}},
		"empty":    {Type: visualization.Line},
		"mismatch": {Type: visualization.Line, Labels: []string{"a", "b"}, Values: []float64{1}},
		"nan":      {Type: visualization.Pie, Labels: []string{"a"}, Values: []float64{math.NaN()}},
		"group":    {Type: visualization.StackedBar, Labels: []string{"a"}, Values: []float64{1}, Groups: map[string][]float64{"g": {1, 2}}},
	}
	for name, c := range cases {
		if err := ValidateChart(c); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	ok := &visualization.Chart{Type: visualization.StackedBar, Labels: []string{"a"}, Values: []float64{1}, Groups: map[string][]float64{"g": {2}}}
	if err := ValidateChart(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

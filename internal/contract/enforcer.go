package contract

import (
	"docqa-gateway/internal/visualization"
)

// ChartUnavailableMessage replaces the answer when a chart was requested but
// none could be produced.
const ChartUnavailableMessage = "No structured financial data available to generate a chart."

// State is a step of the enforcer.
type State string

const (
	StateNormalize State = "normalize"
	StateConvert   State = "convert"
	StateValidate  State = "validate"
	StateFinalize  State = "finalize"
)

// Outcome is the enforced result together with how it was reached.
type Outcome struct {
	Result visualization.Result
	Trace  []State
	// Rule is the conversion rule that produced the chart, if any.
	Rule string
	// Reason explains a downgrade (validation error, failed conversion).
	Reason string
}

// Enforcer is stateless and safe for concurrent use.
type Enforcer struct{}

func NewEnforcer() *Enforcer { return &Enforcer{} }

// Enforce runs Normalize -> Convert -> Validate -> Finalize over the
// classified payload.
func (e *Enforcer) Enforce(intent Intent, classified visualization.Result) Outcome {
	out := Outcome{Trace: []State{StateNormalize}}
	candidate := classified

	if intent == IntentChartRequested && candidate.Kind == visualization.KindTable {
		out.Trace = append(out.Trace, StateConvert)
		chart, rule, ok := Convert(candidate.Table)
		if ok {
			candidate = visualization.ChartResult(chart)
			out.Rule = rule
		} else {
			out.Reason = "table could not be converted to a chart"
		}
	}

	validChart := false
	if candidate.Kind == visualization.KindChart {
		out.Trace = append(out.Trace, StateValidate)
		if err := ValidateChart(candidate.Chart); err != nil {
			out.Reason = err.Error()
		} else {
			validChart = true
		}
	}

	out.Trace = append(out.Trace, StateFinalize)
	out.Result = finalize(intent, candidate, validChart)
	return out
}

func finalize(intent Intent, candidate visualization.Result, validChart bool) visualization.Result {
	if candidate.Kind == visualization.KindError {
		return visualization.Error(candidate.Message)
	}

	if intent == IntentChartRequested {
		if validChart {
			return visualization.ChartResult(candidate.Chart)
		}
		return visualization.Error(ChartUnavailableMessage)
	}

	switch candidate.Kind {
	case visualization.KindChart:
		if validChart {
			return visualization.ChartResult(candidate.Chart)
		}
		return visualization.None()
	case visualization.KindTable:
		if candidate.Table == nil {
			return visualization.None()
		}
		return visualization.TableResult(candidate.Table)
	default:
		return visualization.None()
	}
}

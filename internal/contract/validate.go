package contract

import (
	"errors"
	"fmt"
	"math"

	"docqa-gateway/internal/visualization"
)

var (
	ErrNoChart          = errors.New("no chart")
	ErrInvalidChartType = errors.New("invalid chart type")
	ErrEmptyChart       = errors.New("chart has no data points")
	ErrLengthMismatch   = errors.New("labels and values differ in length")
	ErrNonFiniteValue   = errors.New("chart value is not finite")
)

// ValidateChart checks the shape every emitted chart must have.
func ValidateChart(c *visualization.Chart) error {
	if c == nil {
		return ErrNoChart
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidChartType, c.Type)
	}
	if len(c.Labels) == 0 || len(c.Values) == 0 {
		return ErrEmptyChart
	}
	if len(c.Labels) != len(c.Values) {
		return fmt.Errorf("%w: %d labels, %d values", ErrLengthMismatch, len(c.Labels), len(c.Values))
	}
	if err := finite(c.Values); err != nil {
		return err
	}
	for name, g := range c.Groups {
		if len(g) != len(c.Labels) {
			return fmt.Errorf("%w: group %q", ErrLengthMismatch, name)
		}
		if err := finite(g); err != nil {
			return fmt.Errorf("group %q: %w", name, err)
		}
	}
	return nil
}

func finite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFiniteValue, i)
		}
	}
	return nil
}

// Package rules implements the optimization rule engine: priority-ordered
// condition/action policies evaluated against live platform metrics.
package rules

import (
	"errors"
	"fmt"
	"math"

	"github.com/tonearm/labelcore/internal/models"
)

// ErrUnknownMetric is returned when a condition references a metric the feed
// does not carry. The owning rule is skipped and surfaced as a warning.
var ErrUnknownMetric = errors.New("unknown metric")

// ErrUnknownOperator is returned for operators outside the closed set.
var ErrUnknownOperator = errors.New("unknown operator")

// eqEpsilon bounds float comparison for the eq operator.
const eqEpsilon = 1e-9

// Metrics is a snapshot of one platform's metric feed. Values holds the
// current readings; History holds readings at the start of each timeframe
// window (keyed timeframe -> metric) for the change operator.
type Metrics struct {
	Values  map[string]float64
	History map[string]map[string]float64
}

// Get returns the current value of a metric.
func (m Metrics) Get(name string) (float64, bool) {
	v, ok := m.Values[name]
	return v, ok
}

// ChangePercent returns the percentage delta of a metric over a timeframe.
func (m Metrics) ChangePercent(name, timeframe string) (float64, bool) {
	current, ok := m.Values[name]
	if !ok {
		return 0, false
	}
	window, ok := m.History[timeframe]
	if !ok {
		return 0, false
	}
	past, ok := window[name]
	if !ok {
		return 0, false
	}
	if past == 0 {
		return 0, false
	}
	return (current - past) / past * 100, true
}

// EvalCondition reports whether a single condition holds against the
// metrics. Referencing a metric (or timeframe window) the feed does not
// carry is an ErrUnknownMetric, not a non-match.
func EvalCondition(c models.Condition, m Metrics) (bool, error) {
	switch c.Operator {
	case models.OpGreaterThan, models.OpLessThan, models.OpEqual:
		value, ok := m.Get(c.Metric)
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownMetric, c.Metric)
		}
		return compare(c.Operator, value, c.Value), nil

	case models.OpChange:
		delta, ok := m.ChangePercent(c.Metric, c.Timeframe)
		if !ok {
			return false, fmt.Errorf("%w: %s over %q", ErrUnknownMetric, c.Metric, c.Timeframe)
		}
		return delta > c.Value, nil

	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownOperator, c.Operator)
	}
}

// EvalConditions reports whether every condition holds (conjunction). A rule
// with zero conditions always matches.
func EvalConditions(conditions []models.Condition, m Metrics) (bool, error) {
	for _, c := range conditions {
		ok, err := EvalCondition(c, m)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func compare(op models.Operator, value, threshold float64) bool {
	switch op {
	case models.OpGreaterThan:
		return value > threshold
	case models.OpLessThan:
		return value < threshold
	case models.OpEqual:
		return math.Abs(value-threshold) < eqEpsilon
	default:
		return false
	}
}

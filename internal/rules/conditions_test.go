package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/rules"
)

func feedWithHistory() rules.Metrics {
	return rules.Metrics{
		Values: map[string]float64{
			"revenue": 400,
			"streams": 12000,
			"rating":  4.5,
		},
		History: map[string]map[string]float64{
			"weekly": {
				"revenue": 500,
				"streams": 10000,
			},
		},
	}
}

func TestEvalCondition(t *testing.T) {
	t.Helper()

	tests := []struct {
		name      string
		condition models.Condition
		want      bool
		wantErr   error
	}{
		{
			name:      "gt matches above threshold",
			condition: models.Condition{Metric: "streams", Operator: models.OpGreaterThan, Value: 10000},
			want:      true,
		},
		{
			name:      "gt does not match at threshold",
			condition: models.Condition{Metric: "streams", Operator: models.OpGreaterThan, Value: 12000},
			want:      false,
		},
		{
			name:      "lt matches below threshold",
			condition: models.Condition{Metric: "revenue", Operator: models.OpLessThan, Value: 500},
			want:      true,
		},
		{
			name:      "eq matches within epsilon",
			condition: models.Condition{Metric: "rating", Operator: models.OpEqual, Value: 4.5},
			want:      true,
		},
		{
			name:      "change matches rise beyond threshold",
			condition: models.Condition{Metric: "streams", Operator: models.OpChange, Value: 10, Timeframe: "weekly"},
			want:      true, // +20% over the weekly window
		},
		{
			name:      "change does not match a drop",
			condition: models.Condition{Metric: "revenue", Operator: models.OpChange, Value: 10, Timeframe: "weekly"},
			want:      false, // -20% over the weekly window
		},
		{
			name:      "unknown metric is an error, not a non-match",
			condition: models.Condition{Metric: "downloads", Operator: models.OpGreaterThan, Value: 1},
			wantErr:   rules.ErrUnknownMetric,
		},
		{
			name:      "change without a history window is an error",
			condition: models.Condition{Metric: "rating", Operator: models.OpChange, Value: 1, Timeframe: "daily"},
			wantErr:   rules.ErrUnknownMetric,
		},
		{
			name:      "unknown operator is an error",
			condition: models.Condition{Metric: "revenue", Operator: "between", Value: 1},
			wantErr:   rules.ErrUnknownOperator,
		},
	}

	m := feedWithHistory()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := rules.EvalCondition(tc.condition, m)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvalConditionsConjunction(t *testing.T) {
	t.Helper()
	m := feedWithHistory()

	both := []models.Condition{
		{Metric: "revenue", Operator: models.OpLessThan, Value: 500},
		{Metric: "streams", Operator: models.OpGreaterThan, Value: 10000},
	}
	got, err := rules.EvalConditions(both, m)
	require.NoError(t, err)
	assert.True(t, got)

	oneFails := []models.Condition{
		{Metric: "revenue", Operator: models.OpLessThan, Value: 500},
		{Metric: "streams", Operator: models.OpGreaterThan, Value: 50000},
	}
	got, err = rules.EvalConditions(oneFails, m)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvalConditionsEmptyAlwaysMatches(t *testing.T) {
	t.Helper()

	got, err := rules.EvalConditions(nil, rules.Metrics{Values: map[string]float64{}})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestChangePercentZeroBaseline(t *testing.T) {
	t.Helper()

	m := rules.Metrics{
		Values:  map[string]float64{"revenue": 100},
		History: map[string]map[string]float64{"weekly": {"revenue": 0}},
	}

	// A zero baseline cannot express a percentage change.
	_, ok := m.ChangePercent("revenue", "weekly")
	assert.False(t, ok)
}

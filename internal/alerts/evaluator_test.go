package alerts_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/labelcore/internal/alerts"
	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/rules"
)

func alertRule(name string, conditions []models.Condition) models.AlertRule {
	return models.AlertRule{
		ID:         uuid.New(),
		Name:       name,
		Enabled:    true,
		Conditions: conditions,
	}
}

func TestCheckFiresOnMatch(t *testing.T) {
	t.Helper()

	evaluator := alerts.NewEvaluator()
	rule := alertRule("revenue floor", []models.Condition{
		{Metric: "revenue", Operator: models.OpLessThan, Value: 500},
	})
	m := rules.Metrics{Values: map[string]float64{"revenue": 300}}

	fired, warnings := evaluator.Check([]models.AlertRule{rule}, "spotify", m)

	assert.Empty(t, warnings)
	require.Len(t, fired, 1)
	alert := fired[0]
	assert.Equal(t, rule.ID, alert.RuleID)
	assert.Equal(t, "spotify", alert.PlatformKey)
	assert.Equal(t, "revenue", alert.Metric)
	assert.Equal(t, 300.0, alert.ObservedValue)
	assert.Equal(t, 500.0, alert.Threshold)
	assert.False(t, alert.Acknowledged)
	assert.NotEmpty(t, alert.Message)
}

func TestCheckSkipsDisabledAndOutOfScope(t *testing.T) {
	t.Helper()

	evaluator := alerts.NewEvaluator()
	m := rules.Metrics{Values: map[string]float64{"revenue": 300}}

	disabled := alertRule("disabled", []models.Condition{
		{Metric: "revenue", Operator: models.OpLessThan, Value: 500},
	})
	disabled.Enabled = false

	other := "bandcamp"
	scoped := alertRule("scoped elsewhere", []models.Condition{
		{Metric: "revenue", Operator: models.OpLessThan, Value: 500},
	})
	scoped.PlatformKey = &other

	fired, warnings := evaluator.Check([]models.AlertRule{disabled, scoped}, "spotify", m)
	assert.Empty(t, fired)
	assert.Empty(t, warnings)
}

func TestCheckZeroConditionRuleNeverFires(t *testing.T) {
	t.Helper()

	evaluator := alerts.NewEvaluator()
	rule := alertRule("no conditions", nil)
	m := rules.Metrics{Values: map[string]float64{"revenue": 300}}

	fired, warnings := evaluator.Check([]models.AlertRule{rule}, "spotify", m)
	assert.Empty(t, fired)
	assert.Empty(t, warnings)
}

func TestCheckMalformedRuleWarnsAndContinues(t *testing.T) {
	t.Helper()

	evaluator := alerts.NewEvaluator()
	m := rules.Metrics{Values: map[string]float64{"revenue": 300}}

	bad := alertRule("watches unknown metric", []models.Condition{
		{Metric: "downloads", Operator: models.OpGreaterThan, Value: 1},
	})
	good := alertRule("revenue floor", []models.Condition{
		{Metric: "revenue", Operator: models.OpLessThan, Value: 500},
	})

	fired, warnings := evaluator.Check([]models.AlertRule{bad, good}, "spotify", m)

	require.Len(t, warnings, 1)
	assert.Equal(t, bad.ID, warnings[0].RuleID)
	require.Len(t, fired, 1)
	assert.Equal(t, good.ID, fired[0].RuleID)
}

func TestSeverity(t *testing.T) {
	t.Helper()

	tests := []struct {
		name      string
		observed  float64
		threshold float64
		want      models.Severity
	}{
		{"well above threshold", 250, 100, models.SeverityHigh},
		{"moderately above threshold", 150, 100, models.SeverityMedium},
		{"barely above threshold", 110, 100, models.SeverityLow},
		{"shortfall beyond half", 40, 100, models.SeverityHigh},
		{"moderate shortfall", 70, 100, models.SeverityMedium},
		{"slight shortfall", 90, 100, models.SeverityLow},
		{"observed zero under threshold", 0, 100, models.SeverityHigh},
		{"zero threshold with signal", 5, 0, models.SeverityHigh},
		{"zero threshold and zero observed", 0, 0, models.SeverityLow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, alerts.Severity(tc.observed, tc.threshold))
		})
	}
}

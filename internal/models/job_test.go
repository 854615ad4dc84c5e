package models_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tonearm/labelcore/internal/models"
)

func TestComputeProgress(t *testing.T) {
	t.Helper()

	tests := []struct {
		name    string
		targets []string
		results []string
		want    int
	}{
		{"no results", []string{"a", "b", "c"}, nil, 0},
		{"one of three rounds down", []string{"a", "b", "c"}, []string{"a"}, 33},
		{"two of three rounds up", []string{"a", "b", "c"}, []string{"a", "b"}, 67},
		{"all recorded", []string{"a", "b"}, []string{"a", "b"}, 100},
		{"no targets", nil, nil, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			job := models.DistributionJob{
				TargetPlatforms: tc.targets,
				Results:         make(map[string]models.DistributionResult),
			}
			for _, p := range tc.results {
				job.Results[p] = models.DistributionResult{PlatformKey: p}
			}
			assert.Equal(t, tc.want, job.ComputeProgress())
		})
	}
}

func TestRuleAppliesTo(t *testing.T) {
	t.Helper()

	global := models.OptimizationRule{ID: uuid.New()}
	assert.True(t, global.AppliesTo("spotify"))
	assert.True(t, global.AppliesTo("bandcamp"))

	spotify := "spotify"
	scoped := models.OptimizationRule{ID: uuid.New(), PlatformKey: &spotify}
	assert.True(t, scoped.AppliesTo("spotify"))
	assert.False(t, scoped.AppliesTo("bandcamp"))
}

func TestRuleClausesRoundTrip(t *testing.T) {
	t.Helper()

	maxAdj := 15.0
	rule := models.OptimizationRule{
		Conditions: []models.Condition{
			{Metric: "revenue", Operator: models.OpLessThan, Value: 500},
		},
		Actions: []models.Action{
			{Kind: models.ActionPriceDecrease, Value: 10, MaxAdjustment: &maxAdj},
		},
	}

	assert.NoError(t, rule.EncodeClauses())

	decoded := models.OptimizationRule{
		ConditionsJSON: rule.ConditionsJSON,
		ActionsJSON:    rule.ActionsJSON,
	}
	assert.NoError(t, decoded.ParseClauses())
	assert.Equal(t, rule.Conditions, decoded.Conditions)
	assert.Equal(t, rule.Actions, decoded.Actions)
}

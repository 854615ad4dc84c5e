package projector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/projector"
)

func sampleOptimizations() []models.PlatformOptimization {
	return []models.PlatformOptimization{
		{
			PlatformKey:      "spotify",
			CurrentRevenue:   1000,
			ProjectedRevenue: 1100,
			Confidence:       80,
		},
		{
			PlatformKey:      "bandcamp",
			CurrentRevenue:   500,
			ProjectedRevenue: 550,
			Confidence:       60,
		},
	}
}

func TestProjectMonth(t *testing.T) {
	t.Helper()

	p := projector.Project(sampleOptimizations(), models.PeriodMonth)

	assert.Equal(t, models.PeriodMonth, p.Period)
	assert.Equal(t, 1500.0, p.Baseline)
	assert.Equal(t, 1650.0, p.Optimized)
	assert.Equal(t, 10.0, p.Improvement)
	require.Len(t, p.Breakdown, 2)
	assert.Equal(t, "spotify", p.Breakdown[0].PlatformKey)
	assert.Equal(t, 1000.0, p.Breakdown[0].Baseline)
}

func TestProjectPeriodFactors(t *testing.T) {
	t.Helper()

	tests := []struct {
		period       models.ProjectionPeriod
		wantBaseline float64
	}{
		{models.PeriodWeek, 375.0},
		{models.PeriodMonth, 1500.0},
		{models.PeriodQuarter, 4800.0},
		{models.PeriodYear, 19200.0},
	}

	for _, tc := range tests {
		t.Run(string(tc.period), func(t *testing.T) {
			p := projector.Project(sampleOptimizations(), tc.period)
			assert.Equal(t, tc.wantBaseline, p.Baseline)
			// Improvement is scale-invariant across periods.
			assert.Equal(t, 10.0, p.Improvement)
		})
	}
}

func TestProjectZeroBaseline(t *testing.T) {
	t.Helper()

	opts := []models.PlatformOptimization{
		{PlatformKey: "spotify", CurrentRevenue: 0, ProjectedRevenue: 0, Confidence: 70},
	}

	p := projector.Project(opts, models.PeriodMonth)
	assert.Equal(t, 0.0, p.Baseline)
	assert.Equal(t, 0.0, p.Improvement)
}

func TestProjectUnknownPeriodFallsBackToMonth(t *testing.T) {
	t.Helper()

	p := projector.Project(sampleOptimizations(), models.ProjectionPeriod("decade"))
	assert.Equal(t, models.PeriodMonth, p.Period)
	assert.Equal(t, 1500.0, p.Baseline)
}

func TestConfidenceDecaysAcrossPeriods(t *testing.T) {
	t.Helper()

	projections := projector.ProjectAll(sampleOptimizations())
	require.Len(t, projections, 4)

	for i := 1; i < len(projections); i++ {
		assert.GreaterOrEqual(t, projections[i-1].Confidence, projections[i].Confidence,
			"confidence must not grow from %s to %s", projections[i-1].Period, projections[i].Period)
	}
}

func TestConfidenceWithoutOptimizations(t *testing.T) {
	t.Helper()

	p := projector.Project(nil, models.PeriodWeek)
	assert.Equal(t, 45, p.Confidence)
	assert.Empty(t, p.Breakdown)
}

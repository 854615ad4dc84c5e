// Package projector rolls per-platform optimization figures into multi-period
// revenue projections with confidence that decays over the horizon.
package projector

import (
	"math"

	"github.com/tonearm/labelcore/internal/models"
)

// periodFactor scales a monthly figure to the projection period. These are
// heuristic calendar approximations, not accrual-accurate math.
var periodFactor = map[models.ProjectionPeriod]float64{
	models.PeriodWeek:    0.25,
	models.PeriodMonth:   1.0,
	models.PeriodQuarter: 3.2,
	models.PeriodYear:    12.8,
}

// confidenceCeiling caps the confidence per period so longer horizons are
// always reported with less trust: week > month > quarter > year.
var confidenceCeiling = map[models.ProjectionPeriod]int{
	models.PeriodWeek:    90,
	models.PeriodMonth:   75,
	models.PeriodQuarter: 60,
	models.PeriodYear:    40,
}

// Project aggregates the platform optimizations into one projection for the
// period. A zero baseline reports 0% improvement rather than failing.
func Project(optimizations []models.PlatformOptimization, period models.ProjectionPeriod) models.RevenueProjection {
	factor, ok := periodFactor[period]
	if !ok {
		period = models.PeriodMonth
		factor = periodFactor[period]
	}

	var baseline, optimized float64
	breakdown := make([]models.PlatformRevenue, 0, len(optimizations))
	for i := range optimizations {
		opt := &optimizations[i]
		platformBaseline := opt.CurrentRevenue * factor
		platformOptimized := opt.ProjectedRevenue * factor
		baseline += platformBaseline
		optimized += platformOptimized
		breakdown = append(breakdown, models.PlatformRevenue{
			PlatformKey: opt.PlatformKey,
			Baseline:    round2(platformBaseline),
			Optimized:   round2(platformOptimized),
		})
	}

	improvement := 0.0
	if baseline > 0 {
		improvement = (optimized - baseline) / baseline * 100
	}

	return models.RevenueProjection{
		Period:      period,
		Baseline:    round2(baseline),
		Optimized:   round2(optimized),
		Improvement: round2(improvement),
		Confidence:  confidenceFor(period, optimizations),
		Breakdown:   breakdown,
	}
}

// ProjectAll returns one projection per period, week through year.
func ProjectAll(optimizations []models.PlatformOptimization) []models.RevenueProjection {
	periods := []models.ProjectionPeriod{
		models.PeriodWeek, models.PeriodMonth, models.PeriodQuarter, models.PeriodYear,
	}
	out := make([]models.RevenueProjection, 0, len(periods))
	for _, p := range periods {
		out = append(out, Project(optimizations, p))
	}
	return out
}

// confidenceFor blends the per-platform evaluation confidence with the
// period ceiling. The ceiling guarantees strict decay across periods no
// matter what the inputs look like.
func confidenceFor(period models.ProjectionPeriod, optimizations []models.PlatformOptimization) int {
	ceiling := confidenceCeiling[period]
	if len(optimizations) == 0 {
		return ceiling / 2
	}

	sum := 0
	for i := range optimizations {
		sum += optimizations[i].Confidence
	}
	avg := sum / len(optimizations)

	// Scale the input confidence into the period's ceiling.
	scaled := int(math.Round(float64(avg) * float64(ceiling) / 100))
	if scaled > ceiling {
		scaled = ceiling
	}
	return scaled
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

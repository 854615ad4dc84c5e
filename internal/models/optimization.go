package models

import (
	"time"

	"github.com/google/uuid"
)

// Impact is the coarse classification of a suggested price change's magnitude
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// PlatformAnalysis summarizes how well an item's listing fits a platform.
type PlatformAnalysis struct {
	Score       int      `json:"score"` // 0-100
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
	Strengths   []string `json:"strengths"`
}

// ProposedChanges carries the concrete listing adjustments a rule evaluation
// suggests for one platform. Nil fields mean "leave as is".
type ProposedChanges struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Artwork     *string  `json:"artwork,omitempty"`
}

// PlatformOptimization is the derived evaluation output for one platform.
// It is never persisted on its own; the engine recomputes it from rules and
// live metrics on demand.
type PlatformOptimization struct {
	PlatformKey      string           `json:"platform_key"`
	Analysis         PlatformAnalysis `json:"analysis"`
	Proposed         ProposedChanges  `json:"proposed"`
	CurrentPrice     float64          `json:"current_price"`
	SuggestedPrice   float64          `json:"suggested_price"`
	Impact           Impact           `json:"impact"`
	Confidence       int              `json:"confidence"` // 0-100
	AudienceMatch    int              `json:"audience_match"`
	CurrentRevenue   float64          `json:"current_revenue"`
	ProjectedRevenue float64          `json:"projected_revenue"`
	Competition      CompetitionLevel `json:"competition"`
}

// AppliedAction records a single rule action that fired against a platform.
type AppliedAction struct {
	RuleID      uuid.UUID  `json:"rule_id"`
	RuleName    string     `json:"rule_name"`
	PlatformKey string     `json:"platform_key"`
	Kind        ActionKind `json:"kind"`
	PriceBefore float64    `json:"price_before"`
	PriceAfter  float64    `json:"price_after"`
	Discount    float64    `json:"discount,omitempty"` // promotion percentage, price untouched
	Duration    string     `json:"duration,omitempty"`
	Suggestion  string     `json:"suggestion,omitempty"` // bundle actions are suggestion-only
	AppliedAt   time.Time  `json:"applied_at"`
}

// RuleEvaluationWarning surfaces a malformed rule that was skipped. It never
// aborts evaluation of the remaining rules.
type RuleEvaluationWarning struct {
	RuleID   uuid.UUID `json:"rule_id"`
	RuleName string    `json:"rule_name"`
	Reason   string    `json:"reason"`
}

// ProjectionPeriod is the horizon of a revenue projection
type ProjectionPeriod string

const (
	PeriodWeek    ProjectionPeriod = "week"
	PeriodMonth   ProjectionPeriod = "month"
	PeriodQuarter ProjectionPeriod = "quarter"
	PeriodYear    ProjectionPeriod = "year"
)

// Valid reports whether the period is one of the known values.
func (p ProjectionPeriod) Valid() bool {
	switch p {
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

// PlatformRevenue is one platform's slice of a projection.
type PlatformRevenue struct {
	PlatformKey string  `json:"platform_key"`
	Baseline    float64 `json:"baseline"`
	Optimized   float64 `json:"optimized"`
}

// RevenueProjection is the aggregate projection for one period. Confidence
// is 0-100 and never increases as the horizon lengthens.
type RevenueProjection struct {
	Period      ProjectionPeriod  `json:"period"`
	Baseline    float64           `json:"baseline"`
	Optimized   float64           `json:"optimized"`
	Improvement float64           `json:"improvement"` // percent; 0 when baseline is 0
	Confidence  int               `json:"confidence"`
	Breakdown   []PlatformRevenue `json:"breakdown"`
}

// Package alerts evaluates metric-threshold alert rules. It shares condition
// evaluation with the optimization rule engine but produces immutable alert
// records instead of touching pricing state.
package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/rules"
)

const (
	highExcessRatio   = 2.0
	mediumExcessRatio = 1.2
)

// Evaluator checks alert rules against a platform's metric feed.
type Evaluator struct {
	now func() time.Time
}

// NewEvaluator creates an alert evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// Check evaluates the rules against one platform's metrics and returns one
// alert per matching rule. Disabled and out-of-scope rules are skipped;
// malformed rules are skipped with a warning, never abort the rest.
func (e *Evaluator) Check(ruleSet []models.AlertRule, platformKey string, m rules.Metrics) ([]models.Alert, []models.RuleEvaluationWarning) {
	firedAt := e.now().UTC()

	alerts := []models.Alert{}
	warnings := []models.RuleEvaluationWarning{}

	for i := range ruleSet {
		rule := &ruleSet[i]
		if !rule.Enabled || !rule.AppliesTo(platformKey) {
			continue
		}

		matched, err := rules.EvalConditions(rule.Conditions, m)
		if err != nil {
			warnings = append(warnings, models.RuleEvaluationWarning{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Reason:   err.Error(),
			})
			continue
		}
		if !matched || len(rule.Conditions) == 0 {
			// A zero-condition alert rule has no observable metric to report
			// on, so it never fires.
			continue
		}

		// Report against the first condition: it names the metric the rule
		// is watching.
		cond := rule.Conditions[0]
		observed, _ := m.Get(cond.Metric)

		alerts = append(alerts, models.Alert{
			ID:            uuid.New(),
			RuleID:        rule.ID,
			RuleName:      rule.Name,
			PlatformKey:   platformKey,
			Metric:        cond.Metric,
			ObservedValue: observed,
			Threshold:     cond.Value,
			Message: fmt.Sprintf("%s: %s is %.2f (threshold %.2f) on %s",
				rule.Name, cond.Metric, observed, cond.Value, platformKey),
			Severity: Severity(observed, cond.Value),
			FiredAt:  firedAt,
		})
	}

	return alerts, warnings
}

// Severity grades a firing by how far the observed value exceeds the
// threshold: beyond 2x excess is high, beyond 1.2x is medium, else low.
func Severity(observed, threshold float64) models.Severity {
	if threshold == 0 {
		if observed == 0 {
			return models.SeverityLow
		}
		return models.SeverityHigh
	}

	ratio := observed / threshold
	if ratio < 1 {
		// Under-threshold firings (lt rules) grade by shortfall instead.
		if observed == 0 {
			return models.SeverityHigh
		}
		ratio = threshold / observed
	}

	switch {
	case ratio > highExcessRatio:
		return models.SeverityHigh
	case ratio > mediumExcessRatio:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

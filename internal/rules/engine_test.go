package rules_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/rules"
)

type fakeConfigStore struct {
	markedID uuid.UUID
	price    *float64
	calls    int
}

func (f *fakeConfigStore) MarkOptimized(_ context.Context, configID uuid.UUID, priceOverride *float64) error {
	f.markedID = configID
	f.price = priceOverride
	f.calls++
	return nil
}

type fakeRuleStore struct {
	touched []uuid.UUID
}

func (f *fakeRuleStore) TouchLastTriggered(_ context.Context, ruleID uuid.UUID, _ time.Time) error {
	f.touched = append(f.touched, ruleID)
	return nil
}

func testInput(metrics rules.Metrics) rules.Input {
	return rules.Input{
		Item: models.ContentItem{
			ID:        uuid.New(),
			Type:      models.ContentTypeMusic,
			Title:     "Midnight Tapes",
			Genre:     "electronic",
			Tags:      []string{"synth"},
			BasePrice: 10,
			Currency:  "USD",
		},
		Config: models.PlatformConfig{
			ID:            uuid.New(),
			PlatformKey:   "bandcamp",
			Enabled:       true,
		},
		Profile: models.PlatformProfile{
			Key:             "bandcamp",
			PreferredGenres: []string{"electronic"},
			MaxTitleLen:     100,
			Competition:     models.CompetitionMedium,
		},
		Metrics: metrics,
	}
}

func decreaseRule(priority int, value float64, maxAdj *float64) models.OptimizationRule {
	return models.OptimizationRule{
		ID:      uuid.New(),
		Name:    "slow seller discount",
		Kind:    models.RuleKindDynamic,
		Enabled: true,
		Conditions: []models.Condition{
			{Metric: "revenue", Operator: models.OpLessThan, Value: 500},
		},
		Actions: []models.Action{
			{Kind: models.ActionPriceDecrease, Value: value, MaxAdjustment: maxAdj},
		},
		Priority: priority,
	}
}

func TestEvaluatePriceDecrease(t *testing.T) {
	t.Helper()

	engine := rules.NewEngine(nil, nil, logger.NewNopLogger())
	maxAdj := 20.0
	in := testInput(rules.Metrics{Values: map[string]float64{"revenue": 400}})

	opt, warnings := engine.Evaluate(in, []models.OptimizationRule{decreaseRule(1, 10, &maxAdj)})

	assert.Empty(t, warnings)
	assert.Equal(t, 10.0, opt.CurrentPrice)
	assert.Equal(t, 9.0, opt.SuggestedPrice)
	assert.Equal(t, models.ImpactMedium, opt.Impact)
	require.NotNil(t, opt.Proposed.Price)
	assert.Equal(t, 9.0, *opt.Proposed.Price)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	t.Helper()

	engine := rules.NewEngine(nil, nil, logger.NewNopLogger())
	in := testInput(rules.Metrics{Values: map[string]float64{"revenue": 400, "streams": 8000}})
	ruleSet := []models.OptimizationRule{decreaseRule(1, 10, nil)}

	first, _ := engine.Evaluate(in, ruleSet)
	second, _ := engine.Evaluate(in, ruleSet)

	assert.Equal(t, first, second)
}

func TestEvaluateUnknownMetricSkipsRuleWithWarning(t *testing.T) {
	t.Helper()

	engine := rules.NewEngine(nil, nil, logger.NewNopLogger())
	in := testInput(rules.Metrics{Values: map[string]float64{"revenue": 400}})

	bad := decreaseRule(1, 10, nil)
	bad.Conditions = []models.Condition{
		{Metric: "downloads", Operator: models.OpGreaterThan, Value: 1},
	}
	good := decreaseRule(2, 10, nil)

	opt, warnings := engine.Evaluate(in, []models.OptimizationRule{bad, good})

	require.Len(t, warnings, 1)
	assert.Equal(t, bad.ID, warnings[0].RuleID)
	// The malformed rule must not block the healthy one.
	assert.Equal(t, 9.0, opt.SuggestedPrice)
}

func TestEvaluateZeroConditionRuleAlwaysFires(t *testing.T) {
	t.Helper()

	engine := rules.NewEngine(nil, nil, logger.NewNopLogger())
	in := testInput(rules.Metrics{Values: map[string]float64{}})

	rule := decreaseRule(1, 5, nil)
	rule.Conditions = nil

	opt, warnings := engine.Evaluate(in, []models.OptimizationRule{rule})

	assert.Empty(t, warnings)
	assert.Equal(t, 9.5, opt.SuggestedPrice)
}

func TestEvaluateMaxAdjustmentClampsCumulativeDrift(t *testing.T) {
	t.Helper()

	engine := rules.NewEngine(nil, nil, logger.NewNopLogger())
	in := testInput(rules.Metrics{Values: map[string]float64{"revenue": 400}})

	maxAdj := 15.0
	first := decreaseRule(1, 10, &maxAdj)
	second := decreaseRule(2, 10, &maxAdj)

	// 10 -> 9 -> 8.10 uncapped, but drift is capped at 15% of the original.
	opt, _ := engine.Evaluate(in, []models.OptimizationRule{first, second})
	assert.Equal(t, 8.5, opt.SuggestedPrice)
}

func TestEvaluatePriorityOrderAndTieBreak(t *testing.T) {
	t.Helper()

	engine := rules.NewEngine(nil, nil, logger.NewNopLogger())
	in := testInput(rules.Metrics{Values: map[string]float64{"revenue": 400}})

	low := decreaseRule(1, 10, nil)
	high := decreaseRule(5, 10, nil)

	// Same outcome regardless of input order.
	a, _ := engine.Evaluate(in, []models.OptimizationRule{high, low})
	b, _ := engine.Evaluate(in, []models.OptimizationRule{low, high})
	assert.Equal(t, a.SuggestedPrice, b.SuggestedPrice)

	tieA := decreaseRule(3, 10, nil)
	tieB := decreaseRule(3, 20, nil)
	x, _ := engine.Evaluate(in, []models.OptimizationRule{tieA, tieB})
	y, _ := engine.Evaluate(in, []models.OptimizationRule{tieB, tieA})
	assert.Equal(t, x.SuggestedPrice, y.SuggestedPrice)
}

func TestEvaluateOutOfScopeAndDisabledRulesSkipped(t *testing.T) {
	t.Helper()

	engine := rules.NewEngine(nil, nil, logger.NewNopLogger())
	in := testInput(rules.Metrics{Values: map[string]float64{"revenue": 400}})

	other := "spotify"
	scoped := decreaseRule(1, 10, nil)
	scoped.PlatformKey = &other

	disabled := decreaseRule(2, 10, nil)
	disabled.Enabled = false

	opt, warnings := engine.Evaluate(in, []models.OptimizationRule{scoped, disabled})
	assert.Empty(t, warnings)
	assert.Equal(t, 10.0, opt.SuggestedPrice)
	assert.Equal(t, models.ImpactLow, opt.Impact)
}

func TestEvaluatePromotionDoesNotTouchPrice(t *testing.T) {
	t.Helper()

	engine := rules.NewEngine(nil, nil, logger.NewNopLogger())
	in := testInput(rules.Metrics{Values: map[string]float64{"revenue": 400}})

	rule := decreaseRule(1, 0, nil)
	rule.Actions = []models.Action{
		{Kind: models.ActionPromotion, Value: 25, Duration: "14d"},
	}

	opt, _ := engine.Evaluate(in, []models.OptimizationRule{rule})
	assert.Equal(t, 10.0, opt.SuggestedPrice)
	assert.Nil(t, opt.Proposed.Price)
}

func TestApplyRulesPersistsEffects(t *testing.T) {
	t.Helper()

	configs := &fakeConfigStore{}
	ruleStore := &fakeRuleStore{}
	engine := rules.NewEngine(configs, ruleStore, logger.NewNopLogger())

	in := testInput(rules.Metrics{Values: map[string]float64{"revenue": 400}})
	rule := decreaseRule(1, 10, nil)

	applied, warnings, err := engine.ApplyRules(context.Background(), in, []models.OptimizationRule{rule})

	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, applied, 1)
	assert.Equal(t, 10.0, applied[0].PriceBefore)
	assert.Equal(t, 9.0, applied[0].PriceAfter)

	assert.Equal(t, []uuid.UUID{rule.ID}, ruleStore.touched)
	assert.Equal(t, in.Config.ID, configs.markedID)
	require.NotNil(t, configs.price)
	assert.Equal(t, 9.0, *configs.price)
}

func TestApplyRulesNoFiringLeavesConfigAlone(t *testing.T) {
	t.Helper()

	configs := &fakeConfigStore{}
	engine := rules.NewEngine(configs, &fakeRuleStore{}, logger.NewNopLogger())

	in := testInput(rules.Metrics{Values: map[string]float64{"revenue": 900}})
	rule := decreaseRule(1, 10, nil)

	applied, warnings, err := engine.ApplyRules(context.Background(), in, []models.OptimizationRule{rule})

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, applied)
	assert.Zero(t, configs.calls)
}

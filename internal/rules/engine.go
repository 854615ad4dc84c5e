package rules

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/models"
)

// ConfigStore persists the rule engine's writes to platform configs. The
// engine is the only component that sets the optimized flag; the
// orchestrator never writes configs.
type ConfigStore interface {
	// MarkOptimized sets the optimized flag and, when priceOverride is
	// non-nil, the adjusted per-platform price.
	MarkOptimized(ctx context.Context, configID uuid.UUID, priceOverride *float64) error
}

// RuleStore persists rule bookkeeping after a firing.
type RuleStore interface {
	TouchLastTriggered(ctx context.Context, ruleID uuid.UUID, at time.Time) error
}

// Input bundles everything one evaluation needs. Evaluation is a pure
// function of this input: no hidden state, no randomness.
type Input struct {
	Item    models.ContentItem
	Config  models.PlatformConfig
	Profile models.PlatformProfile
	Metrics Metrics
}

// Engine evaluates optimization rules and applies their pricing actions.
type Engine struct {
	configs ConfigStore
	rules   RuleStore
	logger  logger.Logger
}

// NewEngine creates a rule engine. The stores may be nil when the engine is
// used for pure evaluation only.
func NewEngine(configs ConfigStore, ruleStore RuleStore, log logger.Logger) *Engine {
	return &Engine{
		configs: configs,
		rules:   ruleStore,
		logger:  log,
	}
}

// Evaluate runs the rules against one platform's metrics and returns the
// derived optimization without persisting anything. Malformed rules are
// skipped and reported as warnings, never as errors.
func (e *Engine) Evaluate(in Input, ruleSet []models.OptimizationRule) (*models.PlatformOptimization, []models.RuleEvaluationWarning) {
	currentPrice := in.Config.EffectivePrice(in.Item.BasePrice)
	outcome := e.runRules(in, ruleSet, currentPrice)

	analysis := analyzeListing(&in.Item, &in.Config, &in.Profile)
	proposed := proposeChanges(&in.Item, &in.Config, &in.Profile)
	if outcome.price != currentPrice {
		p := outcome.price
		proposed.Price = &p
	}

	currentRevenue, _ := in.Metrics.Get("revenue")
	opt := &models.PlatformOptimization{
		PlatformKey:      in.Config.PlatformKey,
		Analysis:         analysis,
		Proposed:         proposed,
		CurrentPrice:     currentPrice,
		SuggestedPrice:   outcome.price,
		Impact:           classifyImpact(currentPrice, outcome.price),
		Confidence:       confidence(in.Metrics, analysis.Score, outcome.fired),
		AudienceMatch:    audienceMatch(&in.Item, &in.Profile),
		CurrentRevenue:   currentRevenue,
		ProjectedRevenue: projectRevenue(currentRevenue, currentPrice, outcome.price, analysis.Score),
		Competition:      in.Profile.Competition,
	}
	return opt, outcome.warnings
}

// ApplyRules runs the rules and persists their effects: the adjusted price
// override, the optimized flag, and each fired rule's last-triggered
// timestamp. Returns the actions that fired in evaluation order.
func (e *Engine) ApplyRules(ctx context.Context, in Input, ruleSet []models.OptimizationRule) ([]models.AppliedAction, []models.RuleEvaluationWarning, error) {
	currentPrice := in.Config.EffectivePrice(in.Item.BasePrice)
	outcome := e.runRules(in, ruleSet, currentPrice)

	now := time.Now().UTC()
	for i := range outcome.applied {
		outcome.applied[i].AppliedAt = now
	}

	for _, ruleID := range outcome.firedIDs {
		if e.rules == nil {
			break
		}
		if err := e.rules.TouchLastTriggered(ctx, ruleID, now); err != nil {
			return nil, outcome.warnings, fmt.Errorf("touch rule %s: %w", ruleID, err)
		}
	}

	if outcome.fired > 0 && e.configs != nil {
		var priceOverride *float64
		if outcome.priceChanged {
			p := outcome.price
			priceOverride = &p
		}
		if err := e.configs.MarkOptimized(ctx, in.Config.ID, priceOverride); err != nil {
			return nil, outcome.warnings, fmt.Errorf("mark config optimized: %w", err)
		}
	}

	return outcome.applied, outcome.warnings, nil
}

type runOutcome struct {
	price        float64
	priceChanged bool
	fired        int
	firedIDs     []uuid.UUID
	applied      []models.AppliedAction
	warnings     []models.RuleEvaluationWarning
}

// runRules evaluates the rule set in ascending priority order (ties break on
// rule ID) and folds each matching rule's actions into the running price.
func (e *Engine) runRules(in Input, ruleSet []models.OptimizationRule, startPrice float64) runOutcome {
	ordered := orderRules(ruleSet)

	out := runOutcome{
		price:    startPrice,
		applied:  []models.AppliedAction{},
		warnings: []models.RuleEvaluationWarning{},
	}

	for i := range ordered {
		rule := &ordered[i]
		if !rule.Enabled || !rule.AppliesTo(in.Config.PlatformKey) {
			continue
		}

		matched, err := EvalConditions(rule.Conditions, in.Metrics)
		if err != nil {
			out.warnings = append(out.warnings, models.RuleEvaluationWarning{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Reason:   err.Error(),
			})
			continue
		}
		if !matched {
			continue
		}

		out.fired++
		out.firedIDs = append(out.firedIDs, rule.ID)
		for _, action := range rule.Actions {
			out.applied = append(out.applied, e.applyAction(rule, action, &out, in.Config.PlatformKey, startPrice))
		}
	}

	out.price = roundPrice(out.price)
	return out
}

// applyAction folds one action into the running price. Price actions clamp
// the cumulative drift from the original price against the action's
// max-adjustment bound; promotions and bundles never touch the price.
func (e *Engine) applyAction(rule *models.OptimizationRule, action models.Action, out *runOutcome, platformKey string, originalPrice float64) models.AppliedAction {
	applied := models.AppliedAction{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		PlatformKey: platformKey,
		Kind:        action.Kind,
		PriceBefore: roundPrice(out.price),
	}

	switch action.Kind {
	case models.ActionPriceIncrease:
		out.price = clampAdjustment(out.price*(1+action.Value/100), originalPrice, action.MaxAdjustment)
		out.priceChanged = true
	case models.ActionPriceDecrease:
		out.price = clampAdjustment(out.price*(1-action.Value/100), originalPrice, action.MaxAdjustment)
		out.priceChanged = true
	case models.ActionPromotion:
		applied.Discount = action.Value
		applied.Duration = action.Duration
	case models.ActionBundle:
		applied.Suggestion = fmt.Sprintf("bundle candidate at %.0f%% combined discount; requires catalog coordination", action.Value)
	default:
		e.logger.Warn("skipping action with unknown kind",
			logger.String("rule", rule.Name),
			logger.String("kind", string(action.Kind)),
		)
	}

	applied.PriceAfter = roundPrice(out.price)
	return applied
}

// orderRules returns the rules sorted by ascending priority, breaking ties
// on rule ID so evaluation order is deterministic.
func orderRules(ruleSet []models.OptimizationRule) []models.OptimizationRule {
	ordered := make([]models.OptimizationRule, len(ruleSet))
	copy(ordered, ruleSet)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return strings.Compare(ordered[i].ID.String(), ordered[j].ID.String()) < 0
	})
	return ordered
}

func clampAdjustment(price, original float64, maxAdjustment *float64) float64 {
	if maxAdjustment == nil {
		return price
	}
	upper := original * (1 + *maxAdjustment/100)
	lower := original * (1 - *maxAdjustment/100)
	if price > upper {
		return upper
	}
	if price < lower {
		return lower
	}
	return price
}

// projectRevenue estimates post-optimization revenue for one platform. The
// uplift is heuristic: half the relative price movement plus a small bonus
// for a strong listing score. It is deterministic for identical inputs.
func projectRevenue(currentRevenue, currentPrice, suggestedPrice float64, analysisScore int) float64 {
	if currentRevenue == 0 {
		return 0
	}
	uplift := 0.0
	if currentPrice > 0 {
		uplift += math.Abs(suggestedPrice-currentPrice) / currentPrice / 2
	}
	if analysisScore > 60 {
		uplift += float64(analysisScore-60) / 500
	}
	return math.Round(currentRevenue*(1+uplift)*100) / 100
}

// proposeChanges derives concrete listing fixes from the profile's limits.
func proposeChanges(item *models.ContentItem, cfg *models.PlatformConfig, profile *models.PlatformProfile) models.ProposedChanges {
	var proposed models.ProposedChanges

	title := cfg.EffectiveTitle(item.Title)
	if profile.MaxTitleLen > 0 && len(title) > profile.MaxTitleLen {
		trimmed := strings.TrimSpace(title[:profile.MaxTitleLen])
		proposed.Title = &trimmed
	}

	desc := item.Description
	if cfg.DescOverride != nil {
		desc = *cfg.DescOverride
	}
	if profile.MaxDescLen > 0 && len(desc) > profile.MaxDescLen {
		trimmed := strings.TrimSpace(desc[:profile.MaxDescLen])
		proposed.Description = &trimmed
	}

	if item.Genre != "" && !slices.Contains(item.Tags, item.Genre) {
		proposed.Tags = append(append([]string{}, item.Tags...), item.Genre)
	}

	return proposed
}

func roundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

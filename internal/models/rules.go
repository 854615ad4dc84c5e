package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RuleKind classifies when an optimization rule is meant to run
type RuleKind string

const (
	RuleKindDynamic   RuleKind = "dynamic"
	RuleKindScheduled RuleKind = "scheduled"
	RuleKindThreshold RuleKind = "threshold"
	RuleKindSeasonal  RuleKind = "seasonal"
)

// Valid reports whether the rule kind is one of the known values.
func (k RuleKind) Valid() bool {
	switch k {
	case RuleKindDynamic, RuleKindScheduled, RuleKindThreshold, RuleKindSeasonal:
		return true
	}
	return false
}

// Operator is the comparison applied by a rule condition
type Operator string

const (
	OpGreaterThan Operator = "gt"
	OpLessThan    Operator = "lt"
	OpEqual       Operator = "eq"
	OpChange      Operator = "change"
)

// Valid reports whether the operator is one of the known values.
func (o Operator) Valid() bool {
	switch o {
	case OpGreaterThan, OpLessThan, OpEqual, OpChange:
		return true
	}
	return false
}

// ActionKind is the adjustment a rule applies when it matches
type ActionKind string

const (
	ActionPriceIncrease ActionKind = "price_increase"
	ActionPriceDecrease ActionKind = "price_decrease"
	ActionPromotion     ActionKind = "promotion"
	ActionBundle        ActionKind = "bundle"
)

// Valid reports whether the action kind is one of the known values.
func (a ActionKind) Valid() bool {
	switch a {
	case ActionPriceIncrease, ActionPriceDecrease, ActionPromotion, ActionBundle:
		return true
	}
	return false
}

// Condition is one metric comparison inside a rule. A rule matches only when
// every condition holds; a rule with zero conditions always matches.
type Condition struct {
	Metric    string   `json:"metric"`
	Operator  Operator `json:"operator"`
	Value     float64  `json:"value"`
	Timeframe string   `json:"timeframe,omitempty"` // e.g. "7d", used by the change operator
}

// Action is one adjustment applied in order when a rule matches. Value is a
// percentage. MaxAdjustment caps the cumulative drift from the original base
// price in either direction.
type Action struct {
	Kind          ActionKind `json:"kind"`
	Value         float64    `json:"value"`
	Duration      string     `json:"duration,omitempty"`
	MaxAdjustment *float64   `json:"max_adjustment,omitempty"`
}

// OptimizationRule is a condition->action policy for automated pricing and
// promotion. Rules evaluate in ascending priority; equal priorities break
// ties on rule ID so evaluation order is always deterministic.
type OptimizationRule struct {
	ID             uuid.UUID   `db:"id"             json:"id"`
	Name           string      `db:"name"           json:"name"`
	PlatformKey    *string     `db:"platform_key"   json:"platform_key,omitempty"` // nil scopes the rule to all platforms
	Kind           RuleKind    `db:"kind"           json:"kind"`
	Enabled        bool        `db:"enabled"        json:"enabled"`
	Conditions     []Condition `db:"-"              json:"conditions"`
	ConditionsJSON []byte      `db:"conditions"     json:"-"`
	Actions        []Action    `db:"-"              json:"actions"`
	ActionsJSON    []byte      `db:"actions"        json:"-"`
	Priority       int         `db:"priority"       json:"priority"`
	LastTriggered  *time.Time  `db:"last_triggered" json:"last_triggered,omitempty"`
	CreatedAt      time.Time   `db:"created_at"     json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"     json:"updated_at"`
}

// ParseClauses decodes the JSON condition and action columns into their
// typed fields.
func (r *OptimizationRule) ParseClauses() error {
	if len(r.ConditionsJSON) > 0 {
		if err := json.Unmarshal(r.ConditionsJSON, &r.Conditions); err != nil {
			return err
		}
	}
	if len(r.ActionsJSON) > 0 {
		if err := json.Unmarshal(r.ActionsJSON, &r.Actions); err != nil {
			return err
		}
	}
	return nil
}

// EncodeClauses serializes the typed condition and action lists back into
// the JSON columns.
func (r *OptimizationRule) EncodeClauses() error {
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return err
	}
	actions, err := json.Marshal(r.Actions)
	if err != nil {
		return err
	}
	r.ConditionsJSON = conditions
	r.ActionsJSON = actions
	return nil
}

// AppliesTo reports whether the rule is in scope for a platform.
func (r *OptimizationRule) AppliesTo(platformKey string) bool {
	return r.PlatformKey == nil || *r.PlatformKey == platformKey
}

// OptimizationRuleCreateRequest represents the payload for creating a rule
type OptimizationRuleCreateRequest struct {
	Name        string      `binding:"required,min=1,max=255" json:"name"`
	PlatformKey *string     `binding:"omitempty,max=100"      json:"platform_key"`
	Kind        RuleKind    `binding:"required"               json:"kind"`
	Enabled     *bool       `json:"enabled"`
	Conditions  []Condition `json:"conditions"`
	Actions     []Action    `binding:"required,min=1"         json:"actions"`
	Priority    int         `binding:"min=0"                  json:"priority"`
}

// OptimizationRuleUpdateRequest represents the payload for updating a rule
type OptimizationRuleUpdateRequest struct {
	Name        *string     `binding:"omitempty,min=1,max=255" json:"name"`
	PlatformKey *string     `binding:"omitempty,max=100"       json:"platform_key"`
	Kind        *RuleKind   `json:"kind"`
	Enabled     *bool       `json:"enabled"`
	Conditions  []Condition `json:"conditions"`
	Actions     []Action    `json:"actions"`
	Priority    *int        `binding:"omitempty,min=0"         json:"priority"`
}

// Validate validates the rule update request
func (r *OptimizationRuleUpdateRequest) Validate() error {
	if r.Name == nil && r.PlatformKey == nil && r.Kind == nil && r.Enabled == nil &&
		r.Conditions == nil && r.Actions == nil && r.Priority == nil {
		return ErrNoFieldsToUpdate
	}
	return nil
}

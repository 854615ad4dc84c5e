package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Severity grades an alert by how far the observed value overshot the threshold
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertRule watches arbitrary metrics outside the pricing context. It shares
// the condition shape with optimization rules but fires notifications
// instead of price adjustments.
type AlertRule struct {
	ID             uuid.UUID      `db:"id"           json:"id"`
	Name           string         `db:"name"         json:"name"`
	PlatformKey    *string        `db:"platform_key" json:"platform_key,omitempty"`
	Enabled        bool           `db:"enabled"      json:"enabled"`
	Conditions     []Condition    `db:"-"            json:"conditions"`
	ConditionsJSON []byte         `db:"conditions"   json:"-"`
	Channels       pq.StringArray `db:"channels"     json:"channels"` // notification channels, e.g. "email", "webhook"
	CreatedAt      time.Time      `db:"created_at"   json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"   json:"updated_at"`
}

// ParseConditions decodes the JSON conditions column.
func (r *AlertRule) ParseConditions() error {
	if len(r.ConditionsJSON) == 0 {
		r.Conditions = nil
		return nil
	}
	return json.Unmarshal(r.ConditionsJSON, &r.Conditions)
}

// EncodeConditions serializes the typed conditions into the JSON column.
func (r *AlertRule) EncodeConditions() error {
	data, err := json.Marshal(r.Conditions)
	if err != nil {
		return err
	}
	r.ConditionsJSON = data
	return nil
}

// AppliesTo reports whether the rule is in scope for a platform.
func (r *AlertRule) AppliesTo(platformKey string) bool {
	return r.PlatformKey == nil || *r.PlatformKey == platformKey
}

// Alert is the immutable record of a single rule firing. Acknowledged is the
// only mutable field and flips exactly once from false to true.
type Alert struct {
	ID             uuid.UUID  `db:"id"              json:"id"`
	RuleID         uuid.UUID  `db:"rule_id"         json:"rule_id"`
	RuleName       string     `db:"rule_name"       json:"rule_name"`
	PlatformKey    string     `db:"platform_key"    json:"platform_key"`
	Metric         string     `db:"metric"          json:"metric"`
	ObservedValue  float64    `db:"observed_value"  json:"observed_value"`
	Threshold      float64    `db:"threshold"       json:"threshold"`
	Message        string     `db:"message"         json:"message"`
	Severity       Severity   `db:"severity"        json:"severity"`
	FiredAt        time.Time  `db:"fired_at"        json:"fired_at"`
	Acknowledged   bool       `db:"acknowledged"    json:"acknowledged"`
	AcknowledgedAt *time.Time `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
}

// AlertRuleCreateRequest represents the payload for creating an alert rule
type AlertRuleCreateRequest struct {
	Name        string      `binding:"required,min=1,max=255" json:"name"`
	PlatformKey *string     `binding:"omitempty,max=100"      json:"platform_key"`
	Enabled     *bool       `json:"enabled"`
	Conditions  []Condition `binding:"required,min=1"         json:"conditions"`
	Channels    []string    `json:"channels"`
}

// AlertRuleUpdateRequest represents the payload for updating an alert rule
type AlertRuleUpdateRequest struct {
	Name        *string     `binding:"omitempty,min=1,max=255" json:"name"`
	PlatformKey *string     `binding:"omitempty,max=100"       json:"platform_key"`
	Enabled     *bool       `json:"enabled"`
	Conditions  []Condition `json:"conditions"`
	Channels    []string    `json:"channels"`
}

// Validate validates the alert rule update request
func (r *AlertRuleUpdateRequest) Validate() error {
	if r.Name == nil && r.PlatformKey == nil && r.Enabled == nil &&
		r.Conditions == nil && r.Channels == nil {
		return ErrNoFieldsToUpdate
	}
	return nil
}

// AlertFilter represents filter criteria for querying alerts
type AlertFilter struct {
	PlatformKey    string     `form:"platform_key"`
	Severity       string     `form:"severity"`
	Unacknowledged bool       `form:"unacknowledged"`
	Since          *time.Time `form:"since"                       time_format:"2006-01-02"`
	Limit          int        `binding:"omitempty,min=1,max=1000" form:"limit"`
	Offset         int        `binding:"omitempty,min=0"          form:"offset"`
}

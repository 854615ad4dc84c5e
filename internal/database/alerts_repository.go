package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tonearm/labelcore/internal/models"
)

// AlertsRepository provides database operations for alert rules and fired alerts.
type AlertsRepository struct {
	db *sqlx.DB
}

// NewAlertsRepository creates a new alerts repository
func NewAlertsRepository(db *sqlx.DB) *AlertsRepository {
	return &AlertsRepository{db: db}
}

const alertRuleColumns = `id, name, platform_key, enabled, conditions, channels, created_at, updated_at`

const alertColumns = `id, rule_id, rule_name, platform_key, metric, observed_value, threshold,
		message, severity, fired_at, acknowledged, acknowledged_at`

// ====================
// Alert Rules
// ====================

// CreateRule creates a new alert rule
func (r *AlertsRepository) CreateRule(ctx context.Context, req *models.AlertRuleCreateRequest) (*models.AlertRule, error) {
	rule := &models.AlertRule{
		ID:          uuid.New(),
		Name:        req.Name,
		PlatformKey: req.PlatformKey,
		Enabled:     true,
		Conditions:  req.Conditions,
		Channels:    pq.StringArray(req.Channels),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if rule.Channels == nil {
		rule.Channels = pq.StringArray{}
	}
	if err := rule.EncodeConditions(); err != nil {
		return nil, fmt.Errorf("encode alert conditions: %w", err)
	}

	query := `
		INSERT INTO alert_rules (` + alertRuleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + alertRuleColumns + `
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		rule.ID, rule.Name, rule.PlatformKey, rule.Enabled,
		rule.ConditionsJSON, rule.Channels, rule.CreatedAt, rule.UpdatedAt,
	).StructScan(rule)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, models.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create alert rule: %w", err)
	}

	if parseErr := rule.ParseConditions(); parseErr != nil {
		return nil, fmt.Errorf("parse alert conditions: %w", parseErr)
	}
	return rule, nil
}

// GetRuleByID retrieves an alert rule by ID
func (r *AlertsRepository) GetRuleByID(ctx context.Context, id uuid.UUID) (*models.AlertRule, error) {
	rule := &models.AlertRule{}
	query := `SELECT ` + alertRuleColumns + ` FROM alert_rules WHERE id = $1`

	err := r.db.GetContext(ctx, rule, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get alert rule: %w", err)
	}

	if parseErr := rule.ParseConditions(); parseErr != nil {
		return nil, fmt.Errorf("parse alert conditions: %w", parseErr)
	}
	return rule, nil
}

// ListRules retrieves alert rules, optionally only enabled ones
func (r *AlertsRepository) ListRules(ctx context.Context, enabledOnly bool) ([]models.AlertRule, error) {
	ruleSet := []models.AlertRule{}
	query := `SELECT ` + alertRuleColumns + ` FROM alert_rules`
	if enabledOnly {
		query += " WHERE enabled = true"
	}
	query += " ORDER BY name ASC"

	if err := r.db.SelectContext(ctx, &ruleSet, query); err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}

	for i := range ruleSet {
		if err := ruleSet[i].ParseConditions(); err != nil {
			return nil, fmt.Errorf("parse alert rule %s conditions: %w", ruleSet[i].ID, err)
		}
	}
	return ruleSet, nil
}

// UpdateRule updates an alert rule's fields
func (r *AlertsRepository) UpdateRule(ctx context.Context, id uuid.UUID, req *models.AlertRuleUpdateRequest) (*models.AlertRule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rule, err := r.GetRuleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.PlatformKey != nil {
		rule.PlatformKey = req.PlatformKey
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Conditions != nil {
		rule.Conditions = req.Conditions
	}
	if req.Channels != nil {
		rule.Channels = pq.StringArray(req.Channels)
	}
	rule.UpdatedAt = time.Now()
	if err := rule.EncodeConditions(); err != nil {
		return nil, fmt.Errorf("encode alert conditions: %w", err)
	}

	query := `
		UPDATE alert_rules
		SET name = $2, platform_key = $3, enabled = $4, conditions = $5, channels = $6, updated_at = $7
		WHERE id = $1
		RETURNING ` + alertRuleColumns + `
	`

	err = r.db.QueryRowxContext(
		ctx, query,
		rule.ID, rule.Name, rule.PlatformKey, rule.Enabled,
		rule.ConditionsJSON, rule.Channels, rule.UpdatedAt,
	).StructScan(rule)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update alert rule: %w", err)
	}

	if parseErr := rule.ParseConditions(); parseErr != nil {
		return nil, fmt.Errorf("parse alert conditions: %w", parseErr)
	}
	return rule, nil
}

// DeleteRule deletes an alert rule
func (r *AlertsRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ====================
// Alerts
// ====================

// CreateAlert persists a fired alert
func (r *AlertsRepository) CreateAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, NULL)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.RuleID, alert.RuleName, alert.PlatformKey, alert.Metric,
		alert.ObservedValue, alert.Threshold, alert.Message, alert.Severity, alert.FiredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// ListAlerts retrieves alerts with optional filters
func (r *AlertsRepository) ListAlerts(ctx context.Context, filter *models.AlertFilter) ([]models.Alert, error) {
	alerts := []models.Alert{}

	if filter.Limit == 0 {
		filter.Limit = 100
	}
	const maxLimit = 1000
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.PlatformKey != "" {
		query += fmt.Sprintf(" AND platform_key = $%d", argPos)
		args = append(args, filter.PlatformKey)
		argPos++
	}
	if filter.Severity != "" {
		query += fmt.Sprintf(" AND severity = $%d", argPos)
		args = append(args, filter.Severity)
		argPos++
	}
	if filter.Unacknowledged {
		query += " AND acknowledged = false"
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND fired_at >= $%d", argPos)
		args = append(args, *filter.Since)
		argPos++
	}

	query += " ORDER BY fired_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	return alerts, nil
}

// Acknowledge flips an alert's acknowledged flag. Acknowledging an already
// acknowledged alert is a no-op, not an error; the original acknowledgement
// time is preserved.
func (r *AlertsRepository) Acknowledge(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	alert := &models.Alert{}
	query := `
		UPDATE alerts
		SET acknowledged = true,
		    acknowledged_at = COALESCE(acknowledged_at, NOW())
		WHERE id = $1
		RETURNING ` + alertColumns + `
	`

	err := r.db.GetContext(ctx, alert, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	return alert, nil
}

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

// RulesRepository provides database operations for optimization rules.
type RulesRepository struct {
	db *sqlx.DB
}

// NewRulesRepository creates a new rules repository
func NewRulesRepository(db *sqlx.DB) *RulesRepository {
	return &RulesRepository{db: db}
}

const ruleColumns = `id, name, platform_key, kind, enabled, conditions, actions, priority, last_triggered, created_at, updated_at`

// Create creates a new optimization rule
func (r *RulesRepository) Create(ctx context.Context, req *models.OptimizationRuleCreateRequest) (*models.OptimizationRule, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("unknown rule kind %q", req.Kind)
	}
	if err := validateClauses(req.Conditions, req.Actions); err != nil {
		return nil, err
	}

	rule := &models.OptimizationRule{
		ID:          uuid.New(),
		Name:        req.Name,
		PlatformKey: req.PlatformKey,
		Kind:        req.Kind,
		Enabled:     true,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
		Priority:    req.Priority,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if rule.Conditions == nil {
		rule.Conditions = []models.Condition{}
	}
	if err := rule.EncodeClauses(); err != nil {
		return nil, fmt.Errorf("encode rule clauses: %w", err)
	}

	query := `
		INSERT INTO optimization_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $10)
		RETURNING ` + ruleColumns + `
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		rule.ID, rule.Name, rule.PlatformKey, rule.Kind, rule.Enabled,
		rule.ConditionsJSON, rule.ActionsJSON, rule.Priority, rule.CreatedAt, rule.UpdatedAt,
	).StructScan(rule)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, models.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	if parseErr := rule.ParseClauses(); parseErr != nil {
		return nil, fmt.Errorf("parse rule clauses: %w", parseErr)
	}
	return rule, nil
}

// GetByID retrieves a rule by ID
func (r *RulesRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OptimizationRule, error) {
	rule := &models.OptimizationRule{}
	query := `SELECT ` + ruleColumns + ` FROM optimization_rules WHERE id = $1`

	err := r.db.GetContext(ctx, rule, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	if parseErr := rule.ParseClauses(); parseErr != nil {
		return nil, fmt.Errorf("parse rule clauses: %w", parseErr)
	}
	return rule, nil
}

// List retrieves rules, optionally restricted to enabled rules in scope for
// a platform. Results come back in evaluation order (priority, then ID).
func (r *RulesRepository) List(ctx context.Context, platformKey string, enabledOnly bool) ([]models.OptimizationRule, error) {
	ruleSet := []models.OptimizationRule{}

	query := `SELECT ` + ruleColumns + ` FROM optimization_rules WHERE 1=1`
	args := []any{}
	argPos := 1

	if enabledOnly {
		query += " AND enabled = true"
	}
	if platformKey != "" {
		query += fmt.Sprintf(" AND (platform_key IS NULL OR platform_key = $%d)", argPos)
		args = append(args, platformKey)
		argPos++ //nolint:ineffassign,wastedassign // keeps the pattern for added filters
	}
	query += " ORDER BY priority ASC, id ASC"

	if err := r.db.SelectContext(ctx, &ruleSet, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	for i := range ruleSet {
		if err := ruleSet[i].ParseClauses(); err != nil {
			return nil, fmt.Errorf("parse rule %s clauses: %w", ruleSet[i].ID, err)
		}
	}
	return ruleSet, nil
}

// Update updates a rule's fields
func (r *RulesRepository) Update(ctx context.Context, id uuid.UUID, req *models.OptimizationRuleUpdateRequest) (*models.OptimizationRule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rule, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.PlatformKey != nil {
		rule.PlatformKey = req.PlatformKey
	}
	if req.Kind != nil {
		if !req.Kind.Valid() {
			return nil, fmt.Errorf("unknown rule kind %q", *req.Kind)
		}
		rule.Kind = *req.Kind
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Conditions != nil {
		rule.Conditions = req.Conditions
	}
	if req.Actions != nil {
		rule.Actions = req.Actions
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if err := validateClauses(rule.Conditions, rule.Actions); err != nil {
		return nil, err
	}
	rule.UpdatedAt = time.Now()
	if err := rule.EncodeClauses(); err != nil {
		return nil, fmt.Errorf("encode rule clauses: %w", err)
	}

	query := `
		UPDATE optimization_rules
		SET name = $2, platform_key = $3, kind = $4, enabled = $5,
		    conditions = $6, actions = $7, priority = $8, updated_at = $9
		WHERE id = $1
		RETURNING ` + ruleColumns + `
	`

	err = r.db.QueryRowxContext(
		ctx, query,
		rule.ID, rule.Name, rule.PlatformKey, rule.Kind, rule.Enabled,
		rule.ConditionsJSON, rule.ActionsJSON, rule.Priority, rule.UpdatedAt,
	).StructScan(rule)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	if parseErr := rule.ParseClauses(); parseErr != nil {
		return nil, fmt.Errorf("parse rule clauses: %w", parseErr)
	}
	return rule, nil
}

// Delete deletes a rule
func (r *RulesRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM optimization_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
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

// TouchLastTriggered stamps a rule's last firing time
func (r *RulesRepository) TouchLastTriggered(ctx context.Context, ruleID uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE optimization_rules SET last_triggered = $2, updated_at = NOW() WHERE id = $1`, ruleID, at)
	if err != nil {
		return fmt.Errorf("failed to touch rule: %w", err)
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

// validateClauses rejects operators and action kinds outside the closed sets
// before they reach storage. Unknown metrics are a runtime warning instead:
// the feed's metric set is not known at write time.
func validateClauses(conditions []models.Condition, actions []models.Action) error {
	for _, c := range conditions {
		if !c.Operator.Valid() {
			return fmt.Errorf("unknown operator %q", c.Operator)
		}
		if c.Metric == "" {
			return errors.New("condition metric is required")
		}
	}
	for _, a := range actions {
		if !a.Kind.Valid() {
			return fmt.Errorf("unknown action kind %q", a.Kind)
		}
		if a.Value < 0 {
			return errors.New("action value must not be negative")
		}
	}
	return nil
}

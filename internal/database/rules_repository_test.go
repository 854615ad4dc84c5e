package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/labelcore/internal/database"
	"github.com/tonearm/labelcore/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

func ruleRow(id uuid.UUID, name string, priority int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "platform_key", "kind", "enabled", "conditions",
		"actions", "priority", "last_triggered", "created_at", "updated_at",
	}).AddRow(
		id, name, nil, "dynamic", true,
		[]byte(`[{"metric":"revenue","operator":"lt","value":500}]`),
		[]byte(`[{"kind":"price_decrease","value":10}]`),
		priority, nil, now, now,
	)
}

func TestRulesRepositoryList(t *testing.T) {
	t.Helper()

	sqlxDB, mock := newMockDB(t)
	repo := database.NewRulesRepository(sqlxDB)

	first := uuid.New()
	second := uuid.New()
	rows := ruleRow(first, "discount slow sellers", 1)
	now := time.Now()
	rows.AddRow(
		second, "boost trending", nil, "dynamic", true,
		[]byte(`[]`), []byte(`[{"kind":"price_increase","value":5}]`),
		2, nil, now, now,
	)

	mock.ExpectQuery(`SELECT (.+) FROM optimization_rules WHERE 1=1 AND enabled = true AND \(platform_key IS NULL OR platform_key = \$1\) ORDER BY priority ASC, id ASC`).
		WithArgs("spotify").
		WillReturnRows(rows)

	ruleSet, err := repo.List(context.Background(), "spotify", true)
	require.NoError(t, err)
	require.Len(t, ruleSet, 2)

	// JSON clauses are decoded on the way out.
	assert.Equal(t, first, ruleSet[0].ID)
	require.Len(t, ruleSet[0].Conditions, 1)
	assert.Equal(t, "revenue", ruleSet[0].Conditions[0].Metric)
	assert.Equal(t, models.OpLessThan, ruleSet[0].Conditions[0].Operator)
	require.Len(t, ruleSet[0].Actions, 1)
	assert.Equal(t, models.ActionPriceDecrease, ruleSet[0].Actions[0].Kind)

	assert.Empty(t, ruleSet[1].Conditions)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRulesRepositoryGetByIDNotFound(t *testing.T) {
	t.Helper()

	sqlxDB, mock := newMockDB(t)
	repo := database.NewRulesRepository(sqlxDB)

	mock.ExpectQuery(`SELECT (.+) FROM optimization_rules WHERE id = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRulesRepositoryCreateRejectsInvalidClauses(t *testing.T) {
	t.Helper()

	sqlxDB, _ := newMockDB(t)
	repo := database.NewRulesRepository(sqlxDB)

	tests := []struct {
		name string
		req  models.OptimizationRuleCreateRequest
	}{
		{
			name: "unknown operator",
			req: models.OptimizationRuleCreateRequest{
				Name: "bad operator",
				Kind: models.RuleKindDynamic,
				Conditions: []models.Condition{
					{Metric: "revenue", Operator: "between", Value: 1},
				},
			},
		},
		{
			name: "missing condition metric",
			req: models.OptimizationRuleCreateRequest{
				Name: "bad metric",
				Kind: models.RuleKindDynamic,
				Conditions: []models.Condition{
					{Operator: models.OpGreaterThan, Value: 1},
				},
			},
		},
		{
			name: "unknown action kind",
			req: models.OptimizationRuleCreateRequest{
				Name: "bad action",
				Kind: models.RuleKindDynamic,
				Actions: []models.Action{
					{Kind: "delist", Value: 1},
				},
			},
		},
		{
			name: "negative action value",
			req: models.OptimizationRuleCreateRequest{
				Name: "negative value",
				Kind: models.RuleKindDynamic,
				Actions: []models.Action{
					{Kind: models.ActionPriceDecrease, Value: -5},
				},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Validation fails before any query is issued.
			_, err := repo.Create(context.Background(), &tc.req)
			assert.Error(t, err)
		})
	}
}

func TestRulesRepositoryTouchLastTriggered(t *testing.T) {
	t.Helper()

	sqlxDB, mock := newMockDB(t)
	repo := database.NewRulesRepository(sqlxDB)
	ruleID := uuid.New()
	at := time.Now()

	mock.ExpectExec(`UPDATE optimization_rules SET last_triggered = \$2, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs(ruleID, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.TouchLastTriggered(context.Background(), ruleID, at))

	mock.ExpectExec(`UPDATE optimization_rules SET last_triggered = \$2, updated_at = NOW\(\) WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TouchLastTriggered(context.Background(), uuid.New(), at)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRulesRepositoryDelete(t *testing.T) {
	t.Helper()

	sqlxDB, mock := newMockDB(t)
	repo := database.NewRulesRepository(sqlxDB)

	mock.ExpectExec(`DELETE FROM optimization_rules WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), uuid.New()))

	mock.ExpectExec(`DELETE FROM optimization_rules WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), models.ErrNotFound)
}

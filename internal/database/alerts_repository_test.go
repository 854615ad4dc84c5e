package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/labelcore/internal/database"
	"github.com/tonearm/labelcore/internal/models"
)

func alertColumns() []string {
	return []string{
		"id", "rule_id", "rule_name", "platform_key", "metric", "observed_value",
		"threshold", "message", "severity", "fired_at", "acknowledged", "acknowledged_at",
	}
}

func TestAlertsRepositoryAcknowledge(t *testing.T) {
	t.Helper()

	sqlxDB, mock := newMockDB(t)
	repo := database.NewAlertsRepository(sqlxDB)

	alertID := uuid.New()
	ackedAt := time.Now().Add(-time.Hour)

	// COALESCE keeps the original acknowledgement time on repeat calls.
	rows := sqlmock.NewRows(alertColumns()).AddRow(
		alertID, uuid.New(), "revenue floor", "spotify", "revenue", 300.0,
		500.0, "revenue below threshold", "medium", time.Now().Add(-2*time.Hour),
		true, ackedAt,
	)
	mock.ExpectQuery(`UPDATE alerts SET acknowledged = true`).
		WithArgs(alertID).
		WillReturnRows(rows)

	alert, err := repo.Acknowledge(context.Background(), alertID)
	require.NoError(t, err)
	assert.True(t, alert.Acknowledged)
	require.NotNil(t, alert.AcknowledgedAt)
	assert.WithinDuration(t, ackedAt, *alert.AcknowledgedAt, time.Second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsRepositoryAcknowledgeNotFound(t *testing.T) {
	t.Helper()

	sqlxDB, mock := newMockDB(t)
	repo := database.NewAlertsRepository(sqlxDB)

	mock.ExpectQuery(`UPDATE alerts SET acknowledged = true`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Acknowledge(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAlertsRepositoryListAlertsFilters(t *testing.T) {
	t.Helper()

	sqlxDB, mock := newMockDB(t)
	repo := database.NewAlertsRepository(sqlxDB)

	rows := sqlmock.NewRows(alertColumns()).AddRow(
		uuid.New(), uuid.New(), "revenue floor", "spotify", "revenue", 300.0,
		500.0, "revenue below threshold", "high", time.Now(), false, nil,
	)

	mock.ExpectQuery(`SELECT (.+) FROM alerts WHERE 1=1 AND platform_key = \$1 AND severity = \$2 AND acknowledged = false ORDER BY fired_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("spotify", models.SeverityHigh, 100, 0).
		WillReturnRows(rows)

	alerts, err := repo.ListAlerts(context.Background(), &models.AlertFilter{
		PlatformKey:    "spotify",
		Severity:       string(models.SeverityHigh),
		Unacknowledged: true,
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityHigh, alerts[0].Severity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertsRepositoryListRulesDecodesConditions(t *testing.T) {
	t.Helper()

	sqlxDB, mock := newMockDB(t)
	repo := database.NewAlertsRepository(sqlxDB)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "name", "platform_key", "enabled", "conditions", "channels", "created_at", "updated_at",
	}).AddRow(
		uuid.New(), "revenue floor", nil, true,
		[]byte(`[{"metric":"revenue","operator":"lt","value":500}]`),
		"{email}", now, now,
	)

	mock.ExpectQuery(`SELECT (.+) FROM alert_rules WHERE enabled = true ORDER BY name ASC`).
		WillReturnRows(rows)

	ruleSet, err := repo.ListRules(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, ruleSet, 1)
	require.Len(t, ruleSet[0].Conditions, 1)
	assert.Equal(t, models.OpLessThan, ruleSet[0].Conditions[0].Operator)
	assert.Equal(t, []string{"email"}, []string(ruleSet[0].Channels))
}

func TestAlertsRepositoryCreateAlert(t *testing.T) {
	t.Helper()

	sqlxDB, mock := newMockDB(t)
	repo := database.NewAlertsRepository(sqlxDB)

	alert := &models.Alert{
		ID:            uuid.New(),
		RuleID:        uuid.New(),
		RuleName:      "revenue floor",
		PlatformKey:   "spotify",
		Metric:        "revenue",
		ObservedValue: 300,
		Threshold:     500,
		Message:       "revenue below threshold",
		Severity:      models.SeverityMedium,
		FiredAt:       time.Now(),
	}

	mock.ExpectExec(`INSERT INTO alerts`).
		WithArgs(alert.ID, alert.RuleID, alert.RuleName, alert.PlatformKey, alert.Metric,
			alert.ObservedValue, alert.Threshold, alert.Message, alert.Severity, alert.FiredAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateAlert(context.Background(), alert))
	assert.NoError(t, mock.ExpectationsWereMet())
}

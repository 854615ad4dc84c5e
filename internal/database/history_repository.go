package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tonearm/labelcore/internal/models"
)

// HistoryRepository persists the distribution audit trail.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyColumns = `id, job_id, item_id, item_title, item_type, genre, tags, platform_key,
		status, external_ref, error_class, recorded_at`

// RecordResult appends one platform result to the audit trail.
func (r *HistoryRepository) RecordResult(ctx context.Context, entry *models.DistributionHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now()
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}

	query := `
		INSERT INTO distribution_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.JobID, entry.ItemID, entry.ItemTitle, entry.ItemType,
		entry.Genre, entry.Tags, entry.PlatformKey, entry.Status,
		entry.ExternalRef, entry.ErrorClass, entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record distribution history: %w", err)
	}

	return nil
}

// List retrieves history entries with optional filters
func (r *HistoryRepository) List(ctx context.Context, filter *models.DistributionHistoryFilter) ([]models.DistributionHistory, error) {
	history := []models.DistributionHistory{}

	if filter.Limit == 0 {
		filter.Limit = 100
	}
	const maxLimit = 1000
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	query := `SELECT ` + historyColumns + ` FROM distribution_history WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.PlatformKey != "" {
		query += fmt.Sprintf(" AND platform_key = $%d", argPos)
		args = append(args, filter.PlatformKey)
		argPos++
	}
	if filter.JobID != "" {
		query += fmt.Sprintf(" AND job_id = $%d", argPos)
		args = append(args, filter.JobID)
		argPos++
	}
	if filter.ItemID != "" {
		query += fmt.Sprintf(" AND item_id = $%d", argPos)
		args = append(args, filter.ItemID)
		argPos++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND recorded_at >= $%d", argPos)
		args = append(args, *filter.StartDate)
		argPos++
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND recorded_at <= $%d", argPos)
		args = append(args, *filter.EndDate)
		argPos++
	}

	query += " ORDER BY recorded_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)

	if err := r.db.SelectContext(ctx, &history, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list distribution history: %w", err)
	}

	return history, nil
}

// CountByStatus returns per-status totals for the trail, optionally since a time.
func (r *HistoryRepository) CountByStatus(ctx context.Context, since *time.Time) (map[string]int64, error) {
	type row struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}
	rows := []row{}

	query := `SELECT status, COUNT(*) AS count FROM distribution_history`
	args := []any{}
	if since != nil {
		query += " WHERE recorded_at >= $1"
		args = append(args, *since)
	}
	query += " GROUP BY status"

	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count distribution history: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

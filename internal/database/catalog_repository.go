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

const uniqueViolation = "23505"

// Repository provides database operations for the content catalog: items,
// platform configs and platform profiles.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new repository instance
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Ping verifies the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ====================
// Content Items
// ====================

// CreateContentItem creates a new content item
func (r *Repository) CreateContentItem(ctx context.Context, req *models.ContentItemCreateRequest) (*models.ContentItem, error) {
	item := &models.ContentItem{
		ID:          uuid.New(),
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Genre:       req.Genre,
		Tags:        pq.StringArray(req.Tags),
		BasePrice:   req.BasePrice,
		Currency:    req.Currency,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if item.Tags == nil {
		item.Tags = pq.StringArray{}
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO content_items (id, type, title, description, genre, tags, base_price, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, type, title, description, genre, tags, base_price, currency, created_at, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		item.ID, item.Type, item.Title, item.Description, item.Genre,
		item.Tags, item.BasePrice, item.Currency, item.CreatedAt, item.UpdatedAt,
	).StructScan(item)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, models.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create content item: %w", err)
	}

	return item, nil
}

// GetContentItemByID retrieves a content item by ID
func (r *Repository) GetContentItemByID(ctx context.Context, id uuid.UUID) (*models.ContentItem, error) {
	item := &models.ContentItem{}
	query := `
		SELECT id, type, title, description, genre, tags, base_price, currency, created_at, updated_at
		FROM content_items
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, item, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}

	return item, nil
}

// ListContentItems retrieves all content items
func (r *Repository) ListContentItems(ctx context.Context) ([]models.ContentItem, error) {
	items := []models.ContentItem{}
	query := `
		SELECT id, type, title, description, genre, tags, base_price, currency, created_at, updated_at
		FROM content_items
		ORDER BY created_at DESC
	`

	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}

	return items, nil
}

// UpdateContentItem updates a content item's mutable fields
func (r *Repository) UpdateContentItem(ctx context.Context, id uuid.UUID, req *models.ContentItemUpdateRequest) (*models.ContentItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	item, err := r.GetContentItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Genre != nil {
		item.Genre = *req.Genre
	}
	if req.Tags != nil {
		item.Tags = pq.StringArray(req.Tags)
	}
	if req.BasePrice != nil {
		item.BasePrice = *req.BasePrice
	}
	item.UpdatedAt = time.Now()

	query := `
		UPDATE content_items
		SET title = $2, description = $3, genre = $4, tags = $5, base_price = $6, updated_at = $7
		WHERE id = $1
		RETURNING id, type, title, description, genre, tags, base_price, currency, created_at, updated_at
	`

	err = r.db.QueryRowxContext(
		ctx, query,
		item.ID, item.Title, item.Description, item.Genre, item.Tags, item.BasePrice, item.UpdatedAt,
	).StructScan(item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update content item: %w", err)
	}

	return item, nil
}

// DeleteContentItem deletes a content item and its platform configs
func (r *Repository) DeleteContentItem(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete content item: %w", err)
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
// Platform Configs
// ====================

const platformConfigColumns = `id, content_item_id, platform_key, enabled, priority, title_override,
		desc_override, tags_override, price_override, optimized, created_at, updated_at`

// UpsertPlatformConfig creates or replaces the config for one (item, platform) pair
func (r *Repository) UpsertPlatformConfig(ctx context.Context, itemID uuid.UUID, req *models.PlatformConfigUpsertRequest) (*models.PlatformConfig, error) {
	cfg := &models.PlatformConfig{
		ID:            uuid.New(),
		ContentItemID: itemID,
		PlatformKey:   req.PlatformKey,
		Enabled:       true,
		Priority:      0,
		TitleOverride: req.TitleOverride,
		DescOverride:  req.DescOverride,
		TagsOverride:  pq.StringArray(req.TagsOverride),
		PriceOverride: req.PriceOverride,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.Priority != nil {
		cfg.Priority = *req.Priority
	}

	query := `
		INSERT INTO platform_configs (` + platformConfigColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, $11)
		ON CONFLICT (content_item_id, platform_key) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			priority = EXCLUDED.priority,
			title_override = EXCLUDED.title_override,
			desc_override = EXCLUDED.desc_override,
			tags_override = EXCLUDED.tags_override,
			price_override = EXCLUDED.price_override,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + platformConfigColumns + `
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		cfg.ID, cfg.ContentItemID, cfg.PlatformKey, cfg.Enabled, cfg.Priority,
		cfg.TitleOverride, cfg.DescOverride, cfg.TagsOverride, cfg.PriceOverride,
		cfg.CreatedAt, cfg.UpdatedAt,
	).StructScan(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert platform config: %w", err)
	}

	return cfg, nil
}

// GetPlatformConfig retrieves the config for one (item, platform) pair
func (r *Repository) GetPlatformConfig(ctx context.Context, itemID uuid.UUID, platformKey string) (*models.PlatformConfig, error) {
	cfg := &models.PlatformConfig{}
	query := `
		SELECT ` + platformConfigColumns + `
		FROM platform_configs
		WHERE content_item_id = $1 AND platform_key = $2
	`

	err := r.db.GetContext(ctx, cfg, query, itemID, platformKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get platform config: %w", err)
	}

	return cfg, nil
}

// ListPlatformConfigs retrieves the configs for one content item
func (r *Repository) ListPlatformConfigs(ctx context.Context, itemID uuid.UUID, enabledOnly bool) ([]models.PlatformConfig, error) {
	configs := []models.PlatformConfig{}
	query := `
		SELECT ` + platformConfigColumns + `
		FROM platform_configs
		WHERE content_item_id = $1
	`
	if enabledOnly {
		query += " AND enabled = true"
	}
	query += " ORDER BY priority ASC, platform_key ASC"

	if err := r.db.SelectContext(ctx, &configs, query, itemID); err != nil {
		return nil, fmt.Errorf("failed to list platform configs: %w", err)
	}

	return configs, nil
}

// MarkOptimized sets the optimized flag, and the price override when
// non-nil. Called by the rule engine after a rule fires.
func (r *Repository) MarkOptimized(ctx context.Context, configID uuid.UUID, priceOverride *float64) error {
	query := `
		UPDATE platform_configs
		SET optimized = true,
		    price_override = COALESCE($2, price_override),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, configID, priceOverride)
	if err != nil {
		return fmt.Errorf("failed to mark config optimized: %w", err)
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

// ResetOptimized clears the optimized flag for one config
func (r *Repository) ResetOptimized(ctx context.Context, configID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE platform_configs SET optimized = false, updated_at = NOW() WHERE id = $1`, configID)
	if err != nil {
		return fmt.Errorf("failed to reset optimized flag: %w", err)
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
// Platform Profiles
// ====================

const platformProfileColumns = `key, display_name, tier, revenue_class, audience_size, preferred_genres,
		max_title_len, min_title_len, max_desc_len, min_desc_len, competition`

// GetPlatformProfile retrieves the capability record for a platform
func (r *Repository) GetPlatformProfile(ctx context.Context, key string) (*models.PlatformProfile, error) {
	profile := &models.PlatformProfile{}
	query := `
		SELECT ` + platformProfileColumns + `
		FROM platform_profiles
		WHERE key = $1
	`

	err := r.db.GetContext(ctx, profile, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get platform profile: %w", err)
	}

	return profile, nil
}

// ListPlatformProfiles retrieves all platform profiles
func (r *Repository) ListPlatformProfiles(ctx context.Context) ([]models.PlatformProfile, error) {
	profiles := []models.PlatformProfile{}
	query := `
		SELECT ` + platformProfileColumns + `
		FROM platform_profiles
		ORDER BY tier ASC, key ASC
	`

	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("failed to list platform profiles: %w", err)
	}

	return profiles, nil
}

// UpsertPlatformProfile creates or replaces a platform profile
func (r *Repository) UpsertPlatformProfile(ctx context.Context, profile *models.PlatformProfile) error {
	query := `
		INSERT INTO platform_profiles (` + platformProfileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (key) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			tier = EXCLUDED.tier,
			revenue_class = EXCLUDED.revenue_class,
			audience_size = EXCLUDED.audience_size,
			preferred_genres = EXCLUDED.preferred_genres,
			max_title_len = EXCLUDED.max_title_len,
			min_title_len = EXCLUDED.min_title_len,
			max_desc_len = EXCLUDED.max_desc_len,
			min_desc_len = EXCLUDED.min_desc_len,
			competition = EXCLUDED.competition
	`

	_, err := r.db.ExecContext(ctx, query,
		profile.Key, profile.DisplayName, profile.Tier, profile.RevenueClass,
		profile.AudienceSize, profile.PreferredGenres, profile.MaxTitleLen,
		profile.MinTitleLen, profile.MaxDescLen, profile.MinDescLen, profile.Competition,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert platform profile: %w", err)
	}

	return nil
}

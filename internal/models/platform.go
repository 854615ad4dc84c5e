package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CompetitionLevel classifies how crowded a platform's marketplace is for a genre.
type CompetitionLevel string

const (
	CompetitionLow    CompetitionLevel = "low"
	CompetitionMedium CompetitionLevel = "medium"
	CompetitionHigh   CompetitionLevel = "high"
)

// PlatformConfig holds the per-platform publication settings for one content
// item. There is exactly one config per (item, platform) pair. The optimized
// flag is owned by the rule engine; the orchestrator never writes configs.
type PlatformConfig struct {
	ID            uuid.UUID      `db:"id"             json:"id"`
	ContentItemID uuid.UUID      `db:"content_item_id" json:"content_item_id"`
	PlatformKey   string         `db:"platform_key"   json:"platform_key"`
	Enabled       bool           `db:"enabled"        json:"enabled"`
	Priority      int            `db:"priority"       json:"priority"`
	TitleOverride *string        `db:"title_override" json:"title_override,omitempty"`
	DescOverride  *string        `db:"desc_override"  json:"desc_override,omitempty"`
	TagsOverride  pq.StringArray `db:"tags_override"  json:"tags_override,omitempty"`
	PriceOverride *float64       `db:"price_override" json:"price_override,omitempty"`
	Optimized     bool           `db:"optimized"      json:"optimized"`
	CreatedAt     time.Time      `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"     json:"updated_at"`
}

// EffectivePrice returns the price override when set, otherwise the item's base price.
func (p *PlatformConfig) EffectivePrice(basePrice float64) float64 {
	if p.PriceOverride != nil {
		return *p.PriceOverride
	}
	return basePrice
}

// EffectiveTitle returns the title override when set, otherwise the item's title.
func (p *PlatformConfig) EffectiveTitle(title string) string {
	if p.TitleOverride != nil {
		return *p.TitleOverride
	}
	return title
}

// PlatformProfile is the capability record for a destination platform.
// New platforms are added as data rows, never as name-based branches.
type PlatformProfile struct {
	Key             string           `db:"key"              json:"key"`
	DisplayName     string           `db:"display_name"     json:"display_name"`
	Tier            int              `db:"tier"             json:"tier"`
	RevenueClass    float64          `db:"revenue_class"    json:"revenue_class"` // monthly revenue multiplier relative to 1.0
	AudienceSize    int64            `db:"audience_size"    json:"audience_size"`
	PreferredGenres pq.StringArray   `db:"preferred_genres" json:"preferred_genres"`
	MaxTitleLen     int              `db:"max_title_len"    json:"max_title_len"`
	MinTitleLen     int              `db:"min_title_len"    json:"min_title_len"`
	MaxDescLen      int              `db:"max_desc_len"     json:"max_desc_len"`
	MinDescLen      int              `db:"min_desc_len"     json:"min_desc_len"`
	Competition     CompetitionLevel `db:"competition"      json:"competition"`
}

// PrefersGenre reports whether the profile lists the genre as preferred.
func (p *PlatformProfile) PrefersGenre(genre string) bool {
	for _, g := range p.PreferredGenres {
		if g == genre {
			return true
		}
	}
	return false
}

// PlatformConfigUpsertRequest represents the payload for creating or
// replacing a platform config.
type PlatformConfigUpsertRequest struct {
	PlatformKey   string   `binding:"required,min=1,max=100" json:"platform_key"`
	Enabled       *bool    `json:"enabled"`
	Priority      *int     `binding:"omitempty,min=0"        json:"priority"`
	TitleOverride *string  `binding:"omitempty,max=255"      json:"title_override"`
	DescOverride  *string  `binding:"omitempty,max=4000"     json:"desc_override"`
	TagsOverride  []string `json:"tags_override"`
	PriceOverride *float64 `binding:"omitempty,gt=0"         json:"price_override"`
}

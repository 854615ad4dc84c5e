package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// DistributionHistory is an audit trail entry for one recorded platform
// result. Item fields are denormalized so the trail survives catalog edits.
type DistributionHistory struct {
	ID          uuid.UUID      `db:"id"           json:"id"`
	JobID       uuid.UUID      `db:"job_id"       json:"job_id"`
	ItemID      uuid.UUID      `db:"item_id"      json:"item_id"`
	ItemTitle   string         `db:"item_title"   json:"item_title"`
	ItemType    string         `db:"item_type"    json:"item_type"`
	Genre       string         `db:"genre"        json:"genre"`
	Tags        pq.StringArray `db:"tags"         json:"tags"`
	PlatformKey string         `db:"platform_key" json:"platform_key"`
	Status      string         `db:"status"       json:"status"`
	ExternalRef string         `db:"external_ref" json:"external_ref"`
	ErrorClass  string         `db:"error_class"  json:"error_class"`
	RecordedAt  time.Time      `db:"recorded_at"  json:"recorded_at"`
}

// DistributionHistoryFilter represents filter criteria for querying the audit trail
type DistributionHistoryFilter struct {
	PlatformKey string     `form:"platform_key"`
	JobID       string     `form:"job_id"`
	ItemID      string     `form:"item_id"`
	Status      string     `form:"status"`
	StartDate   *time.Time `form:"start_date"                  time_format:"2006-01-02"`
	EndDate     *time.Time `form:"end_date"                    time_format:"2006-01-02"`
	Limit       int        `binding:"omitempty,min=1,max=1000" form:"limit"` // Default 100
	Offset      int        `binding:"omitempty,min=0"          form:"offset"`
}

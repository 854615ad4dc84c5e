package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ContentType is the closed set of asset types the catalog distributes.
type ContentType string

const (
	ContentTypeMusic ContentType = "music"
	ContentTypeBook  ContentType = "book"
)

// Valid reports whether the content type is one of the known values.
func (t ContentType) Valid() bool {
	return t == ContentTypeMusic || t == ContentTypeBook
}

// ContentItem represents a music or book asset owned by the label catalog.
// Once a distribution job references an item it is copied on dispatch, so
// later catalog edits never leak into an in-flight job.
type ContentItem struct {
	ID          uuid.UUID      `db:"id"          json:"id"`
	Type        ContentType    `db:"type"        json:"type"`
	Title       string         `db:"title"       json:"title"`
	Description string         `db:"description" json:"description"`
	Genre       string         `db:"genre"       json:"genre"`
	Tags        pq.StringArray `db:"tags"        json:"tags"`
	BasePrice   float64        `db:"base_price"  json:"base_price"`
	Currency    string         `db:"currency"    json:"currency"`
	CreatedAt   time.Time      `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"  json:"updated_at"`
}

// Validate checks the item's field invariants.
func (c *ContentItem) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown content type %q", c.Type)
	}
	if c.Title == "" {
		return fmt.Errorf("title is required")
	}
	if c.BasePrice <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Clone returns a deep copy of the item. Dispatch snapshots items through
// this so job processing never observes catalog mutations.
func (c *ContentItem) Clone() ContentItem {
	out := *c
	out.Tags = append(pq.StringArray(nil), c.Tags...)
	return out
}

// ContentItemCreateRequest represents the request payload for creating a content item
type ContentItemCreateRequest struct {
	Type        ContentType `binding:"required"                json:"type"`
	Title       string      `binding:"required,min=1,max=255"  json:"title"`
	Description string      `binding:"max=4000"                json:"description"`
	Genre       string      `binding:"max=100"                 json:"genre"`
	Tags        []string    `json:"tags"`
	BasePrice   float64     `binding:"required,gt=0"           json:"base_price"`
	Currency    string      `binding:"required,len=3"          json:"currency"`
}

// ContentItemUpdateRequest represents the request payload for updating a content item
type ContentItemUpdateRequest struct {
	Title       *string  `binding:"omitempty,min=1,max=255" json:"title"`
	Description *string  `binding:"omitempty,max=4000"      json:"description"`
	Genre       *string  `binding:"omitempty,max=100"       json:"genre"`
	Tags        []string `json:"tags"`
	BasePrice   *float64 `binding:"omitempty,gt=0"          json:"base_price"`
}

// Validate validates the content item update request
func (r *ContentItemUpdateRequest) Validate() error {
	if r.Title == nil && r.Description == nil && r.Genre == nil &&
		r.Tags == nil && r.BasePrice == nil {
		return ErrNoFieldsToUpdate
	}
	return nil
}

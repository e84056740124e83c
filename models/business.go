package models

import (
	"database/sql/driver"
	"time"

	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LiveStatus is the real-time availability signal a business publishes
type LiveStatus string

const (
	LiveStatusClosed     LiveStatus = "closed"
	LiveStatusOpen       LiveStatus = "open"
	LiveStatusFreshBatch LiveStatus = "fresh_batch"
	LiveStatusLastUnits  LiveStatus = "last_units"
	LiveStatusBusy       LiveStatus = "busy"
)

func (s LiveStatus) Valid() bool {
	switch s {
	case LiveStatusClosed, LiveStatusOpen, LiveStatusFreshBatch, LiveStatusLastUnits, LiveStatusBusy:
		return true
	default:
		return false
	}
}

func (s *LiveStatus) Scan(value any) error {
	v, err := scanString(value, "LiveStatus")
	*s = LiveStatus(v)
	return err
}

func (s LiveStatus) Value() (driver.Value, error) {
	return enumValue(string(s), s.Valid(), "LiveStatus")
}

// GeoPoint is a WGS84 coordinate pair in degrees
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Business is a directory listing as consumed by ranking and geofencing.
// Table: businesses
// Lat/Lng are nullable; a business without coordinates gets no proximity credit.
type Business struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_businesses_uuid" json:"uuid"`

	Name     string `gorm:"size:255;not null" json:"name"`
	PlanID   *uint  `gorm:"index:idx_businesses_plan_id" json:"plan_id,omitempty"`
	SectorID *uint  `gorm:"index:idx_businesses_sector_id" json:"sector_id,omitempty"`

	Lat *float64 `gorm:"type:double precision" json:"lat,omitempty"`
	Lng *float64 `gorm:"type:double precision" json:"lng,omitempty"`

	LiveStatus   LiveStatus `gorm:"type:varchar(20);not null;default:'closed'" json:"live_status"`
	ImageCount   int        `gorm:"not null;default:0" json:"image_count"`
	TotalAdSpend float64    `gorm:"type:numeric(14,2);not null;default:0" json:"total_ad_spend"`

	IsActive  *bool     `gorm:"default:true;index:idx_businesses_is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Ratings []BusinessRating `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"ratings,omitempty"`
	Stories []BusinessStory  `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"stories,omitempty"`
}

func (Business) TableName() string {
	return "businesses"
}

// BeforeCreate ensures UUID and timestamps are set.
func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.UUID == uuid.Nil {
		b.UUID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = utils.UTCNow()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Location returns the business coordinates, or nil when either is missing
func (b *Business) Location() *GeoPoint {
	if b.Lat == nil || b.Lng == nil {
		return nil
	}
	return &GeoPoint{Lat: *b.Lat, Lng: *b.Lng}
}

// BusinessRating is a single 1..5 star review sample
type BusinessRating struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BusinessID uint      `gorm:"not null;index:idx_business_ratings_business_id" json:"business_id"`
	Stars      int       `gorm:"not null;check:chk_business_ratings_stars,stars BETWEEN 1 AND 5" json:"stars"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (BusinessRating) TableName() string {
	return "business_ratings"
}

// BusinessStory is an ephemeral post; it counts as activity until ExpiresAt
type BusinessStory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BusinessID uint      `gorm:"not null;index:idx_business_stories_business_id" json:"business_id"`
	MediaURL   *string   `gorm:"type:text" json:"media_url,omitempty"`
	ExpiresAt  time.Time `gorm:"not null;index:idx_business_stories_expires_at" json:"expires_at"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (BusinessStory) TableName() string {
	return "business_stories"
}

// BusinessFilter represents filter criteria for business queries
type BusinessFilter struct {
	IDs      []uint
	UUID     *uuid.UUID
	PlanID   *uint
	SectorID *uint
	IsActive *bool
}

package models

import (
	"database/sql/driver"
	"time"

	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PromotionKind distinguishes platform-wide campaigns from campaigns bought by a business
type PromotionKind string

const (
	PromotionKindPlatformCampaign PromotionKind = "platform_campaign"
	PromotionKindBusinessCampaign PromotionKind = "business_campaign"
)

func (k PromotionKind) Valid() bool {
	switch k {
	case PromotionKindPlatformCampaign, PromotionKindBusinessCampaign:
		return true
	default:
		return false
	}
}

func (k *PromotionKind) Scan(value any) error {
	s, err := scanString(value, "PromotionKind")
	*k = PromotionKind(s)
	return err
}

func (k PromotionKind) Value() (driver.Value, error) {
	return enumValue(string(k), k.Valid(), "PromotionKind")
}

// PromotionSubtype is the campaign flavour used by the scoring lookup
type PromotionSubtype string

const (
	PromotionSubtypeSeasonal     PromotionSubtype = "seasonal"
	PromotionSubtypeTrend        PromotionSubtype = "trend"
	PromotionSubtypeZoneActive   PromotionSubtype = "zone_active"
	PromotionSubtypeEducational  PromotionSubtype = "educational"
	PromotionSubtypeFeatured     PromotionSubtype = "featured"
	PromotionSubtypeOffer        PromotionSubtype = "offer"
	PromotionSubtypeAvailability PromotionSubtype = "availability"
	PromotionSubtypeExclusive    PromotionSubtype = "exclusive"
	PromotionSubtypeReputation   PromotionSubtype = "reputation"
)

func (s PromotionSubtype) Valid() bool {
	switch s {
	case PromotionSubtypeSeasonal, PromotionSubtypeTrend, PromotionSubtypeZoneActive,
		PromotionSubtypeEducational, PromotionSubtypeFeatured, PromotionSubtypeOffer,
		PromotionSubtypeAvailability, PromotionSubtypeExclusive, PromotionSubtypeReputation:
		return true
	default:
		return false
	}
}

func (s *PromotionSubtype) Scan(value any) error {
	v, err := scanString(value, "PromotionSubtype")
	*s = PromotionSubtype(v)
	return err
}

func (s PromotionSubtype) Value() (driver.Value, error) {
	return enumValue(string(s), s.Valid(), "PromotionSubtype")
}

// PromotionPosition is where on the page an item is placed
type PromotionPosition string

const (
	PromotionPositionHeader     PromotionPosition = "header"
	PromotionPositionPopup      PromotionPosition = "popup"
	PromotionPositionSidebar    PromotionPosition = "sidebar"
	PromotionPositionFooter     PromotionPosition = "footer"
	PromotionPositionInlineList PromotionPosition = "inline_list"
)

func (p PromotionPosition) Valid() bool {
	switch p {
	case PromotionPositionHeader, PromotionPositionPopup, PromotionPositionSidebar,
		PromotionPositionFooter, PromotionPositionInlineList:
		return true
	default:
		return false
	}
}

func (p *PromotionPosition) Scan(value any) error {
	v, err := scanString(value, "PromotionPosition")
	*p = PromotionPosition(v)
	return err
}

func (p PromotionPosition) Value() (driver.Value, error) {
	return enumValue(string(p), p.Valid(), "PromotionPosition")
}

// PromotionFormat is the visual format of an item
type PromotionFormat string

const (
	PromotionFormatHorizontal   PromotionFormat = "horizontal"
	PromotionFormatCardVertical PromotionFormat = "card_vertical"
	PromotionFormatStickyBottom PromotionFormat = "sticky_bottom"
	PromotionFormatInline       PromotionFormat = "inline"
	PromotionFormatMiniBadge    PromotionFormat = "mini_badge"
)

func (f PromotionFormat) Valid() bool {
	switch f {
	case PromotionFormatHorizontal, PromotionFormatCardVertical, PromotionFormatStickyBottom,
		PromotionFormatInline, PromotionFormatMiniBadge:
		return true
	default:
		return false
	}
}

func (f *PromotionFormat) Scan(value any) error {
	v, err := scanString(value, "PromotionFormat")
	*f = PromotionFormat(v)
	return err
}

func (f PromotionFormat) Value() (driver.Value, error) {
	return enumValue(string(f), f.Valid(), "PromotionFormat")
}

// PromotionStatus is the operator-controlled lifecycle state
type PromotionStatus string

const (
	PromotionStatusActive    PromotionStatus = "active"
	PromotionStatusPaused    PromotionStatus = "paused"
	PromotionStatusScheduled PromotionStatus = "scheduled"
)

func (s PromotionStatus) Valid() bool {
	switch s {
	case PromotionStatusActive, PromotionStatusPaused, PromotionStatusScheduled:
		return true
	default:
		return false
	}
}

func (s PromotionStatus) String() string {
	return string(s)
}

func (s *PromotionStatus) Scan(value any) error {
	v, err := scanString(value, "PromotionStatus")
	*s = PromotionStatus(v)
	return err
}

func (s PromotionStatus) Value() (driver.Value, error) {
	return enumValue(string(s), s.Valid(), "PromotionStatus")
}

// SpawnType selects the frequency rule applied to an item. Unknown values are
// tolerated and fall back to the weekly rule.
type SpawnType string

const (
	SpawnTypeDaily    SpawnType = "daily"
	SpawnTypeWeekly   SpawnType = "weekly"
	SpawnTypeBiweekly SpawnType = "biweekly"
	SpawnTypeBoost    SpawnType = "boost"
)

// PromotionalItem is a banner/campaign that can be allocated to a render slot.
// Table: promotional_items
// StartDate/EndDate nil means the window is open on that side.
// Views and Clicks are counters only; the allocation engine never reads them.
type PromotionalItem struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_promotional_items_uuid" json:"uuid"`

	Title        string  `gorm:"size:255;not null" json:"title"`
	ImageURL     *string `gorm:"type:text" json:"image_url,omitempty"`
	CallToAction *string `gorm:"size:120" json:"call_to_action,omitempty"`
	LinkURL      *string `gorm:"type:text" json:"link_url,omitempty"`

	Kind     PromotionKind     `gorm:"type:varchar(32);not null;index:idx_promotional_items_kind" json:"kind"`
	Subtype  PromotionSubtype  `gorm:"type:varchar(32);not null" json:"subtype"`
	Position PromotionPosition `gorm:"type:varchar(32);not null;index:idx_promotional_items_position" json:"position"`
	Format   PromotionFormat   `gorm:"type:varchar(32);not null" json:"format"`

	StartDate *time.Time      `gorm:"index:idx_promotional_items_window" json:"start_date,omitempty"`
	EndDate   *time.Time      `gorm:"index:idx_promotional_items_window" json:"end_date,omitempty"`
	Status    PromotionStatus `gorm:"type:varchar(20);not null;default:'scheduled';index:idx_promotional_items_status" json:"status"`

	LinkedBusinessID      *uint          `gorm:"index:idx_promotional_items_business" json:"linked_business_id,omitempty"`
	RelatedSectorID       *uint          `gorm:"index:idx_promotional_items_sector" json:"related_sector_id,omitempty"`
	TargetingRadiusMeters float64        `gorm:"type:numeric(12,2);not null;default:0" json:"targeting_radius_meters"`
	SpawnType             SpawnType      `gorm:"type:varchar(20);not null;default:'weekly'" json:"spawn_type"`
	FrequencyCapPerDay    int            `gorm:"not null;default:0" json:"frequency_cap_per_day"`
	TargetRoles           pq.StringArray `gorm:"type:text[]" json:"target_roles,omitempty"`

	Views  int64 `gorm:"not null;default:0" json:"views"`
	Clicks int64 `gorm:"not null;default:0" json:"clicks"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_promotional_items_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (PromotionalItem) TableName() string {
	return "promotional_items"
}

// BeforeCreate ensures UUID and timestamps are set.
func (p *PromotionalItem) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// IsBusinessLinked reports whether the item promotes a specific business
func (p *PromotionalItem) IsBusinessLinked() bool {
	return p.LinkedBusinessID != nil && *p.LinkedBusinessID != 0
}

// ActiveAt reports whether the item is active and inside its validity window at t
func (p *PromotionalItem) ActiveAt(t time.Time) bool {
	if p.Status != PromotionStatusActive {
		return false
	}
	if p.StartDate != nil && p.StartDate.After(t) {
		return false
	}
	if p.EndDate != nil && p.EndDate.Before(t) {
		return false
	}
	return true
}

// PromotionalItemFilter represents filter criteria for promotional item queries
type PromotionalItemFilter struct {
	ID               *uint
	UUID             *uuid.UUID
	Status           *PromotionStatus
	Positions        []PromotionPosition
	Kind             *PromotionKind
	LinkedBusinessID *uint
	ActiveAt         *time.Time
	CreatedAfter     *time.Time
	CreatedBefore    *time.Time
}

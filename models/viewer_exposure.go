package models

import (
	"time"
)

// ViewerExposureState holds the per-viewer scalar shared across all items.
// Table: viewer_exposure_states
// The row is also the lock target that serializes exposure updates per viewer.
type ViewerExposureState struct {
	ViewerID             string     `gorm:"primaryKey;size:64" json:"viewer_id"`
	LastGlobalExposureAt *time.Time `json:"last_global_exposure_at,omitempty"`
	UpdatedAt            time.Time  `gorm:"not null;index:idx_viewer_exposure_states_updated_at" json:"updated_at"`
}

func (ViewerExposureState) TableName() string {
	return "viewer_exposure_states"
}

// ViewerExposure is the per-viewer, per-item exposure counter.
// Table: viewer_exposures
// DailyViewCount is only meaningful while DayBucket equals the current day.
type ViewerExposure struct {
	ViewerID       string    `gorm:"primaryKey;size:64" json:"viewer_id"`
	ItemID         uint      `gorm:"primaryKey" json:"item_id"`
	LastViewedAt   time.Time `gorm:"not null;index:idx_viewer_exposures_last_viewed_at" json:"last_viewed_at"`
	DailyViewCount int       `gorm:"not null;default:0" json:"daily_view_count"`
	DayBucket      string    `gorm:"size:10;not null" json:"day_bucket"`
}

func (ViewerExposure) TableName() string {
	return "viewer_exposures"
}

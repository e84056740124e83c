package models

import (
	"time"
)

// Plan is a subscription tier from the plan catalog.
// Table: plans
// SortingScore feeds both banner scoring (×100) and SweetRank's plan component.
// BypassesFrequencyCap and PeakHourRotation are capabilities resolved once from the
// catalog so allocation code never compares plan names.
type Plan struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"size:50;not null;uniqueIndex:uk_plans_code" yaml:"code" json:"code"`
	Name string `gorm:"size:100;not null" yaml:"name" json:"name"`
	Tier int    `gorm:"not null;default:0;index:idx_plans_tier" yaml:"tier" json:"tier"`

	SortingScore           float64 `gorm:"type:numeric(10,4);not null;default:0" yaml:"sorting_score" json:"sorting_score"`
	VisibilityRadiusMeters float64 `gorm:"type:numeric(12,2);not null;default:5000" yaml:"visibility_radius_meters" json:"visibility_radius_meters"`
	ExtraLocationPrice     float64 `gorm:"type:numeric(12,2);not null;default:0" yaml:"extra_location_price" json:"extra_location_price"`

	BypassesFrequencyCap bool `gorm:"not null;default:false" yaml:"bypasses_frequency_cap" json:"bypasses_frequency_cap"`
	PeakHourRotation     bool `gorm:"not null;default:false" yaml:"peak_hour_rotation" json:"peak_hour_rotation"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" yaml:"-" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" yaml:"-" json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

// PlanFilter represents filter criteria for plan queries
type PlanFilter struct {
	ID   *uint
	IDs  []uint
	Code *string
	Tier *int
}

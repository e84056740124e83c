package models

import (
	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table owned by the service, parents first.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Plan{},
		&Business{},
		&BusinessRating{},
		&BusinessStory{},
		&PromotionalItem{},
		&ViewerExposureState{},
		&ViewerExposure{},
	)
}

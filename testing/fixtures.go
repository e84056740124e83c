package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestPlan inserts a plan with the given code and sorting score
func (tf *TestFixtures) CreateTestPlan(code string, sortingScore float64) (*models.Plan, error) {
	plan := &models.Plan{
		Code:                   code,
		Name:                   code,
		Tier:                   int(sortingScore),
		SortingScore:           sortingScore,
		VisibilityRadiusMeters: utils.DefaultVisibilityRadiusMeters,
	}
	if err := tf.DB.DB.Create(plan).Error; err != nil {
		return nil, fmt.Errorf("failed to create plan %s: %w", code, err)
	}
	return plan, nil
}

// CreateTestBusiness inserts an open, active business at lat/lng
func (tf *TestFixtures) CreateTestBusiness(planID *uint, lat, lng float64) (*models.Business, error) {
	business := &models.Business{
		Name:       fmt.Sprintf("Panaderia %d", rand.Intn(100000)),
		PlanID:     planID,
		Lat:        utils.ToPtr(lat),
		Lng:        utils.ToPtr(lng),
		LiveStatus: models.LiveStatusOpen,
		ImageCount: 3,
		IsActive:   utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(business).Error; err != nil {
		return nil, fmt.Errorf("failed to create business: %w", err)
	}
	return business, nil
}

// AddRatings attaches star ratings to a business
func (tf *TestFixtures) AddRatings(businessID uint, stars ...int) error {
	for _, s := range stars {
		rating := &models.BusinessRating{BusinessID: businessID, Stars: s}
		if err := tf.DB.DB.Create(rating).Error; err != nil {
			return fmt.Errorf("failed to create rating: %w", err)
		}
	}
	return nil
}

// AddStory attaches a story expiring at expiresAt
func (tf *TestFixtures) AddStory(businessID uint, expiresAt time.Time) error {
	story := &models.BusinessStory{BusinessID: businessID, ExpiresAt: expiresAt}
	if err := tf.DB.DB.Create(story).Error; err != nil {
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

// CreateTestPromotionalItem inserts an active header item, optionally linked to a business
func (tf *TestFixtures) CreateTestPromotionalItem(linkedBusinessID *uint, position models.PromotionPosition) (*models.PromotionalItem, error) {
	kind := models.PromotionKindPlatformCampaign
	if linkedBusinessID != nil {
		kind = models.PromotionKindBusinessCampaign
	}
	item := &models.PromotionalItem{
		Title:            fmt.Sprintf("Promo %d", rand.Intn(100000)),
		Kind:             kind,
		Subtype:          models.PromotionSubtypeFeatured,
		Position:         position,
		Format:           models.PromotionFormatHorizontal,
		Status:           models.PromotionStatusActive,
		LinkedBusinessID: linkedBusinessID,
		SpawnType:        models.SpawnTypeWeekly,
	}
	if err := tf.DB.DB.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create promotional item: %w", err)
	}
	return item, nil
}

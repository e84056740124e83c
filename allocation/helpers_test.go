package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
)

var (
	// 2025-03-04 03:00 UTC, outside every peak window
	baseNow = time.Date(2025, 3, 4, 3, 0, 0, 0, time.UTC)

	centro = models.GeoPoint{Lat: 19.4326, Lng: -99.1332}
)

func activeItem(id uint, position models.PromotionPosition) *models.PromotionalItem {
	return &models.PromotionalItem{
		ID:        id,
		Title:     "promo",
		Kind:      models.PromotionKindPlatformCampaign,
		Subtype:   models.PromotionSubtypeTrend,
		Position:  position,
		Format:    models.PromotionFormatHorizontal,
		Status:    models.PromotionStatusActive,
		SpawnType: models.SpawnTypeWeekly,
	}
}

func linkedItem(id, businessID uint, position models.PromotionPosition) *models.PromotionalItem {
	item := activeItem(id, position)
	item.Kind = models.PromotionKindBusinessCampaign
	item.LinkedBusinessID = utils.ToPtr(businessID)
	return item
}

func businessAt(id, planID uint, p *models.GeoPoint) *models.Business {
	b := &models.Business{ID: id, PlanID: utils.ToPtr(planID), LiveStatus: models.LiveStatusClosed}
	if p != nil {
		b.Lat = utils.ToPtr(p.Lat)
		b.Lng = utils.ToPtr(p.Lng)
	}
	return b
}

// pointNorth returns a point the given distance north of p.
func pointNorth(p models.GeoPoint, meters float64) *models.GeoPoint {
	return &models.GeoPoint{Lat: p.Lat + meters/EarthRadiusMeters*180/3.141592653589793, Lng: p.Lng}
}

func exposureAt(lastGlobal time.Time) *ViewerExposure {
	v := NewViewerExposure()
	v.LastGlobalExposureAt = &lastGlobal
	return v
}

type failingStore struct {
	err error
}

func (s failingStore) Load(ctx context.Context, viewerID string) (*ViewerExposure, error) {
	return nil, s.err
}

func (s failingStore) Update(ctx context.Context, viewerID string, fn func(*ViewerExposure) error) error {
	return s.err
}

func (s failingStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, s.err
}

// slowStore blocks until ctx is done.
type slowStore struct{}

func (slowStore) Load(ctx context.Context, viewerID string) (*ViewerExposure, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowStore) Update(ctx context.Context, viewerID string, fn func(*ViewerExposure) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (slowStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	return 0, errors.New("not supported")
}

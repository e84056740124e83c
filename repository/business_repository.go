package repository

import (
	"context"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// BusinessRepositoryImpl implements BusinessRepository interface
type BusinessRepositoryImpl struct {
	*BaseRepository[models.Business, models.BusinessFilter]
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &BusinessRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Business, models.BusinessFilter](db),
	}
}

// applyFilter applies filter criteria to a GORM query
func (r *BusinessRepositoryImpl) applyFilter(query *gorm.DB, filter models.BusinessFilter) *gorm.DB {
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.PlanID != nil {
		query = query.Where("plan_id = ?", *filter.PlanID)
	}
	if filter.SectorID != nil {
		query = query.Where("sector_id = ?", *filter.SectorID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// withSignals preloads the ranking inputs: all ratings and only unexpired stories
func withSignals(query *gorm.DB, now time.Time) *gorm.DB {
	return query.
		Preload("Ratings").
		Preload("Stories", "expires_at > ?", now)
}

// ByFilter retrieves businesses based on filter criteria
func (r *BusinessRepositoryImpl) ByFilter(ctx context.Context, filter models.BusinessFilter, orderBy string, limit, offset int) ([]*models.Business, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Business{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var businesses []*models.Business
	if err := query.Find(&businesses).Error; err != nil {
		return nil, eris.Wrap(err, "failed to list businesses")
	}
	return businesses, nil
}

// ByIDsWithSignals loads businesses linked from promotional items together with their ranking signals
func (r *BusinessRepositoryImpl) ByIDsWithSignals(ctx context.Context, ids []uint, now time.Time) ([]*models.Business, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)
	var businesses []*models.Business
	if err := withSignals(db, now).Where("id IN ?", ids).Find(&businesses).Error; err != nil {
		return nil, eris.Wrap(err, "failed to load businesses by ids")
	}
	return businesses, nil
}

// ListWithSignals lists businesses for ranking in id order
func (r *BusinessRepositoryImpl) ListWithSignals(ctx context.Context, filter models.BusinessFilter, now time.Time, limit int) ([]*models.Business, error) {
	db := r.getDB(ctx)
	query := withSignals(r.applyFilter(db.Model(&models.Business{}), filter), now).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var businesses []*models.Business
	if err := query.Find(&businesses).Error; err != nil {
		return nil, eris.Wrap(err, "failed to list businesses for ranking")
	}
	return businesses, nil
}

// Count returns the number of businesses matching the filter
func (r *BusinessRepositoryImpl) Count(ctx context.Context, filter models.BusinessFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Business{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, eris.Wrap(err, "failed to count businesses")
	}
	return count, nil
}

// Exists checks if any business matching the filter exists
func (r *BusinessRepositoryImpl) Exists(ctx context.Context, filter models.BusinessFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

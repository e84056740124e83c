package repository

import (
	"context"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// PlanRepositoryImpl implements PlanRepository interface
type PlanRepositoryImpl struct {
	*BaseRepository[models.Plan, models.PlanFilter]
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &PlanRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Plan, models.PlanFilter](db),
	}
}

// ByCode retrieves a plan by its catalog code
func (r *PlanRepositoryImpl) ByCode(ctx context.Context, code string) (*models.Plan, error) {
	plans, err := r.ByFilter(ctx, models.PlanFilter{Code: &code}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	return plans[0], nil
}

// ListAll returns the whole catalog ordered by tier
func (r *PlanRepositoryImpl) ListAll(ctx context.Context) ([]*models.Plan, error) {
	return r.ByFilter(ctx, models.PlanFilter{}, "tier ASC, id ASC", 0, 0)
}

// applyFilter applies filter criteria to a GORM query
func (r *PlanRepositoryImpl) applyFilter(query *gorm.DB, filter models.PlanFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if filter.Code != nil {
		query = query.Where("code = ?", *filter.Code)
	}
	if filter.Tier != nil {
		query = query.Where("tier = ?", *filter.Tier)
	}
	return query
}

// ByFilter retrieves plans based on filter criteria
func (r *PlanRepositoryImpl) ByFilter(ctx context.Context, filter models.PlanFilter, orderBy string, limit, offset int) ([]*models.Plan, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Plan{}), filter)

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

	var plans []*models.Plan
	if err := query.Find(&plans).Error; err != nil {
		return nil, eris.Wrap(err, "failed to list plans")
	}
	return plans, nil
}

// Count returns the number of plans matching the filter
func (r *PlanRepositoryImpl) Count(ctx context.Context, filter models.PlanFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Plan{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, eris.Wrap(err, "failed to count plans")
	}
	return count, nil
}

// Exists checks if any plan matching the filter exists
func (r *PlanRepositoryImpl) Exists(ctx context.Context, filter models.PlanFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

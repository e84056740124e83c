package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

// PromotionalItemRepositoryImpl implements PromotionalItemRepository interface
type PromotionalItemRepositoryImpl struct {
	*BaseRepository[models.PromotionalItem, models.PromotionalItemFilter]
}

// NewPromotionalItemRepository creates a new promotional item repository
func NewPromotionalItemRepository(db *gorm.DB) PromotionalItemRepository {
	return &PromotionalItemRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PromotionalItem, models.PromotionalItemFilter](db),
	}
}

// ByUUID retrieves a promotional item by UUID
func (r *PromotionalItemRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.PromotionalItem, error) {
	items, err := r.ByFilter(ctx, models.PromotionalItemFilter{UUID: &id}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// applyFilter applies filter criteria to a GORM query
func (r *PromotionalItemRepositoryImpl) applyFilter(query *gorm.DB, filter models.PromotionalItemFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if len(filter.Positions) > 0 {
		query = query.Where("position IN ?", filter.Positions)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.LinkedBusinessID != nil {
		query = query.Where("linked_business_id = ?", *filter.LinkedBusinessID)
	}
	if filter.ActiveAt != nil {
		query = query.
			Where("(start_date IS NULL OR start_date <= ?)", *filter.ActiveAt).
			Where("(end_date IS NULL OR end_date >= ?)", *filter.ActiveAt)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves promotional items based on filter criteria
func (r *PromotionalItemRepositoryImpl) ByFilter(ctx context.Context, filter models.PromotionalItemFilter, orderBy string, limit, offset int) ([]*models.PromotionalItem, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PromotionalItem{}), filter)

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

	var items []*models.PromotionalItem
	if err := query.Find(&items).Error; err != nil {
		return nil, eris.Wrap(err, "failed to list promotional items")
	}
	return items, nil
}

// ListCandidates returns active items inside their validity window for the given positions.
// Items come back in a stable id order so that equal scores keep a reproducible order.
func (r *PromotionalItemRepositoryImpl) ListCandidates(ctx context.Context, positions []models.PromotionPosition, at time.Time, limit int) ([]*models.PromotionalItem, error) {
	status := models.PromotionStatusActive
	filter := models.PromotionalItemFilter{
		Status:    &status,
		Positions: positions,
		ActiveAt:  &at,
	}
	return r.ByFilter(ctx, filter, "id ASC", limit, 0)
}

// Count returns the number of promotional items matching the filter
func (r *PromotionalItemRepositoryImpl) Count(ctx context.Context, filter models.PromotionalItemFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.PromotionalItem{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, eris.Wrap(err, "failed to count promotional items")
	}
	return count, nil
}

// Exists checks if any promotional item matching the filter exists
func (r *PromotionalItemRepositoryImpl) Exists(ctx context.Context, filter models.PromotionalItemFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementViews bumps the view counter of every served item
func (r *PromotionalItemRepositoryImpl) IncrementViews(ctx context.Context, ids []uint) (err error) {
	if len(ids) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	err = db.Model(&models.PromotionalItem{}).
		Where("id IN ?", ids).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
	if err != nil {
		return eris.Wrap(err, "failed to increment promotional item views")
	}
	return nil
}

// IncrementClicks bumps the click counter of one item
func (r *PromotionalItemRepositoryImpl) IncrementClicks(ctx context.Context, id uint) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	result := db.Model(&models.PromotionalItem{}).
		Where("id = ?", id).
		UpdateColumn("clicks", gorm.Expr("clicks + 1"))
	if result.Error != nil {
		err = eris.Wrap(result.Error, "failed to increment promotional item clicks")
		return err
	}
	if result.RowsAffected == 0 {
		err = eris.Wrapf(ErrNotFound, "promotional item %d", id)
		return err
	}
	return nil
}

// UpdateStatus transitions an item to a new status
func (r *PromotionalItemRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.PromotionStatus) (err error) {
	if !status.Valid() {
		return errors.New("invalid promotion status")
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	result := db.Model(&models.PromotionalItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		})
	if result.Error != nil {
		err = eris.Wrap(result.Error, "failed to update promotional item status")
		return err
	}
	if result.RowsAffected == 0 {
		err = eris.Wrapf(ErrNotFound, "promotional item %d", id)
		return err
	}
	return nil
}

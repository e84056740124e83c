package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ViewerExposureRepositoryImpl implements ViewerExposureRepository interface
type ViewerExposureRepositoryImpl struct {
	*BaseRepository[models.ViewerExposure, struct{}]
}

// NewViewerExposureRepository creates a new viewer exposure repository
func NewViewerExposureRepository(db *gorm.DB) ViewerExposureRepository {
	return &ViewerExposureRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ViewerExposure, struct{}](db),
	}
}

// LockState inserts the state row if missing and locks it for the current transaction
func (r *ViewerExposureRepositoryImpl) LockState(ctx context.Context, viewerID string) (*models.ViewerExposureState, error) {
	if _, ok := ctx.Value(TxContextKey).(*gorm.DB); !ok {
		return nil, eris.New("LockState requires a transaction")
	}
	db := r.getDB(ctx)

	seed := models.ViewerExposureState{ViewerID: viewerID, UpdatedAt: utils.UTCNow()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, eris.Wrap(err, "failed to create viewer exposure state")
	}

	var state models.ViewerExposureState
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("viewer_id = ?", viewerID).
		First(&state).Error
	if err != nil {
		return nil, eris.Wrap(err, "failed to lock viewer exposure state")
	}
	return &state, nil
}

// StateByViewer returns the viewer state row or nil
func (r *ViewerExposureRepositoryImpl) StateByViewer(ctx context.Context, viewerID string) (*models.ViewerExposureState, error) {
	db := r.getDB(ctx)

	var state models.ViewerExposureState
	err := db.Where("viewer_id = ?", viewerID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "failed to load viewer exposure state")
	}
	return &state, nil
}

// ListByViewer returns all per-item exposure rows of a viewer
func (r *ViewerExposureRepositoryImpl) ListByViewer(ctx context.Context, viewerID string) ([]*models.ViewerExposure, error) {
	db := r.getDB(ctx)

	var rows []*models.ViewerExposure
	if err := db.Where("viewer_id = ?", viewerID).Order("item_id ASC").Find(&rows).Error; err != nil {
		return nil, eris.Wrap(err, "failed to list viewer exposures")
	}
	return rows, nil
}

// SaveState writes the viewer scalar state
func (r *ViewerExposureRepositoryImpl) SaveState(ctx context.Context, state *models.ViewerExposureState) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	state.UpdatedAt = utils.UTCNow()
	if err = db.Save(state).Error; err != nil {
		return eris.Wrap(err, "failed to save viewer exposure state")
	}
	return nil
}

// UpsertExposures inserts or overwrites per-item exposure rows
func (r *ViewerExposureRepositoryImpl) UpsertExposures(ctx context.Context, rows []*models.ViewerExposure) (err error) {
	if len(rows) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_viewed_at", "daily_view_count", "day_bucket"}),
	}).Create(&rows).Error
	if err != nil {
		return eris.Wrap(err, "failed to upsert viewer exposures")
	}
	return nil
}

// DeleteExposures removes the given item rows of a viewer
func (r *ViewerExposureRepositoryImpl) DeleteExposures(ctx context.Context, viewerID string, itemIDs []uint) (err error) {
	if len(itemIDs) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	err = db.Where("viewer_id = ? AND item_id IN ?", viewerID, itemIDs).
		Delete(&models.ViewerExposure{}).Error
	if err != nil {
		return eris.Wrap(err, "failed to delete viewer exposures")
	}
	return nil
}

// DeleteOlderThan prunes exposure rows last viewed before cutoff, then drops
// viewer states that were not touched since cutoff and have no rows left.
// It returns the number of exposure rows removed.
func (r *ViewerExposureRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (removed int64, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}
	defer finish(db, shouldCommit, &err)

	result := db.Where("last_viewed_at < ?", cutoff).Delete(&models.ViewerExposure{})
	if result.Error != nil {
		err = eris.Wrap(result.Error, "failed to prune viewer exposures")
		return 0, err
	}
	removed = result.RowsAffected

	err = db.Where("updated_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM viewer_exposures e WHERE e.viewer_id = viewer_exposure_states.viewer_id)").
		Delete(&models.ViewerExposureState{}).Error
	if err != nil {
		err = eris.Wrap(err, "failed to prune viewer exposure states")
		return 0, err
	}
	return removed, nil
}

package services

import (
	"context"
	"time"

	"github.com/dulcemap/dulcemap-api/allocation"
	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/repository"
	"gorm.io/gorm"
)

// DBExposureStore persists exposure history in Postgres. The viewer state row is
// locked FOR UPDATE for the duration of an update.
type DBExposureStore struct {
	db   *gorm.DB
	repo repository.ViewerExposureRepository
}

// NewDBExposureStore creates a Postgres backed exposure store
func NewDBExposureStore(db *gorm.DB, repo repository.ViewerExposureRepository) *DBExposureStore {
	return &DBExposureStore{db: db, repo: repo}
}

func (s *DBExposureStore) load(ctx context.Context, viewerID string, state *models.ViewerExposureState) (*allocation.ViewerExposure, error) {
	rows, err := s.repo.ListByViewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	out := allocation.NewViewerExposure()
	for _, row := range rows {
		out.Items[row.ItemID] = &allocation.ExposureRecord{
			LastViewedAt:   row.LastViewedAt,
			DailyViewCount: row.DailyViewCount,
			DayBucket:      row.DayBucket,
		}
	}
	if state != nil && state.LastGlobalExposureAt != nil {
		at := *state.LastGlobalExposureAt
		out.LastGlobalExposureAt = &at
	}
	return out, nil
}

// Load returns the stored history of a viewer
func (s *DBExposureStore) Load(ctx context.Context, viewerID string) (*allocation.ViewerExposure, error) {
	state, err := s.repo.StateByViewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, viewerID, state)
}

// Update applies fn under a row lock and writes back only the rows that changed
func (s *DBExposureStore) Update(ctx context.Context, viewerID string, fn func(*allocation.ViewerExposure) error) error {
	return repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		state, err := s.repo.LockState(txCtx, viewerID)
		if err != nil {
			return err
		}

		current, err := s.load(txCtx, viewerID, state)
		if err != nil {
			return err
		}
		before := current.Clone()

		if err := fn(current); err != nil {
			return err
		}

		var upserts []*models.ViewerExposure
		for id, rec := range current.Items {
			if rec == nil {
				continue
			}
			if prev := before.Record(id); prev != nil && *prev == *rec {
				continue
			}
			upserts = append(upserts, &models.ViewerExposure{
				ViewerID:       viewerID,
				ItemID:         id,
				LastViewedAt:   rec.LastViewedAt,
				DailyViewCount: rec.DailyViewCount,
				DayBucket:      rec.DayBucket,
			})
		}
		var removed []uint
		for id := range before.Items {
			if current.Record(id) == nil {
				removed = append(removed, id)
			}
		}

		if err := s.repo.UpsertExposures(txCtx, upserts); err != nil {
			return err
		}
		if err := s.repo.DeleteExposures(txCtx, viewerID, removed); err != nil {
			return err
		}

		state.LastGlobalExposureAt = current.LastGlobalExposureAt
		return s.repo.SaveState(txCtx, state)
	})
}

// Prune deletes exposure rows last viewed before olderThan
func (s *DBExposureStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, olderThan)
}

// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// PromotionalItemRepository defines operations for promotional items
type PromotionalItemRepository interface {
	Repository[models.PromotionalItem, models.PromotionalItemFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.PromotionalItem, error)
	ListCandidates(ctx context.Context, positions []models.PromotionPosition, at time.Time, limit int) ([]*models.PromotionalItem, error)
	IncrementViews(ctx context.Context, ids []uint) error
	IncrementClicks(ctx context.Context, id uint) error
	UpdateStatus(ctx context.Context, id uint, status models.PromotionStatus) error
}

// BusinessRepository defines operations for businesses as consumed by ranking
type BusinessRepository interface {
	Repository[models.Business, models.BusinessFilter]
	ByIDsWithSignals(ctx context.Context, ids []uint, now time.Time) ([]*models.Business, error)
	ListWithSignals(ctx context.Context, filter models.BusinessFilter, now time.Time, limit int) ([]*models.Business, error)
}

// PlanRepository defines operations for the plan catalog
type PlanRepository interface {
	Repository[models.Plan, models.PlanFilter]
	ByCode(ctx context.Context, code string) (*models.Plan, error)
	ListAll(ctx context.Context) ([]*models.Plan, error)
}

// ViewerExposureRepository defines operations for persisted viewer exposure history
type ViewerExposureRepository interface {
	// LockState returns the viewer state row locked for update, creating it when missing.
	// It must run inside WithTransaction.
	LockState(ctx context.Context, viewerID string) (*models.ViewerExposureState, error)
	StateByViewer(ctx context.Context, viewerID string) (*models.ViewerExposureState, error)
	ListByViewer(ctx context.Context, viewerID string) ([]*models.ViewerExposure, error)
	SaveState(ctx context.Context, state *models.ViewerExposureState) error
	UpsertExposures(ctx context.Context, rows []*models.ViewerExposure) error
	DeleteExposures(ctx context.Context, viewerID string, itemIDs []uint) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

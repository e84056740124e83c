package businessflow

import (
	"context"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// --- Promotional item repository mock ---

type mockItemRepo struct {
	mock.Mock
}

func (m *mockItemRepo) ByID(ctx context.Context, id uint) (*models.PromotionalItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PromotionalItem), args.Error(1)
}

func (m *mockItemRepo) ByFilter(ctx context.Context, filter models.PromotionalItemFilter, orderBy string, limit, offset int) ([]*models.PromotionalItem, error) {
	args := m.Called(ctx, filter, orderBy, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PromotionalItem), args.Error(1)
}

func (m *mockItemRepo) Save(ctx context.Context, entity *models.PromotionalItem) error {
	return m.Called(ctx, entity).Error(0)
}

func (m *mockItemRepo) SaveBatch(ctx context.Context, entities []*models.PromotionalItem) error {
	return m.Called(ctx, entities).Error(0)
}

func (m *mockItemRepo) Count(ctx context.Context, filter models.PromotionalItemFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockItemRepo) Exists(ctx context.Context, filter models.PromotionalItemFilter) (bool, error) {
	args := m.Called(ctx, filter)
	return args.Bool(0), args.Error(1)
}

func (m *mockItemRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.PromotionalItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PromotionalItem), args.Error(1)
}

func (m *mockItemRepo) ListCandidates(ctx context.Context, positions []models.PromotionPosition, at time.Time, limit int) ([]*models.PromotionalItem, error) {
	args := m.Called(ctx, positions, at, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PromotionalItem), args.Error(1)
}

func (m *mockItemRepo) IncrementViews(ctx context.Context, ids []uint) error {
	return m.Called(ctx, ids).Error(0)
}

func (m *mockItemRepo) IncrementClicks(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockItemRepo) UpdateStatus(ctx context.Context, id uint, status models.PromotionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

// --- Business repository mock ---

type mockBusinessRepo struct {
	mock.Mock
}

func (m *mockBusinessRepo) ByID(ctx context.Context, id uint) (*models.Business, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Business), args.Error(1)
}

func (m *mockBusinessRepo) ByFilter(ctx context.Context, filter models.BusinessFilter, orderBy string, limit, offset int) ([]*models.Business, error) {
	args := m.Called(ctx, filter, orderBy, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Business), args.Error(1)
}

func (m *mockBusinessRepo) Save(ctx context.Context, entity *models.Business) error {
	return m.Called(ctx, entity).Error(0)
}

func (m *mockBusinessRepo) SaveBatch(ctx context.Context, entities []*models.Business) error {
	return m.Called(ctx, entities).Error(0)
}

func (m *mockBusinessRepo) Count(ctx context.Context, filter models.BusinessFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBusinessRepo) Exists(ctx context.Context, filter models.BusinessFilter) (bool, error) {
	args := m.Called(ctx, filter)
	return args.Bool(0), args.Error(1)
}

func (m *mockBusinessRepo) ByIDsWithSignals(ctx context.Context, ids []uint, now time.Time) ([]*models.Business, error) {
	args := m.Called(ctx, ids, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Business), args.Error(1)
}

func (m *mockBusinessRepo) ListWithSignals(ctx context.Context, filter models.BusinessFilter, now time.Time, limit int) ([]*models.Business, error) {
	args := m.Called(ctx, filter, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Business), args.Error(1)
}

// --- Plan repository mock ---

type mockPlanRepo struct {
	mock.Mock
}

func (m *mockPlanRepo) ByID(ctx context.Context, id uint) (*models.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *mockPlanRepo) ByFilter(ctx context.Context, filter models.PlanFilter, orderBy string, limit, offset int) ([]*models.Plan, error) {
	args := m.Called(ctx, filter, orderBy, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Plan), args.Error(1)
}

func (m *mockPlanRepo) Save(ctx context.Context, entity *models.Plan) error {
	return m.Called(ctx, entity).Error(0)
}

func (m *mockPlanRepo) SaveBatch(ctx context.Context, entities []*models.Plan) error {
	return m.Called(ctx, entities).Error(0)
}

func (m *mockPlanRepo) Count(ctx context.Context, filter models.PlanFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPlanRepo) Exists(ctx context.Context, filter models.PlanFilter) (bool, error) {
	args := m.Called(ctx, filter)
	return args.Bool(0), args.Error(1)
}

func (m *mockPlanRepo) ByCode(ctx context.Context, code string) (*models.Plan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *mockPlanRepo) ListAll(ctx context.Context) ([]*models.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Plan), args.Error(1)
}

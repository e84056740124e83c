package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func catalogPlans() []*models.Plan {
	return []*models.Plan{
		{ID: 1, Code: "basic", SortingScore: 1, VisibilityRadiusMeters: 3000, PeakHourRotation: true},
		{ID: 5, Code: "super_top", SortingScore: 5, VisibilityRadiusMeters: 20000, BypassesFrequencyCap: true},
	}
}

func TestPlanCatalog_EnsureFreshCachesWithinTTL(t *testing.T) {
	repo := new(mockPlanRepo)
	repo.On("ListAll", mock.Anything).Return(catalogPlans(), nil).Once()

	catalog := NewPlanCatalog(repo, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, catalog.EnsureFresh(ctx))
	require.NoError(t, catalog.EnsureFresh(ctx))

	plan, ok := catalog.Plan(5)
	require.True(t, ok)
	assert.True(t, plan.BypassesFrequencyCap)

	byCode, ok := catalog.ByCode("basic")
	require.True(t, ok)
	assert.Equal(t, uint(1), byCode.ID)

	_, ok = catalog.Plan(99)
	assert.False(t, ok)
	assert.Equal(t, 2, catalog.Len())
	repo.AssertExpectations(t)
}

func TestPlanCatalog_FailedRefreshKeepsSnapshot(t *testing.T) {
	repo := new(mockPlanRepo)
	repo.On("ListAll", mock.Anything).Return(catalogPlans(), nil).Once()
	repo.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))

	catalog := NewPlanCatalog(repo, 0, nil)
	ctx := context.Background()

	require.NoError(t, catalog.EnsureFresh(ctx))
	require.NoError(t, catalog.EnsureFresh(ctx))

	_, ok := catalog.Plan(1)
	assert.True(t, ok)
}

func TestPlanCatalog_UnavailableWhenNeverLoaded(t *testing.T) {
	repo := new(mockPlanRepo)
	repo.On("ListAll", mock.Anything).Return(nil, errors.New("db down"))

	catalog := NewPlanCatalog(repo, time.Minute, nil)
	err := catalog.EnsureFresh(context.Background())
	require.Error(t, err)
	assert.True(t, IsPlanCatalogUnavailable(err))
}

func TestPlanCatalog_Seed(t *testing.T) {
	seed := []models.Plan{{Code: "free", Name: "Free", SortingScore: 1}, {Code: "pro", Name: "Pro", SortingScore: 3}}

	t.Run("empty table is seeded", func(t *testing.T) {
		repo := new(mockPlanRepo)
		repo.On("Count", mock.Anything, models.PlanFilter{}).Return(int64(0), nil)
		repo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(rows []*models.Plan) bool {
			return len(rows) == 2 && rows[0].Code == "free" && rows[1].Code == "pro"
		})).Return(nil)
		repo.On("ListAll", mock.Anything).Return([]*models.Plan{{ID: 1, Code: "free"}, {ID: 2, Code: "pro"}}, nil)

		catalog := NewPlanCatalog(repo, time.Hour, nil)
		n, err := catalog.Seed(context.Background(), seed)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, catalog.Len())
		repo.AssertExpectations(t)
	})

	t.Run("populated table is left alone", func(t *testing.T) {
		repo := new(mockPlanRepo)
		repo.On("Count", mock.Anything, models.PlanFilter{}).Return(int64(3), nil)

		catalog := NewPlanCatalog(repo, time.Hour, nil)
		n, err := catalog.Seed(context.Background(), seed)
		require.NoError(t, err)
		assert.Zero(t, n)
		repo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
	})
}

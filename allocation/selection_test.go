package allocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(store ExposureStore, plans PlanMap) *Pipeline {
	return NewPipeline(
		newTestHistory(store),
		NewEligibilityFilter(NewSpawnPolicy(nil, time.UTC), plans, utils.GlobalExposureCooldown),
		NewScoringEngine(plans, time.UTC),
		utils.DefaultMaxBannerItems,
	)
}

// tenScoredItems returns ten items whose scores grow with their id.
func tenScoredItems() ([]*models.PromotionalItem, map[uint]*models.Business, PlanMap) {
	plans := PlanMap{}
	businesses := map[uint]*models.Business{}
	pool := make([]*models.PromotionalItem, 0, 10)
	for i := uint(1); i <= 10; i++ {
		plans[i] = &models.Plan{ID: i, SortingScore: float64(i)}
		businesses[i] = businessAt(i, i, nil)
		pool = append(pool, linkedItem(i, i, models.PromotionPositionHeader))
	}
	return pool, businesses, plans
}

func TestPipelineSelectsTopItemsAndRecordsOnlyThose(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryExposureStore()
	pool, businesses, plans := tenScoredItems()
	p := newTestPipeline(store, plans)

	sel := p.Select(ctx, SelectionRequest{
		Viewer:     ViewerContext{ViewerID: "viewer-1", Now: baseNow},
		Slot:       homeSlot(),
		Pool:       pool,
		Businesses: businesses,
		MaxItems:   3,
	})
	require.NoError(t, sel.ExposureErr)
	require.Len(t, sel.Items, 3)

	assert.Equal(t, uint(10), sel.Items[0].Item.ID)
	assert.Equal(t, uint(9), sel.Items[1].Item.ID)
	assert.Equal(t, uint(8), sel.Items[2].Item.ID)
	assert.Greater(t, sel.Items[0].Score, sel.Items[1].Score)
	assert.Greater(t, sel.Items[1].Score, sel.Items[2].Score)

	snap, err := store.Load(ctx, "viewer-1")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 3)
	for id := uint(1); id <= 10; id++ {
		rec := snap.Record(id)
		if id >= 8 {
			require.NotNil(t, rec, "item %d", id)
			assert.Equal(t, 1, rec.DailyViewCount)
		} else {
			assert.Nil(t, rec, "item %d", id)
		}
	}
	require.NotNil(t, snap.LastGlobalExposureAt)
	assert.True(t, snap.LastGlobalExposureAt.Equal(baseNow))
}

func TestPipelineGlobalCooldownAfterSelection(t *testing.T) {
	ctx := context.Background()
	pool, businesses, plans := tenScoredItems()
	p := newTestPipeline(NewMemoryExposureStore(), plans)

	req := SelectionRequest{
		Viewer:     ViewerContext{ViewerID: "viewer-1", Now: baseNow},
		Slot:       homeSlot(),
		Pool:       pool,
		Businesses: businesses,
	}
	first := p.Select(ctx, req)
	assert.Len(t, first.Items, utils.DefaultMaxBannerItems)

	req.Viewer.Now = baseNow.Add(200 * time.Second)
	second := p.Select(ctx, req)
	assert.True(t, second.GlobalCooldown)
	assert.Empty(t, second.Items)

	// After the cooldown the already shown weekly items stay capped and the next best are served.
	req.Viewer.Now = baseNow.Add(421 * time.Second)
	third := p.Select(ctx, req)
	require.Len(t, third.Items, 3)
	assert.Equal(t, uint(7), third.Items[0].Item.ID)
	assert.Equal(t, 3, third.Excluded[ExcludedSpawnLimit])
}

func TestPipelineReportsExposureFailure(t *testing.T) {
	pool, businesses, plans := tenScoredItems()
	p := newTestPipeline(failingStore{err: errors.New("redis down")}, plans)

	sel := p.Select(context.Background(), SelectionRequest{
		Viewer:     ViewerContext{ViewerID: "viewer-1", Now: baseNow},
		Slot:       homeSlot(),
		Pool:       pool,
		Businesses: businesses,
		MaxItems:   2,
	})

	require.Len(t, sel.Items, 2, "selection is returned even when recording fails")
	assert.ErrorIs(t, sel.ExposureErr, ErrExposureNotRecorded)
}

func TestPipelineAnonymousViewer(t *testing.T) {
	store := NewMemoryExposureStore()
	pool, businesses, plans := tenScoredItems()
	p := newTestPipeline(store, plans)

	req := SelectionRequest{
		Viewer:     ViewerContext{Now: baseNow},
		Slot:       homeSlot(),
		Pool:       pool,
		Businesses: businesses,
	}
	first := p.Select(context.Background(), req)
	second := p.Select(context.Background(), req)

	require.NoError(t, first.ExposureErr)
	assert.Equal(t, first.Items, second.Items)
	assert.Len(t, first.Items, utils.DefaultMaxBannerItems)
}

func TestPipelineEmptyPool(t *testing.T) {
	p := newTestPipeline(NewMemoryExposureStore(), PlanMap{})
	sel := p.Select(context.Background(), SelectionRequest{
		Viewer: ViewerContext{ViewerID: "viewer-1", Now: baseNow},
		Slot:   homeSlot(),
	})
	assert.Empty(t, sel.Items)
	assert.NoError(t, sel.ExposureErr)
	assert.False(t, sel.GlobalCooldown)
}

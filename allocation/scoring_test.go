package allocation

import (
	"testing"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubtypeScore(t *testing.T) {
	tests := map[models.PromotionSubtype]float64{
		models.PromotionSubtypeExclusive:    50,
		models.PromotionSubtypeFeatured:     40,
		models.PromotionSubtypeOffer:        30,
		models.PromotionSubtypeSeasonal:     25,
		models.PromotionSubtypeTrend:        10,
		models.PromotionSubtypeAvailability: 10,
		"unknown":                           10,
	}
	for subtype, expected := range tests {
		assert.Equal(t, expected, SubtypeScore(subtype), "subtype %s", subtype)
	}
}

func TestIsPeakHour(t *testing.T) {
	peak := map[int]bool{9: false, 10: true, 11: true, 12: true, 13: false, 17: false, 18: true, 21: true, 22: false, 0: false}
	for hour, expected := range peak {
		assert.Equal(t, expected, IsPeakHour(hour), "hour %d", hour)
	}
}

func TestScoringEngineScore(t *testing.T) {
	engine := NewScoringEngine(testPlans(), time.UTC)
	businesses := map[uint]*models.Business{
		1: businessAt(1, basicPlanID, pointNorth(centro, 1500)),
		2: businessAt(2, superPlanID, pointNorth(centro, 4000)),
		3: businessAt(3, 99, nil),
		4: businessAt(4, basicPlanID, pointNorth(centro, 9000)),
	}

	platform := activeItem(1, models.PromotionPositionHeader)
	platform.Subtype = models.PromotionSubtypeExclusive

	basic := linkedItem(2, 1, models.PromotionPositionHeader)
	basic.Subtype = models.PromotionSubtypeOffer

	super := linkedItem(3, 2, models.PromotionPositionHeader)
	super.Subtype = models.PromotionSubtypeFeatured

	orphan := linkedItem(4, 3, models.PromotionPositionHeader)

	farBasic := linkedItem(5, 4, models.PromotionPositionHeader)
	farBasic.Subtype = models.PromotionSubtypeSeasonal

	at := func(hour int) time.Time { return time.Date(2025, 3, 4, hour, 30, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		item     *models.PromotionalItem
		viewer   ViewerContext
		expected float64
	}{
		{"platform campaign base", platform, ViewerContext{Now: at(3), Location: &centro}, 300},
		{"low tier near, off peak", basic, ViewerContext{Now: at(3), Location: &centro}, 190},
		{"low tier near, morning peak", basic, ViewerContext{Now: at(11), Location: &centro}, 215},
		{"low tier near, evening peak", basic, ViewerContext{Now: at(21), Location: &centro}, 215},
		{"low tier without viewer location", basic, ViewerContext{Now: at(3)}, 130},
		{"top tier mid distance, no peak rotation", super, ViewerContext{Now: at(11), Location: &centro}, 570},
		{"unknown plan degrades to zero", orphan, ViewerContext{Now: at(3), Location: &centro}, 10},
		{"beyond proximity bands", farBasic, ViewerContext{Now: at(3), Location: &centro}, 125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, engine.Score(tt.item, tt.viewer, businesses), 1e-9)
		})
	}
}

func TestScoringEngineUsesLocalHour(t *testing.T) {
	engine := NewScoringEngine(testPlans(), time.FixedZone("UTC-6", -6*3600))
	businesses := map[uint]*models.Business{1: businessAt(1, basicPlanID, nil)}
	item := linkedItem(1, 1, models.PromotionPositionHeader)

	// 17:00 UTC is 11:00 local
	score := engine.Score(item, ViewerContext{Now: time.Date(2025, 3, 4, 17, 0, 0, 0, time.UTC)}, businesses)
	assert.InDelta(t, 100+10+PeakHourBonus, score, 1e-9)
}

func TestScoringEngineRankIsStable(t *testing.T) {
	engine := NewScoringEngine(testPlans(), time.UTC)

	first := activeItem(1, models.PromotionPositionHeader)
	second := activeItem(2, models.PromotionPositionHeader)
	best := activeItem(3, models.PromotionPositionHeader)
	best.Subtype = models.PromotionSubtypeExclusive
	third := activeItem(4, models.PromotionPositionHeader)

	ranked := engine.Rank([]*models.PromotionalItem{first, second, best, third}, ViewerContext{Now: baseNow}, nil)
	require.Len(t, ranked, 4)

	ids := []uint{}
	for _, s := range ranked {
		ids = append(ids, s.Item.ID)
	}
	assert.Equal(t, []uint{3, 1, 2, 4}, ids)
	assert.Equal(t, 300.0, ranked[0].Score)
	assert.Equal(t, 260.0, ranked[1].Score)

	again := engine.Rank([]*models.PromotionalItem{first, second, best, third}, ViewerContext{Now: baseNow}, nil)
	assert.Equal(t, ranked, again)
}

package allocation

import (
	"testing"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratings(stars ...int) []models.BusinessRating {
	out := make([]models.BusinessRating, 0, len(stars))
	for _, s := range stars {
		out = append(out, models.BusinessRating{Stars: s})
	}
	return out
}

func repeatStars(stars, n int) []models.BusinessRating {
	s := make([]int, n)
	for i := range s {
		s[i] = stars
	}
	return ratings(s...)
}

func TestProximityScore(t *testing.T) {
	const r = 5000.0
	tests := []struct {
		name     string
		distance float64
		expected float64
	}{
		{"at the business", 0, 100},
		{"half radius", r / 2, 50},
		{"at the radius", r, 0},
		{"beyond radius", r * 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ProximityScore(tt.distance, r), 1e-9)
		})
	}
	assert.Equal(t, 0.0, ProximityScore(10, 0))
}

func TestReputationScore(t *testing.T) {
	five := ReputationScore(repeatStars(5, 5))
	fifty := ReputationScore(repeatStars(5, 50))
	one := ReputationScore(ratings(5))

	assert.InDelta(t, 73.0, five, 1e-9)
	assert.InDelta(t, 100.0, fifty, 1e-9)
	assert.InDelta(t, 70.6, one, 1e-9)
	assert.Less(t, five, fifty)
	assert.Greater(t, five, one)

	assert.Equal(t, 0.0, ReputationScore(nil))
	assert.InDelta(t, 100.0, ReputationScore(repeatStars(5, 80)), 1e-9, "volume credit caps at 50 ratings")
	assert.InDelta(t, 3.0/5*100*0.7+2.0/50*100*0.3, ReputationScore(ratings(2, 4)), 1e-9)
}

func TestActivityScore(t *testing.T) {
	now := baseNow
	live := func(status models.LiveStatus, images int, stories ...time.Time) *models.Business {
		b := &models.Business{LiveStatus: status, ImageCount: images}
		for _, exp := range stories {
			b.Stories = append(b.Stories, models.BusinessStory{ExpiresAt: exp})
		}
		return b
	}

	tests := []struct {
		name     string
		business *models.Business
		expected float64
	}{
		{"closed, nothing", live(models.LiveStatusClosed, 0), 0},
		{"open", live(models.LiveStatusOpen, 0), 40},
		{"fresh batch", live(models.LiveStatusFreshBatch, 0), 40},
		{"last units", live(models.LiveStatusLastUnits, 0), 30},
		{"busy gets no live bonus", live(models.LiveStatusBusy, 0), 0},
		{"expired story ignored", live(models.LiveStatusClosed, 0, now.Add(-time.Minute)), 0},
		{"one active story counts once", live(models.LiveStatusClosed, 0, now.Add(time.Hour), now.Add(2*time.Hour)), 40},
		{"gallery threshold is exclusive", live(models.LiveStatusClosed, 5), 0},
		{"gallery bonus", live(models.LiveStatusClosed, 6), 20},
		{"capped at 100", live(models.LiveStatusOpen, 12, now.Add(time.Hour)), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ActivityScore(tt.business, now))
		})
	}
}

func TestAdSpendBoost(t *testing.T) {
	assert.Equal(t, 50.0, AdSpendBoost(1000))
	assert.InDelta(t, 30.0, AdSpendBoost(300), 1e-9)
	assert.Equal(t, 50.0, AdSpendBoost(1e9))
	assert.Equal(t, 0.0, AdSpendBoost(0))
	assert.Equal(t, 0.0, AdSpendBoost(-100))
}

func TestSweetRankScoreUsesOwnPlanRadius(t *testing.T) {
	plans := PlanMap{
		1: {ID: 1, SortingScore: 40, VisibilityRadiusMeters: 2000},
		2: {ID: 2, SortingScore: 80, VisibilityRadiusMeters: 20000},
		3: {ID: 3, SortingScore: 250, VisibilityRadiusMeters: 0},
	}
	rank := NewSweetRank(plans, RankWeights{})

	small := businessAt(1, 1, pointNorth(centro, 3000))
	large := businessAt(2, 2, pointNorth(centro, 3000))
	defaulted := businessAt(3, 3, pointNorth(centro, 2500))
	unknown := businessAt(4, 42, pointNorth(centro, 2500))

	bd := rank.Score(small, &centro, baseNow)
	assert.Equal(t, 0.0, bd.Proximity, "outside its own 2km radius")
	assert.Equal(t, 40.0, bd.Plan)

	bd = rank.Score(large, &centro, baseNow)
	assert.InDelta(t, 85.0, bd.Proximity, 0.01)

	bd = rank.Score(defaulted, &centro, baseNow)
	assert.InDelta(t, 50.0, bd.Proximity, 0.01, "zero radius falls back to the default")
	assert.Equal(t, 100.0, bd.Plan, "plan score clamps to 100")

	bd = rank.Score(unknown, &centro, baseNow)
	assert.InDelta(t, 50.0, bd.Proximity, 0.01)
	assert.Equal(t, 0.0, bd.Plan)

	bd = rank.Score(large, nil, baseNow)
	assert.Equal(t, 0.0, bd.Proximity)
}

func TestSweetRankWeightedTotal(t *testing.T) {
	plans := PlanMap{1: {ID: 1, SortingScore: 60, VisibilityRadiusMeters: 5000}}
	rank := NewSweetRank(plans, DefaultRankWeights())

	b := businessAt(7, 1, &centro)
	b.Ratings = repeatStars(5, 5)
	b.LiveStatus = models.LiveStatusOpen
	b.TotalAdSpend = 300

	bd := rank.Score(b, &centro, baseNow)
	assert.InDelta(t, 100.0, bd.Proximity, 1e-9)
	assert.InDelta(t, 60.0, bd.Plan, 1e-9)
	assert.InDelta(t, 73.0, bd.Reputation, 1e-9)
	assert.InDelta(t, 40.0, bd.Activity, 1e-9)

	weighted := 100*0.30 + 60*0.25 + 73*0.25 + 40*0.20
	assert.InDelta(t, weighted, bd.Weighted, 1e-9)
	assert.InDelta(t, 30.0, bd.AdBoost, 1e-9)
	assert.InDelta(t, weighted+30, bd.Total, 1e-9)
}

func TestRankBusinessesOrdering(t *testing.T) {
	rank := NewSweetRank(PlanMap{}, RankWeights{})

	organic := &models.Business{ID: 1, Ratings: repeatStars(5, 50)}
	paid := &models.Business{ID: 2, TotalAdSpend: 1000}
	tieHigh := &models.Business{ID: 9, LiveStatus: models.LiveStatusOpen}
	tieLow := &models.Business{ID: 3, LiveStatus: models.LiveStatusFreshBatch}

	ranked := rank.RankBusinesses([]*models.Business{tieHigh, organic, nil, paid, tieLow}, nil, baseNow)
	require.Len(t, ranked, 4)

	ids := []uint{}
	for _, r := range ranked {
		ids = append(ids, r.Business.ID)
	}
	// paid: 50, organic: 25, open/fresh: 8 each, tie broken by id
	assert.Equal(t, []uint{2, 1, 3, 9}, ids)
	assert.Equal(t, ranked[0].Breakdown.Total, ranked[0].Score)
}

func TestSweetRankDefaultRadius(t *testing.T) {
	assert.Equal(t, 5000.0, NewSweetRank(nil, RankWeights{}).defaultRadius)
	assert.Equal(t, utils.DefaultVisibilityRadiusMeters, NewSweetRank(nil, RankWeights{}).defaultRadius)
}

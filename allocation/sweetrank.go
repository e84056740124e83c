package allocation

import (
	"math"
	"sort"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
)

// RankWeights blends the SweetRank components. The defaults sum to 1.
type RankWeights struct {
	Proximity  float64 `yaml:"proximity" json:"proximity"`
	Plan       float64 `yaml:"plan" json:"plan"`
	Reputation float64 `yaml:"reputation" json:"reputation"`
	Activity   float64 `yaml:"activity" json:"activity"`
}

// DefaultRankWeights returns the production weights.
func DefaultRankWeights() RankWeights {
	return RankWeights{Proximity: 0.30, Plan: 0.25, Reputation: 0.25, Activity: 0.20}
}

const (
	maxComponentScore = 100.0

	reputationQualityWeight  = 0.7
	reputationQuantityWeight = 0.3
	reputationRatingCap      = 50

	liveStatusBonus  = 40.0
	lastUnitsBonus   = 30.0
	activeStoryBonus = 40.0
	galleryBonus     = 20.0
	galleryThreshold = 5

	adSpendFactor = 0.1
	maxAdBoost    = 50.0
)

// ScoreBreakdown exposes every SweetRank component for one business.
type ScoreBreakdown struct {
	Proximity  float64 `json:"proximity"`
	Plan       float64 `json:"plan"`
	Reputation float64 `json:"reputation"`
	Activity   float64 `json:"activity"`
	Weighted   float64 `json:"weighted"`
	AdBoost    float64 `json:"ad_boost"`
	Total      float64 `json:"total"`
}

// ScoredBusiness is a business annotated with its SweetRank for one evaluation.
type ScoredBusiness struct {
	Business  *models.Business
	Score     float64
	Breakdown ScoreBreakdown
}

// SweetRank ranks businesses for directory listings.
type SweetRank struct {
	plans         PlanLookup
	weights       RankWeights
	defaultRadius float64
}

// NewSweetRank creates a ranker. A zero weights value uses DefaultRankWeights.
func NewSweetRank(plans PlanLookup, weights RankWeights) *SweetRank {
	if plans == nil {
		plans = PlanMap{}
	}
	if weights == (RankWeights{}) {
		weights = DefaultRankWeights()
	}
	return &SweetRank{plans: plans, weights: weights, defaultRadius: utils.DefaultVisibilityRadiusMeters}
}

// ProximityScore is 100 at distance 0 falling linearly to 0 at radius.
func ProximityScore(distance, radius float64) float64 {
	if radius <= 0 || distance > radius {
		return 0
	}
	return maxComponentScore * (1 - distance/radius)
}

// ReputationScore blends average stars with rating volume, capping volume credit at 50 ratings.
func ReputationScore(ratings []models.BusinessRating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range ratings {
		total += r.Stars
	}
	avg := float64(total) / float64(len(ratings))
	quality := avg / 5 * maxComponentScore
	quantity := float64(min(len(ratings), reputationRatingCap)) / reputationRatingCap

	return quality*reputationQualityWeight + quantity*maxComponentScore*reputationQuantityWeight
}

// ActivityScore rewards live status, unexpired stories and a populated gallery.
func ActivityScore(b *models.Business, now time.Time) float64 {
	score := 0.0
	switch b.LiveStatus {
	case models.LiveStatusOpen, models.LiveStatusFreshBatch:
		score += liveStatusBonus
	case models.LiveStatusLastUnits:
		score += lastUnitsBonus
	}
	for _, s := range b.Stories {
		if s.ExpiresAt.After(now) {
			score += activeStoryBonus
			break
		}
	}
	if b.ImageCount > galleryThreshold {
		score += galleryBonus
	}
	return math.Min(score, maxComponentScore)
}

// AdSpendBoost is the paid boost added after the weighted blend, capped at 50.
func AdSpendBoost(totalSpend float64) float64 {
	return math.Min(math.Max(totalSpend, 0)*adSpendFactor, maxAdBoost)
}

// Score computes the full breakdown for one business.
func (r *SweetRank) Score(b *models.Business, viewer *models.GeoPoint, now time.Time) ScoreBreakdown {
	var out ScoreBreakdown

	plan := planOf(r.plans, b)
	radius := r.defaultRadius
	if plan != nil {
		out.Plan = utils.Clamp(plan.SortingScore, 0, maxComponentScore)
		if plan.VisibilityRadiusMeters > 0 {
			radius = plan.VisibilityRadiusMeters
		}
	}

	if d, ok := distanceBetween(viewer, b.Location()); ok {
		out.Proximity = ProximityScore(d, radius)
	}
	out.Reputation = ReputationScore(b.Ratings)
	out.Activity = ActivityScore(b, now)

	out.Weighted = out.Proximity*r.weights.Proximity +
		out.Plan*r.weights.Plan +
		out.Reputation*r.weights.Reputation +
		out.Activity*r.weights.Activity
	out.AdBoost = AdSpendBoost(b.TotalAdSpend)
	out.Total = out.Weighted + out.AdBoost
	return out
}

// RankBusinesses scores and sorts businesses descending. Equal scores order by id ascending.
func (r *SweetRank) RankBusinesses(businesses []*models.Business, viewer *models.GeoPoint, now time.Time) []ScoredBusiness {
	ranked := make([]ScoredBusiness, 0, len(businesses))
	for _, b := range businesses {
		if b == nil {
			continue
		}
		bd := r.Score(b, viewer, now)
		ranked = append(ranked, ScoredBusiness{Business: b, Score: bd.Total, Breakdown: bd})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Business.ID < ranked[j].Business.ID
	})
	return ranked
}

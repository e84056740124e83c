package allocation

import (
	"sort"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
)

// Banner score components.
const (
	PeakHourBonus      = 25.0
	NearProximityBonus = 60.0
	MidProximityBonus  = 30.0

	NearProximityMeters = 2000.0
	MidProximityMeters  = 5000.0

	planScoreMultiplier = 100.0
)

var subtypeScores = map[models.PromotionSubtype]float64{
	models.PromotionSubtypeExclusive: 50,
	models.PromotionSubtypeFeatured:  40,
	models.PromotionSubtypeOffer:     30,
	models.PromotionSubtypeSeasonal:  25,
}

const defaultSubtypeScore = 10.0

// peakWindows are inclusive local-hour ranges.
var peakWindows = [][2]int{{10, 12}, {18, 21}}

// ScoredItem is a promotional item annotated with its score for one evaluation.
type ScoredItem struct {
	Item  *models.PromotionalItem
	Score float64
}

// ScoringEngine computes banner priority scores.
type ScoringEngine struct {
	plans    PlanLookup
	location *time.Location
}

// NewScoringEngine creates a scoring engine. loc defines local hours for peak bonuses.
func NewScoringEngine(plans PlanLookup, loc *time.Location) *ScoringEngine {
	if plans == nil {
		plans = PlanMap{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ScoringEngine{plans: plans, location: loc}
}

// SubtypeScore returns the fixed subtype component.
func SubtypeScore(subtype models.PromotionSubtype) float64 {
	if s, ok := subtypeScores[subtype]; ok {
		return s
	}
	return defaultSubtypeScore
}

// IsPeakHour reports whether hour falls in a high-traffic window.
func IsPeakHour(hour int) bool {
	for _, w := range peakWindows {
		if hour >= w[0] && hour <= w[1] {
			return true
		}
	}
	return false
}

// Score returns the priority score of one eligible item.
func (e *ScoringEngine) Score(item *models.PromotionalItem, viewer ViewerContext, businesses map[uint]*models.Business) float64 {
	score := SubtypeScore(item.Subtype)

	if !item.IsBusinessLinked() {
		return score + utils.PlatformCampaignBaseScore
	}

	business := linkedBusiness(item, businesses)
	if plan := planOf(e.plans, business); plan != nil {
		score += plan.SortingScore * planScoreMultiplier
		if plan.PeakHourRotation && IsPeakHour(utils.LocalHour(viewer.Now, e.location)) {
			score += PeakHourBonus
		}
	}

	if business != nil {
		if d, ok := distanceBetween(viewer.Location, business.Location()); ok {
			switch {
			case d < NearProximityMeters:
				score += NearProximityBonus
			case d < MidProximityMeters:
				score += MidProximityBonus
			}
		}
	}
	return score
}

// Rank scores items and sorts them descending. Equal scores keep pool order.
func (e *ScoringEngine) Rank(items []*models.PromotionalItem, viewer ViewerContext, businesses map[uint]*models.Business) []ScoredItem {
	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		scored = append(scored, ScoredItem{Item: item, Score: e.Score(item, viewer, businesses)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

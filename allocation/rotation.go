package allocation

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
)

// DailyRotationRank is a stable per-day pseudo-random rank for an entity.
// The same day and id always produce the same rank.
func DailyRotationRank(day string, entityID uint) uint64 {
	return xxhash.Sum64String(day + "|" + strconv.FormatUint(uint64(entityID), 10))
}

// PickOfTheDay returns the open business with the lowest rotation rank for the
// day of now in loc, or nil when no business is open.
func PickOfTheDay(businesses []*models.Business, now time.Time, loc *time.Location) *models.Business {
	day := utils.DayBucket(now, loc)

	var (
		best     *models.Business
		bestRank uint64
	)
	for _, b := range businesses {
		if b == nil || b.LiveStatus == models.LiveStatusClosed || (b.IsActive != nil && !*b.IsActive) {
			continue
		}
		rank := DailyRotationRank(day, b.ID)
		if best == nil || rank < bestRank || (rank == bestRank && b.ID < best.ID) {
			best, bestRank = b, rank
		}
	}
	return best
}

package allocation

import (
	"context"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
)

// SelectionRequest is the input of one banner selection.
type SelectionRequest struct {
	Viewer     ViewerContext
	Slot       RenderSlot
	Pool       []*models.PromotionalItem
	Businesses map[uint]*models.Business
	MaxItems   int
}

// Selection is the ordered, capped result. Items is always valid; ExposureErr
// wraps ErrExposureNotRecorded when the exposure write failed.
type Selection struct {
	Items          []ScoredItem
	GlobalCooldown bool
	Excluded       map[ExclusionReason]int
	ExposureErr    error
}

// Pipeline runs filter, scoring, capping and exposure recording.
type Pipeline struct {
	history  *History
	filter   *EligibilityFilter
	scoring  *ScoringEngine
	maxItems int
}

// NewPipeline wires the allocation stages. A non-positive defaultMaxItems uses
// utils.DefaultMaxBannerItems.
func NewPipeline(history *History, filter *EligibilityFilter, scoring *ScoringEngine, defaultMaxItems int) *Pipeline {
	if defaultMaxItems <= 0 {
		defaultMaxItems = utils.DefaultMaxBannerItems
	}
	return &Pipeline{history: history, filter: filter, scoring: scoring, maxItems: defaultMaxItems}
}

// Select picks the items to show and records exposure for exactly those items.
// Anonymous viewers (empty ViewerID) get no history and no recording.
func (p *Pipeline) Select(ctx context.Context, req SelectionRequest) Selection {
	if req.Viewer.Now.IsZero() {
		req.Viewer.Now = utils.UTCNow()
	}
	maxItems := req.MaxItems
	if maxItems <= 0 {
		maxItems = p.maxItems
	}

	exposure := p.history.Snapshot(ctx, req.Viewer.ViewerID)

	filtered := p.filter.Filter(req.Pool, req.Viewer, req.Slot, exposure, req.Businesses)
	out := Selection{GlobalCooldown: filtered.GlobalCooldown, Excluded: filtered.Excluded}
	if len(filtered.Items) == 0 {
		return out
	}

	ranked := p.scoring.Rank(filtered.Items, req.Viewer, req.Businesses)
	if len(ranked) > maxItems {
		ranked = ranked[:maxItems]
	}
	out.Items = ranked

	ids := make([]uint, 0, len(ranked))
	for _, s := range ranked {
		ids = append(ids, s.Item.ID)
	}
	out.ExposureErr = p.history.RecordExposures(ctx, req.Viewer.ViewerID, ids, req.Viewer.Now)
	return out
}

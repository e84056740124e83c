package allocation

import (
	"slices"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/utils"
)

// RenderContext is the semantic slot a client asks promotions for.
type RenderContext string

const (
	RenderContextHome       RenderContext = "home"
	RenderContextSidebar    RenderContext = "sidebar"
	RenderContextOverlay    RenderContext = "overlay"
	RenderContextInlineList RenderContext = "inline_list"
)

var placementTable = map[RenderContext][]models.PromotionPosition{
	RenderContextHome:       {models.PromotionPositionHeader},
	RenderContextSidebar:    {models.PromotionPositionSidebar},
	RenderContextOverlay:    {models.PromotionPositionFooter, models.PromotionPositionPopup},
	RenderContextInlineList: {models.PromotionPositionInlineList},
}

func (c RenderContext) Valid() bool {
	_, ok := placementTable[c]
	return ok
}

// Positions returns the item positions a context renders.
func (c RenderContext) Positions() []models.PromotionPosition {
	return placementTable[c]
}

// Accepts reports whether an item placed at p belongs in this context.
func (c RenderContext) Accepts(p models.PromotionPosition) bool {
	return slices.Contains(placementTable[c], p)
}

// LowIntrusion reports whether the context is exempt from the global cooldown.
func (c RenderContext) LowIntrusion() bool {
	return c == RenderContextInlineList
}

// RenderSlot describes where the selected items will be rendered.
type RenderSlot struct {
	Context  RenderContext
	Formats  []models.PromotionFormat // empty accepts any format
	SectorID *uint
}

// ViewerContext is everything known about the viewer for one evaluation.
type ViewerContext struct {
	ViewerID  string
	Now       time.Time
	Location  *models.GeoPoint
	Role      string
	Dismissed []uint
}

// PlanLookup resolves plan ids to catalog entries. Unknown ids return false.
type PlanLookup interface {
	Plan(id uint) (*models.Plan, bool)
}

// PlanMap is a static PlanLookup.
type PlanMap map[uint]*models.Plan

func (m PlanMap) Plan(id uint) (*models.Plan, bool) {
	p, ok := m[id]
	return p, ok && p != nil
}

// ExclusionReason names the filter step that removed an item.
type ExclusionReason string

const (
	ExcludedInactive   ExclusionReason = "inactive"
	ExcludedDismissed  ExclusionReason = "dismissed"
	ExcludedPlacement  ExclusionReason = "placement"
	ExcludedRole       ExclusionReason = "role"
	ExcludedSector     ExclusionReason = "sector"
	ExcludedGeofence   ExclusionReason = "geofence"
	ExcludedSpawnLimit ExclusionReason = "spawn_limit"
)

// FilterResult is the outcome of one EligibilityFilter pass.
type FilterResult struct {
	Items []*models.PromotionalItem
	// GlobalCooldown is set when the whole pool was suppressed by the global gate.
	GlobalCooldown bool
	Excluded       map[ExclusionReason]int
}

// EligibilityFilter narrows a candidate pool to items that may be shown now.
type EligibilityFilter struct {
	policy         *SpawnPolicy
	plans          PlanLookup
	globalCooldown time.Duration
}

// NewEligibilityFilter creates a filter. A non-positive cooldown uses utils.GlobalExposureCooldown.
func NewEligibilityFilter(policy *SpawnPolicy, plans PlanLookup, globalCooldown time.Duration) *EligibilityFilter {
	if globalCooldown <= 0 {
		globalCooldown = utils.GlobalExposureCooldown
	}
	if plans == nil {
		plans = PlanMap{}
	}
	return &EligibilityFilter{policy: policy, plans: plans, globalCooldown: globalCooldown}
}

// InGlobalCooldown reports whether the viewer saw any promotion less than the
// global cooldown ago. A gap of exactly the cooldown is not suppressed.
func (f *EligibilityFilter) InGlobalCooldown(exposure *ViewerExposure, now time.Time) bool {
	if exposure == nil || exposure.LastGlobalExposureAt == nil {
		return false
	}
	return now.Sub(*exposure.LastGlobalExposureAt) < f.globalCooldown
}

// Filter applies the eligibility steps in order. businesses is keyed by business id.
func (f *EligibilityFilter) Filter(
	pool []*models.PromotionalItem,
	viewer ViewerContext,
	slot RenderSlot,
	exposure *ViewerExposure,
	businesses map[uint]*models.Business,
) FilterResult {
	result := FilterResult{Excluded: make(map[ExclusionReason]int)}

	if !slot.Context.LowIntrusion() && f.InGlobalCooldown(exposure, viewer.Now) {
		result.GlobalCooldown = true
		return result
	}

	dismissed := make(map[uint]struct{}, len(viewer.Dismissed))
	for _, id := range viewer.Dismissed {
		dismissed[id] = struct{}{}
	}

	for _, item := range pool {
		if item == nil {
			continue
		}
		if reason, ok := f.exclude(item, viewer, slot, exposure, businesses, dismissed); ok {
			result.Excluded[reason]++
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result
}

func (f *EligibilityFilter) exclude(
	item *models.PromotionalItem,
	viewer ViewerContext,
	slot RenderSlot,
	exposure *ViewerExposure,
	businesses map[uint]*models.Business,
	dismissed map[uint]struct{},
) (ExclusionReason, bool) {
	if !item.ActiveAt(viewer.Now) {
		return ExcludedInactive, true
	}

	if _, ok := dismissed[item.ID]; ok {
		return ExcludedDismissed, true
	}

	if !slot.Context.Accepts(item.Position) {
		return ExcludedPlacement, true
	}
	if len(slot.Formats) > 0 && !slices.Contains(slot.Formats, item.Format) {
		return ExcludedPlacement, true
	}
	if len(item.TargetRoles) > 0 && !slices.Contains([]string(item.TargetRoles), viewer.Role) {
		return ExcludedRole, true
	}

	if slot.SectorID != nil && item.RelatedSectorID != nil && *slot.SectorID != *item.RelatedSectorID {
		return ExcludedSector, true
	}

	business := linkedBusiness(item, businesses)
	if item.IsBusinessLinked() && item.TargetingRadiusMeters > 0 && business != nil {
		if d, ok := distanceBetween(viewer.Location, business.Location()); ok && d > item.TargetingRadiusMeters {
			return ExcludedGeofence, true
		}
	}

	if f.bypassesFrequencyCap(business) {
		return "", false
	}
	if !f.policy.IsAllowed(exposure.Record(item.ID), item.SpawnType, viewer.Now) {
		return ExcludedSpawnLimit, true
	}
	return "", false
}

func (f *EligibilityFilter) bypassesFrequencyCap(business *models.Business) bool {
	plan := planOf(f.plans, business)
	return plan != nil && plan.BypassesFrequencyCap
}

func linkedBusiness(item *models.PromotionalItem, businesses map[uint]*models.Business) *models.Business {
	if !item.IsBusinessLinked() || businesses == nil {
		return nil
	}
	return businesses[*item.LinkedBusinessID]
}

func planOf(plans PlanLookup, business *models.Business) *models.Plan {
	if business == nil || business.PlanID == nil {
		return nil
	}
	plan, ok := plans.Plan(*business.PlanID)
	if !ok {
		return nil
	}
	return plan
}

package allocation

import (
	"context"
	"errors"
	"time"
)

// ErrExposureNotRecorded is returned when a selection was computed but the
// exposure write did not persist. The selection itself is still valid.
var ErrExposureNotRecorded = errors.New("exposure not recorded")

// ExposureRecord is the per-item exposure state for a single viewer.
type ExposureRecord struct {
	LastViewedAt   time.Time `json:"last_viewed_at"`
	DailyViewCount int       `json:"daily_view_count"`
	DayBucket      string    `json:"day_bucket"`
}

// ViewsOn returns the daily view count as seen on day. A stale bucket reads as 0.
func (r *ExposureRecord) ViewsOn(day string) int {
	if r == nil || r.DayBucket != day {
		return 0
	}
	return r.DailyViewCount
}

// ViewerExposure is everything the exposure store keeps for one viewer.
type ViewerExposure struct {
	Items                map[uint]*ExposureRecord `json:"items"`
	LastGlobalExposureAt *time.Time               `json:"last_global_exposure_at,omitempty"`
}

// NewViewerExposure returns an empty exposure history.
func NewViewerExposure() *ViewerExposure {
	return &ViewerExposure{Items: make(map[uint]*ExposureRecord)}
}

// Record returns the record for itemID or nil. Safe on a nil receiver.
func (v *ViewerExposure) Record(itemID uint) *ExposureRecord {
	if v == nil || v.Items == nil {
		return nil
	}
	return v.Items[itemID]
}

// Touch applies one exposure of itemID at now. day is the calendar bucket of now.
func (v *ViewerExposure) Touch(itemID uint, now time.Time, day string) {
	if v.Items == nil {
		v.Items = make(map[uint]*ExposureRecord)
	}
	rec, ok := v.Items[itemID]
	if !ok {
		rec = &ExposureRecord{DayBucket: day}
		v.Items[itemID] = rec
	}
	if rec.DayBucket != day {
		rec.DailyViewCount = 0
		rec.DayBucket = day
	}
	rec.LastViewedAt = now
	rec.DailyViewCount++

	at := now
	v.LastGlobalExposureAt = &at
}

// PruneBefore drops item records last viewed before cutoff and returns how many were removed.
func (v *ViewerExposure) PruneBefore(cutoff time.Time) int {
	removed := 0
	for id, rec := range v.Items {
		if rec == nil || rec.LastViewedAt.Before(cutoff) {
			delete(v.Items, id)
			removed++
		}
	}
	if v.LastGlobalExposureAt != nil && v.LastGlobalExposureAt.Before(cutoff) {
		v.LastGlobalExposureAt = nil
	}
	return removed
}

// IsEmpty reports whether nothing worth keeping is left.
func (v *ViewerExposure) IsEmpty() bool {
	return v == nil || (len(v.Items) == 0 && v.LastGlobalExposureAt == nil)
}

// Clone returns a deep copy.
func (v *ViewerExposure) Clone() *ViewerExposure {
	out := NewViewerExposure()
	if v == nil {
		return out
	}
	for id, rec := range v.Items {
		if rec == nil {
			continue
		}
		cp := *rec
		out.Items[id] = &cp
	}
	if v.LastGlobalExposureAt != nil {
		at := *v.LastGlobalExposureAt
		out.LastGlobalExposureAt = &at
	}
	return out
}

// ExposureStore persists per-viewer exposure history.
//
// Update must serialize read-modify-write cycles for the same viewer so that two
// concurrent selections cannot both read N and write N+1. The value passed to fn
// is never nil; returning an error from fn aborts the write.
type ExposureStore interface {
	Load(ctx context.Context, viewerID string) (*ViewerExposure, error)
	Update(ctx context.Context, viewerID string, fn func(*ViewerExposure) error) error
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

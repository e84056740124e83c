package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/dulcemap/dulcemap-api/utils"
	"go.uber.org/zap"
)

// HistoryConfig tunes exposure store access.
type HistoryConfig struct {
	// Location defines the calendar day used for daily counters. Defaults to UTC.
	Location *time.Location
	// IOTimeout bounds every store call. Zero means no extra bound.
	IOTimeout time.Duration
	Logger    *zap.Logger
}

// History is the viewer exposure history on top of an ExposureStore.
type History struct {
	store     ExposureStore
	location  *time.Location
	ioTimeout time.Duration
	logger    *zap.Logger
}

// NewHistory creates a History backed by store.
func NewHistory(store ExposureStore, cfg HistoryConfig) *History {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	return &History{
		store:     store,
		location:  loc,
		ioTimeout: cfg.IOTimeout,
		logger:    logger.Named("exposure_history"),
	}
}

// Today returns the day bucket of now in the history's time zone.
func (h *History) Today(now time.Time) string {
	return utils.DayBucket(now, h.location)
}

// Location returns the time zone used for day buckets.
func (h *History) Location() *time.Location {
	return h.location
}

func (h *History) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.ioTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.ioTimeout)
}

// Get returns the record for one item, or nil when the viewer never saw it.
func (h *History) Get(ctx context.Context, viewerID string, itemID uint) (*ExposureRecord, error) {
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	state, err := h.store.Load(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return state.Record(itemID), nil
}

// Snapshot loads the full viewer history. Store failures and timeouts fail open:
// the caller gets an empty history and a warning is logged.
func (h *History) Snapshot(ctx context.Context, viewerID string) *ViewerExposure {
	if viewerID == "" {
		return NewViewerExposure()
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	state, err := h.store.Load(ctx, viewerID)
	if err != nil {
		h.logger.Warn("exposure snapshot unavailable, continuing without history",
			zap.String("viewer_id", viewerID),
			zap.Error(err),
		)
		return NewViewerExposure()
	}
	if state == nil {
		return NewViewerExposure()
	}
	return state
}

// RecordExposure records a single exposure of itemID at now.
func (h *History) RecordExposure(ctx context.Context, viewerID string, itemID uint, now time.Time) error {
	return h.RecordExposures(ctx, viewerID, []uint{itemID}, now)
}

// RecordExposures records one exposure for each item in a single serialized update.
// Failures wrap ErrExposureNotRecorded.
func (h *History) RecordExposures(ctx context.Context, viewerID string, itemIDs []uint, now time.Time) error {
	if viewerID == "" || len(itemIDs) == 0 {
		return nil
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	day := h.Today(now)
	err := h.store.Update(ctx, viewerID, func(state *ViewerExposure) error {
		for _, id := range itemIDs {
			state.Touch(id, now, day)
		}
		return nil
	})
	if err != nil {
		h.logger.Error("failed to record exposure",
			zap.String("viewer_id", viewerID),
			zap.Uints("item_ids", itemIDs),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrExposureNotRecorded, err)
	}
	return nil
}

// Prune removes exposure state last touched before olderThan.
func (h *History) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	return h.store.Prune(ctx, olderThan)
}

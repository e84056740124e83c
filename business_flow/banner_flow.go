package businessflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/dulcemap/dulcemap-api/allocation"
	"github.com/dulcemap/dulcemap-api/app/dto"
	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/repository"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BannerFlow handles promotional banner selection and bookkeeping
type BannerFlow interface {
	SelectBanners(ctx context.Context, req *dto.SelectPromotionsRequest, metadata *ClientMetadata) (*dto.SelectPromotionsResponse, error)
	RecordClick(ctx context.Context, itemUUID string) (*dto.RecordClickResponse, error)
	UpdateStatus(ctx context.Context, req *dto.UpdatePromotionStatusRequest) (*dto.UpdatePromotionStatusResponse, error)
	ExportPerformanceReport(ctx context.Context) (*dto.PromotionReport, error)
}

// BannerFlowConfig bounds request sizes. CandidatePoolLimit caps the rows loaded per
// position; zero loads every live item. A cap that triggers is logged and counted.
type BannerFlowConfig struct {
	MaxItemsLimit      int
	CandidatePoolLimit int
}

// BannerFlowImpl implements the banner business flow
type BannerFlowImpl struct {
	itemRepo     repository.PromotionalItemRepository
	businessRepo repository.BusinessRepository
	plans        *PlanCatalog
	pipeline     *allocation.Pipeline
	cfg          BannerFlowConfig
	logger       *zap.Logger
}

// NewBannerFlow creates a new banner flow instance
func NewBannerFlow(
	itemRepo repository.PromotionalItemRepository,
	businessRepo repository.BusinessRepository,
	plans *PlanCatalog,
	pipeline *allocation.Pipeline,
	cfg BannerFlowConfig,
	logger *zap.Logger,
) BannerFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BannerFlowImpl{
		itemRepo:     itemRepo,
		businessRepo: businessRepo,
		plans:        plans,
		pipeline:     pipeline,
		cfg:          cfg,
		logger:       logger.Named("banner_flow"),
	}
}

// SelectBanners picks the promotions to render in one slot and records the exposure
func (f *BannerFlowImpl) SelectBanners(ctx context.Context, req *dto.SelectPromotionsRequest, metadata *ClientMetadata) (*dto.SelectPromotionsResponse, error) {
	slot, location, err := f.validateSelectRequest(req)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()

	pool, err := f.loadCandidates(ctx, slot.Context, now)
	if err != nil {
		return nil, err
	}

	businesses, err := f.loadLinkedBusinesses(ctx, pool, now)
	if err != nil {
		return nil, NewBusinessError("FETCH_BUSINESSES_FAILED", "Failed to load linked businesses", err)
	}

	role := req.Role
	if role == "" {
		role = utils.ViewerRoleGuest
	}
	viewer := allocation.ViewerContext{
		ViewerID:  req.ViewerID,
		Now:       now,
		Location:  location,
		Role:      role,
		Dismissed: dismissedIDs(req.Dismissed, pool),
	}

	sel := f.pipeline.Select(ctx, allocation.SelectionRequest{
		Viewer:     viewer,
		Slot:       slot,
		Pool:       pool,
		Businesses: businesses,
		MaxItems:   req.MaxItems,
	})

	contextLabel := string(slot.Context)
	selectionsTotal.WithLabelValues(contextLabel).Inc()
	servedItemsTotal.WithLabelValues(contextLabel).Add(float64(len(sel.Items)))
	if sel.GlobalCooldown {
		globalCooldownTotal.Inc()
	}
	for reason, n := range sel.Excluded {
		excludedItemsTotal.WithLabelValues(string(reason)).Add(float64(n))
	}
	if sel.ExposureErr != nil {
		exposureWriteFailuresTotal.Inc()
		f.logger.Warn("exposure not recorded",
			zap.String("viewer_id", req.ViewerID),
			zap.String("request_id", requestIDOf(metadata)),
			zap.Error(sel.ExposureErr))
	}

	ids := make([]uint, 0, len(sel.Items))
	items := make([]dto.PromotionItemDTO, 0, len(sel.Items))
	for _, s := range sel.Items {
		ids = append(ids, s.Item.ID)
		items = append(items, ToPromotionItemDTO(s, businesses))
	}
	if err := f.itemRepo.IncrementViews(ctx, ids); err != nil {
		f.logger.Warn("failed to increment promotion views", zap.Uints("item_ids", ids), zap.Error(err))
	}

	var excluded map[string]int
	if len(sel.Excluded) > 0 {
		excluded = make(map[string]int, len(sel.Excluded))
		for reason, n := range sel.Excluded {
			excluded[string(reason)] = n
		}
	}

	return &dto.SelectPromotionsResponse{
		Message:          "Promotions selected",
		Items:            items,
		GlobalCooldown:   sel.GlobalCooldown,
		ExposureRecorded: req.ViewerID != "" && len(sel.Items) > 0 && sel.ExposureErr == nil,
		Excluded:         excluded,
	}, nil
}

func (f *BannerFlowImpl) validateSelectRequest(req *dto.SelectPromotionsRequest) (allocation.RenderSlot, *models.GeoPoint, error) {
	if req == nil {
		return allocation.RenderSlot{}, nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}

	renderCtx := allocation.RenderContext(req.Context)
	if !renderCtx.Valid() {
		return allocation.RenderSlot{}, nil, NewBusinessErrorf("INVALID_RENDER_CONTEXT", "unknown render context %q", ErrInvalidRenderContext, req.Context)
	}

	formats := make([]models.PromotionFormat, 0, len(req.Formats))
	for _, raw := range req.Formats {
		format := models.PromotionFormat(raw)
		if !format.Valid() {
			return allocation.RenderSlot{}, nil, NewBusinessErrorf("INVALID_FORMAT", "unknown format %q", ErrInvalidPromotionFormat, raw)
		}
		formats = append(formats, format)
	}

	limit := f.cfg.MaxItemsLimit
	if limit <= 0 {
		limit = 10
	}
	if req.MaxItems < 0 || req.MaxItems > limit {
		return allocation.RenderSlot{}, nil, NewBusinessErrorf("MAX_ITEMS_OUT_OF_RANGE", "max_items must be between 1 and %d", ErrMaxItemsOutOfRange, limit)
	}

	location, err := viewerLocation(req.Latitude, req.Longitude)
	if err != nil {
		return allocation.RenderSlot{}, nil, err
	}

	return allocation.RenderSlot{Context: renderCtx, Formats: formats, SectorID: req.SectorID}, location, nil
}

// loadCandidates reads every position of the context in parallel with the plan refresh.
func (f *BannerFlowImpl) loadCandidates(ctx context.Context, renderCtx allocation.RenderContext, now time.Time) ([]*models.PromotionalItem, error) {
	positions := renderCtx.Positions()
	perPosition := make([][]*models.PromotionalItem, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.plans.EnsureFresh(gctx)
	})
	for i, position := range positions {
		g.Go(func() error {
			items, err := f.itemRepo.ListCandidates(gctx, []models.PromotionPosition{position}, now, poolFetchLimit(f.cfg.CandidatePoolLimit))
			if err != nil {
				return NewBusinessError("FETCH_PROMOTIONS_FAILED", "Failed to load candidate promotions", err)
			}
			items, truncated := capPool(items, f.cfg.CandidatePoolLimit)
			if truncated {
				candidatePoolTruncatedTotal.WithLabelValues("promotions").Inc()
				f.logger.Warn("candidate promotions truncated",
					zap.String("position", string(position)),
					zap.Int("limit", f.cfg.CandidatePoolLimit))
			}
			perPosition[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pool []*models.PromotionalItem
	for _, items := range perPosition {
		pool = append(pool, items...)
	}
	slices.SortStableFunc(pool, func(a, b *models.PromotionalItem) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return pool, nil
}

func (f *BannerFlowImpl) loadLinkedBusinesses(ctx context.Context, pool []*models.PromotionalItem, now time.Time) (map[uint]*models.Business, error) {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, item := range pool {
		if !item.IsBusinessLinked() {
			continue
		}
		id := *item.LinkedBusinessID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	out := make(map[uint]*models.Business, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := f.businessRepo.ByIDsWithSignals(ctx, ids, now)
	if err != nil {
		return nil, err
	}
	for _, b := range rows {
		out[b.ID] = b
	}
	return out, nil
}

// RecordClick increments the click counter of a promotion
func (f *BannerFlowImpl) RecordClick(ctx context.Context, itemUUID string) (*dto.RecordClickResponse, error) {
	item, err := f.itemByUUID(ctx, itemUUID)
	if err != nil {
		return nil, err
	}

	if err := f.itemRepo.IncrementClicks(ctx, item.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewBusinessError("PROMOTION_NOT_FOUND", "Promotion not found", ErrPromotionNotFound)
		}
		return nil, NewBusinessError("RECORD_CLICK_FAILED", "Failed to record click", err)
	}

	return &dto.RecordClickResponse{
		Message: "Click recorded",
		UUID:    item.UUID.String(),
	}, nil
}

// UpdateStatus moves a promotion to a new status
func (f *BannerFlowImpl) UpdateStatus(ctx context.Context, req *dto.UpdatePromotionStatusRequest) (*dto.UpdatePromotionStatusResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	status := models.PromotionStatus(req.Status)
	if !status.Valid() {
		return nil, NewBusinessErrorf("INVALID_PROMOTION_STATUS", "unknown status %q", ErrInvalidPromotionStatus, req.Status)
	}

	item, err := f.itemByUUID(ctx, req.UUID)
	if err != nil {
		return nil, err
	}

	if err := f.itemRepo.UpdateStatus(ctx, item.ID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewBusinessError("PROMOTION_NOT_FOUND", "Promotion not found", ErrPromotionNotFound)
		}
		return nil, NewBusinessError("UPDATE_STATUS_FAILED", "Failed to update promotion status", err)
	}

	f.logger.Info("promotion status updated",
		zap.String("uuid", item.UUID.String()),
		zap.String("from", item.Status.String()),
		zap.String("to", status.String()))

	return &dto.UpdatePromotionStatusResponse{
		Message: "Promotion status updated",
		UUID:    item.UUID.String(),
		Status:  status.String(),
	}, nil
}

func (f *BannerFlowImpl) itemByUUID(ctx context.Context, raw string) (*models.PromotionalItem, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, NewBusinessError("INVALID_PROMOTION_UUID", "Invalid promotion UUID", ErrInvalidPromotionUUID)
	}
	item, err := f.itemRepo.ByUUID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("FETCH_PROMOTIONS_FAILED", "Failed to load promotion", err)
	}
	if item == nil {
		return nil, NewBusinessError("PROMOTION_NOT_FOUND", "Promotion not found", ErrPromotionNotFound)
	}
	return item, nil
}

// ExportPerformanceReport builds a workbook with one sheet per position
func (f *BannerFlowImpl) ExportPerformanceReport(ctx context.Context) (*dto.PromotionReport, error) {
	rows, err := f.itemRepo.ByFilter(ctx, models.PromotionalItemFilter{}, "position ASC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("FETCH_PROMOTIONS_FAILED", "Failed to load promotions", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	header := []string{"uuid", "title", "kind", "subtype", "format", "status", "linked_business_id", "views", "clicks", "ctr", "start_date", "end_date"}
	rowIndex := make(map[string]int)
	for _, item := range rows {
		sheet := string(item.Position)
		next, ok := rowIndex[sheet]
		if !ok {
			if len(rowIndex) == 0 {
				if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
					return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
				}
			} else if _, err := xl.NewSheet(sheet); err != nil {
				return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
			}
			if err := writeReportRow(xl, sheet, 1, header); err != nil {
				return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
			}
			next = 2
		}

		linked := ""
		if item.LinkedBusinessID != nil {
			linked = strconv.FormatUint(uint64(*item.LinkedBusinessID), 10)
		}
		record := []any{
			item.UUID.String(),
			item.Title,
			string(item.Kind),
			string(item.Subtype),
			string(item.Format),
			item.Status.String(),
			linked,
			item.Views,
			item.Clicks,
			clickThroughRate(item.Views, item.Clicks),
			formatOptionalTime(item.StartDate),
			formatOptionalTime(item.EndDate),
		}
		if err := writeReportRow(xl, sheet, next, record); err != nil {
			return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
		}
		rowIndex[sheet] = next + 1
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	return &dto.PromotionReport{
		Filename:    fmt.Sprintf("promotion_performance_%s.xlsx", utils.UTCNow().Format(utils.DayBucketLayout)),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     buf.Bytes(),
	}, nil
}

// writeReportRow writes values starting at column A of the given 1-based row.
func writeReportRow[T any](xl *excelize.File, sheet string, row int, values []T) error {
	cellRef, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return xl.SetSheetRow(sheet, cellRef, &values)
}

func clickThroughRate(views, clicks int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(clicks) / float64(views)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func dismissedIDs(uuids []string, pool []*models.PromotionalItem) []uint {
	if len(uuids) == 0 {
		return nil
	}
	byUUID := make(map[string]uint, len(pool))
	for _, item := range pool {
		byUUID[item.UUID.String()] = item.ID
	}
	var out []uint
	for _, raw := range uuids {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if id, ok := byUUID[parsed.String()]; ok {
			out = append(out, id)
		}
	}
	return out
}

// viewerLocation requires both coordinates or neither
func viewerLocation(lat, lng *float64) (*models.GeoPoint, error) {
	if lat == nil && lng == nil {
		return nil, nil
	}
	if lat == nil || lng == nil || *lat < -90 || *lat > 90 || *lng < -180 || *lng > 180 {
		return nil, NewBusinessError("INVALID_COORDINATES", "Invalid viewer coordinates", ErrInvalidCoordinates)
	}
	return &models.GeoPoint{Lat: *lat, Lng: *lng}, nil
}

func requestIDOf(metadata *ClientMetadata) string {
	if metadata == nil {
		return ""
	}
	return metadata.RequestID
}

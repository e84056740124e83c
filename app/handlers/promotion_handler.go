package handlers

import (
	"time"

	"github.com/dulcemap/dulcemap-api/app/dto"
	"github.com/dulcemap/dulcemap-api/app/middleware"
	businessflow "github.com/dulcemap/dulcemap-api/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"go.uber.org/zap"
)

// PromotionHandlerInterface defines the contract for promotion handlers
type PromotionHandlerInterface interface {
	SelectPromotions(c fiber.Ctx) error
	RecordClick(c fiber.Ctx) error
	UpdateStatus(c fiber.Ctx) error
	ExportReport(c fiber.Ctx) error
}

// PromotionHandler serves the banner selection endpoints
type PromotionHandler struct {
	bannerFlow businessflow.BannerFlow
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPromotionHandler creates a new promotion handler
func NewPromotionHandler(bannerFlow businessflow.BannerFlow, logger *zap.Logger) *PromotionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionHandler{
		bannerFlow: bannerFlow,
		validator:  validator.New(),
		logger:     logger,
	}
}

// SelectPromotions picks the banners to render in one slot
// @Summary Select Promotions
// @Description Select the promotional items a viewer should see in a render context and record the exposure
// @Tags Promotions
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param X-Viewer-ID header string false "Anonymous viewer identifier"
// @Param request body dto.SelectPromotionsRequest true "Render slot"
// @Success 200 {object} dto.APIResponse{data=dto.SelectPromotionsResponse} "Promotions selected"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Plan catalog unavailable"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/promotions/select [post]
func (h *PromotionHandler) SelectPromotions(c fiber.Ctx) error {
	var req dto.SelectPromotionsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	req.ViewerID, req.Role = middleware.GetViewerFromContext(c)

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.RequestID = requestid.FromContext(c)

	ctx, cancel := createRequestContext(c, "/api/v1/promotions/select", defaultRequestTimeout)
	defer cancel()

	result, err := h.bannerFlow.SelectBanners(ctx, &req, metadata)
	if err != nil {
		return h.flowError(c, err, "Promotion selection failed", "PROMOTION_SELECTION_FAILED")
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// RecordClick counts a click on a served promotion
// @Summary Record Promotion Click
// @Description Increment the click counter of a promotion
// @Tags Promotions
// @Produce json
// @Param uuid path string true "Promotion UUID"
// @Success 200 {object} dto.APIResponse{data=dto.RecordClickResponse} "Click recorded"
// @Failure 400 {object} dto.APIResponse "Invalid UUID"
// @Failure 404 {object} dto.APIResponse "Promotion not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/promotions/{uuid}/click [post]
func (h *PromotionHandler) RecordClick(c fiber.Ctx) error {
	itemUUID := c.Params("uuid")

	ctx, cancel := createRequestContext(c, "/api/v1/promotions/"+itemUUID+"/click", defaultRequestTimeout)
	defer cancel()

	result, err := h.bannerFlow.RecordClick(ctx, itemUUID)
	if err != nil {
		return h.flowError(c, err, "Click could not be recorded", "CLICK_RECORD_FAILED")
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// UpdateStatus pauses, resumes or schedules a promotion
// @Summary Update Promotion Status
// @Description Move a promotion between active, paused and scheduled
// @Tags Admin Promotions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Promotion UUID"
// @Param request body dto.UpdatePromotionStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.UpdatePromotionStatusResponse} "Status updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 404 {object} dto.APIResponse "Promotion not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/promotions/{uuid}/status [put]
func (h *PromotionHandler) UpdateStatus(c fiber.Ctx) error {
	var req dto.UpdatePromotionStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}
	req.UUID = c.Params("uuid")

	ctx, cancel := createRequestContext(c, "/api/v1/admin/promotions/"+req.UUID+"/status", defaultRequestTimeout)
	defer cancel()

	result, err := h.bannerFlow.UpdateStatus(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Status update failed", "STATUS_UPDATE_FAILED")
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ExportReport streams the promotion performance workbook
// @Summary Export Promotion Report
// @Description Download views, clicks and CTR for every promotion as an xlsx workbook
// @Tags Admin Promotions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "Report workbook"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/promotions/report [get]
func (h *PromotionHandler) ExportReport(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/admin/promotions/report", 60*time.Second)
	defer cancel()

	report, err := h.bannerFlow.ExportPerformanceReport(ctx)
	if err != nil {
		return h.flowError(c, err, "Report generation failed", "REPORT_GENERATION_FAILED")
	}

	c.Attachment(report.Filename)
	c.Set(fiber.HeaderContentType, report.ContentType)
	return c.Status(fiber.StatusOK).Send(report.Content)
}

func (h *PromotionHandler) flowError(c fiber.Ctx, err error, message, code string) error {
	switch {
	case businessflow.IsValidationError(err):
		return errorResponse(c, fiber.StatusBadRequest, err.Error(), businessErrorCode(err, "VALIDATION_ERROR"), nil)
	case businessflow.IsPromotionNotFound(err):
		return errorResponse(c, fiber.StatusNotFound, "Promotion not found", "PROMOTION_NOT_FOUND", nil)
	case businessflow.IsPlanCatalogUnavailable(err):
		return errorResponse(c, fiber.StatusServiceUnavailable, "Plan catalog is not available yet", "PLAN_CATALOG_UNAVAILABLE", nil)
	}

	h.logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Path()),
		zap.String("request_id", requestid.FromContext(c)),
	)
	return errorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

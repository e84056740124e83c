package handlers

import (
	"github.com/dulcemap/dulcemap-api/app/dto"
	businessflow "github.com/dulcemap/dulcemap-api/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// BusinessHandlerInterface defines the contract for directory handlers
type BusinessHandlerInterface interface {
	RankBusinesses(c fiber.Ctx) error
	BusinessOfTheDay(c fiber.Ctx) error
}

// BusinessHandler serves the ranked business directory
type BusinessHandler struct {
	rankingFlow businessflow.RankingFlow
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewBusinessHandler creates a new business handler
func NewBusinessHandler(rankingFlow businessflow.RankingFlow, logger *zap.Logger) *BusinessHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BusinessHandler{
		rankingFlow: rankingFlow,
		validator:   validator.New(),
		logger:      logger,
	}
}

// RankBusinesses lists businesses ordered by SweetRank
// @Summary Rank Businesses
// @Description Paginated business directory ordered by proximity, plan, reputation and activity
// @Tags Businesses
// @Produce json
// @Param sector_id query int false "Sector filter"
// @Param lat query number false "Viewer latitude"
// @Param lng query number false "Viewer longitude"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param breakdown query bool false "Include score components"
// @Success 200 {object} dto.APIResponse{data=dto.RankBusinessesResponse} "Ranking retrieved"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Plan catalog unavailable"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/businesses/ranking [get]
func (h *BusinessHandler) RankBusinesses(c fiber.Ctx) error {
	var req dto.RankBusinessesRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/businesses/ranking", defaultRequestTimeout)
	defer cancel()

	result, err := h.rankingFlow.RankBusinesses(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Ranking failed", "RANKING_FAILED")
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// BusinessOfTheDay returns the featured business for today
// @Summary Business Of The Day
// @Description Deterministic daily pick among open businesses, weighted toward higher plans
// @Tags Businesses
// @Produce json
// @Param sector_id query int false "Sector filter"
// @Success 200 {object} dto.APIResponse{data=dto.BusinessOfTheDayResponse} "Pick retrieved"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 503 {object} dto.APIResponse "Plan catalog unavailable"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/businesses/of-the-day [get]
func (h *BusinessHandler) BusinessOfTheDay(c fiber.Ctx) error {
	var req dto.BusinessOfTheDayRequest
	if err := c.Bind().Query(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	ctx, cancel := createRequestContext(c, "/api/v1/businesses/of-the-day", defaultRequestTimeout)
	defer cancel()

	result, err := h.rankingFlow.BusinessOfTheDay(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Business of the day failed", "BUSINESS_OF_THE_DAY_FAILED")
	}

	return successResponse(c, fiber.StatusOK, result.Message, result)
}

func (h *BusinessHandler) flowError(c fiber.Ctx, err error, message, code string) error {
	switch {
	case businessflow.IsValidationError(err):
		return errorResponse(c, fiber.StatusBadRequest, err.Error(), businessErrorCode(err, "VALIDATION_ERROR"), nil)
	case businessflow.IsPlanCatalogUnavailable(err):
		return errorResponse(c, fiber.StatusServiceUnavailable, "Plan catalog is not available yet", "PLAN_CATALOG_UNAVAILABLE", nil)
	}

	h.logger.Error(message, zap.Error(err), zap.String("path", c.Path()))
	return errorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

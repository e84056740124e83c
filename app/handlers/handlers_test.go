package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dulcemap/dulcemap-api/app/dto"
	"github.com/dulcemap/dulcemap-api/app/middleware"
	businessflow "github.com/dulcemap/dulcemap-api/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBannerFlow struct {
	mock.Mock
}

func (m *mockBannerFlow) SelectBanners(ctx context.Context, req *dto.SelectPromotionsRequest, metadata *businessflow.ClientMetadata) (*dto.SelectPromotionsResponse, error) {
	args := m.Called(ctx, req, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SelectPromotionsResponse), args.Error(1)
}

func (m *mockBannerFlow) RecordClick(ctx context.Context, itemUUID string) (*dto.RecordClickResponse, error) {
	args := m.Called(ctx, itemUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RecordClickResponse), args.Error(1)
}

func (m *mockBannerFlow) UpdateStatus(ctx context.Context, req *dto.UpdatePromotionStatusRequest) (*dto.UpdatePromotionStatusResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UpdatePromotionStatusResponse), args.Error(1)
}

func (m *mockBannerFlow) ExportPerformanceReport(ctx context.Context) (*dto.PromotionReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PromotionReport), args.Error(1)
}

type mockRankingFlow struct {
	mock.Mock
}

func (m *mockRankingFlow) RankBusinesses(ctx context.Context, req *dto.RankBusinessesRequest) (*dto.RankBusinessesResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RankBusinessesResponse), args.Error(1)
}

func (m *mockRankingFlow) BusinessOfTheDay(ctx context.Context, req *dto.BusinessOfTheDayRequest) (*dto.BusinessOfTheDayResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.BusinessOfTheDayResponse), args.Error(1)
}

func withViewer(id, role string) fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Locals(middleware.LocalViewerID, id)
		c.Locals(middleware.LocalViewerRole, role)
		return c.Next()
	}
}

func newPromotionApp(flow *mockBannerFlow) *fiber.App {
	h := NewPromotionHandler(flow, nil)
	app := fiber.New()
	app.Post("/promotions/select", withViewer("viewer-1", "customer"), h.SelectPromotions)
	app.Post("/promotions/:uuid/click", h.RecordClick)
	app.Put("/admin/promotions/:uuid/status", h.UpdateStatus)
	app.Get("/admin/promotions/report", h.ExportReport)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, dto.APIResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var out dto.APIResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func errorCode(t *testing.T, out dto.APIResponse) string {
	t.Helper()
	detail, ok := out.Error.(map[string]any)
	require.True(t, ok, "error detail missing: %#v", out.Error)
	code, _ := detail["code"].(string)
	return code
}

func TestSelectPromotions(t *testing.T) {
	t.Run("passes viewer identity and returns the selection", func(t *testing.T) {
		flow := new(mockBannerFlow)
		flow.On("SelectBanners", mock.Anything, mock.MatchedBy(func(req *dto.SelectPromotionsRequest) bool {
			return req.ViewerID == "viewer-1" && req.Role == "customer" && req.Context == "home" && req.MaxItems == 2
		}), mock.AnythingOfType("*businessflow.ClientMetadata")).Return(&dto.SelectPromotionsResponse{
			Message:          "Promotions selected",
			Items:            []dto.PromotionItemDTO{{UUID: "a", Title: "Conchas"}},
			ExposureRecorded: true,
		}, nil)

		resp, out := doJSON(t, newPromotionApp(flow), http.MethodPost, "/promotions/select", map[string]any{
			"context":   "home",
			"max_items": 2,
		})

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.True(t, out.Success)
		data := out.Data.(map[string]any)
		assert.Equal(t, true, data["exposure_recorded"])
		assert.Len(t, data["items"], 1)
		flow.AssertExpectations(t)
	})

	tests := []struct {
		name       string
		body       map[string]any
		flowErr    error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown context fails validation",
			body:       map[string]any{"context": "footer"},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "latitude out of range fails validation",
			body:       map[string]any{"context": "home", "latitude": 120.0, "longitude": 0.0},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "flow validation error keeps its code",
			body:       map[string]any{"context": "home"},
			flowErr:    businessflow.NewBusinessError("INVALID_COORDINATES", "latitude and longitude must be sent together", businessflow.ErrInvalidCoordinates),
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "INVALID_COORDINATES",
		},
		{
			name:       "max items above the configured limit reaches the flow",
			body:       map[string]any{"context": "home", "max_items": 15},
			flowErr:    businessflow.NewBusinessErrorf("MAX_ITEMS_OUT_OF_RANGE", "max_items must be between 1 and %d", businessflow.ErrMaxItemsOutOfRange, 10),
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "MAX_ITEMS_OUT_OF_RANGE",
		},
		{
			name:       "negative max items fails validation",
			body:       map[string]any{"context": "home", "max_items": -1},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "plan catalog not loaded",
			body:       map[string]any{"context": "home"},
			flowErr:    businessflow.NewBusinessError("PLAN_CATALOG_UNAVAILABLE", "plans not loaded", businessflow.ErrPlanCatalogUnavailable),
			wantStatus: fiber.StatusServiceUnavailable,
			wantCode:   "PLAN_CATALOG_UNAVAILABLE",
		},
		{
			name:       "unexpected failure",
			body:       map[string]any{"context": "home"},
			flowErr:    errors.New("database is gone"),
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "PROMOTION_SELECTION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := new(mockBannerFlow)
			if tt.flowErr != nil {
				flow.On("SelectBanners", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.flowErr)
			}

			resp, out := doJSON(t, newPromotionApp(flow), http.MethodPost, "/promotions/select", tt.body)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.False(t, out.Success)
			assert.Equal(t, tt.wantCode, errorCode(t, out))
			if tt.flowErr == nil {
				flow.AssertNotCalled(t, "SelectBanners", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRecordClick(t *testing.T) {
	const id = "1d6ad3a4-5a8e-4c55-9b7c-2f6c0b9c1a10"

	t.Run("recorded", func(t *testing.T) {
		flow := new(mockBannerFlow)
		flow.On("RecordClick", mock.Anything, id).Return(&dto.RecordClickResponse{Message: "Click recorded", UUID: id}, nil)

		resp, out := doJSON(t, newPromotionApp(flow), http.MethodPost, "/promotions/"+id+"/click", nil)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "Click recorded", out.Message)
	})

	t.Run("unknown promotion", func(t *testing.T) {
		flow := new(mockBannerFlow)
		flow.On("RecordClick", mock.Anything, id).Return(nil, businessflow.NewBusinessError("PROMOTION_NOT_FOUND", "promotion not found", businessflow.ErrPromotionNotFound))

		resp, out := doJSON(t, newPromotionApp(flow), http.MethodPost, "/promotions/"+id+"/click", nil)

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "PROMOTION_NOT_FOUND", errorCode(t, out))
	})
}

func TestUpdateStatus(t *testing.T) {
	const id = "1d6ad3a4-5a8e-4c55-9b7c-2f6c0b9c1a10"

	flow := new(mockBannerFlow)
	flow.On("UpdateStatus", mock.Anything, &dto.UpdatePromotionStatusRequest{UUID: id, Status: "paused"}).
		Return(&dto.UpdatePromotionStatusResponse{Message: "Status updated", UUID: id, Status: "paused"}, nil)
	app := newPromotionApp(flow)

	resp, out := doJSON(t, app, http.MethodPut, "/admin/promotions/"+id+"/status", map[string]any{"status": "paused"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "paused", out.Data.(map[string]any)["status"])

	resp, out = doJSON(t, app, http.MethodPut, "/admin/promotions/"+id+"/status", map[string]any{"status": "expired"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, out))

	flow.AssertNumberOfCalls(t, "UpdateStatus", 1)
}

func TestExportReport(t *testing.T) {
	flow := new(mockBannerFlow)
	flow.On("ExportPerformanceReport", mock.Anything).Return(&dto.PromotionReport{
		Filename:    "promotions-2025-03-04.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     []byte("PK-not-really-a-zip"),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/promotions/report", nil)
	resp, err := newPromotionApp(flow).Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "promotions-2025-03-04.xlsx")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "PK-not-really-a-zip", string(body))
}

func newBusinessApp(flow *mockRankingFlow) *fiber.App {
	h := NewBusinessHandler(flow, nil)
	app := fiber.New()
	app.Get("/businesses/ranking", h.RankBusinesses)
	app.Get("/businesses/of-the-day", h.BusinessOfTheDay)
	return app
}

func TestRankBusinesses(t *testing.T) {
	t.Run("binds query parameters", func(t *testing.T) {
		flow := new(mockRankingFlow)
		flow.On("RankBusinesses", mock.Anything, mock.MatchedBy(func(req *dto.RankBusinessesRequest) bool {
			return req.SectorID != nil && *req.SectorID == 4 &&
				req.Latitude != nil && *req.Latitude == 19.43 &&
				req.Longitude != nil && *req.Longitude == -99.13 &&
				req.Page == 2 && req.Limit == 10 && req.IncludeBreakdown
		})).Return(&dto.RankBusinessesResponse{
			Message:    "Ranking retrieved",
			Items:      []dto.RankedBusinessDTO{},
			Pagination: dto.PaginationInfo{Page: 2, Limit: 10},
		}, nil)

		resp, out := doJSON(t, newBusinessApp(flow), http.MethodGet, "/businesses/ranking?sector_id=4&lat=19.43&lng=-99.13&page=2&limit=10&breakdown=true", nil)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.True(t, out.Success)
		flow.AssertExpectations(t)
	})

	t.Run("limit above maximum", func(t *testing.T) {
		flow := new(mockRankingFlow)

		resp, out := doJSON(t, newBusinessApp(flow), http.MethodGet, "/businesses/ranking?limit=500", nil)

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, out))
		flow.AssertNotCalled(t, "RankBusinesses", mock.Anything, mock.Anything)
	})

	t.Run("plan catalog unavailable", func(t *testing.T) {
		flow := new(mockRankingFlow)
		flow.On("RankBusinesses", mock.Anything, mock.Anything).
			Return(nil, businessflow.NewBusinessError("PLAN_CATALOG_UNAVAILABLE", "plans not loaded", businessflow.ErrPlanCatalogUnavailable))

		resp, _ := doJSON(t, newBusinessApp(flow), http.MethodGet, "/businesses/ranking", nil)

		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestBusinessOfTheDay(t *testing.T) {
	flow := new(mockRankingFlow)
	flow.On("BusinessOfTheDay", mock.Anything, mock.Anything).Return(&dto.BusinessOfTheDayResponse{
		Message:  "Business of the day",
		Day:      "2025-03-04",
		Business: &dto.BusinessSummaryDTO{UUID: "b", Name: "Panadería Rosetta", LiveStatus: "open"},
	}, nil)

	resp, out := doJSON(t, newBusinessApp(flow), http.MethodGet, "/businesses/of-the-day", nil)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := out.Data.(map[string]any)
	assert.Equal(t, "2025-03-04", data["day"])
	assert.Equal(t, "Panadería Rosetta", data["business"].(map[string]any)["name"])
}

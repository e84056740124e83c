package businessflow

import (
	"context"
	"time"

	"github.com/dulcemap/dulcemap-api/allocation"
	"github.com/dulcemap/dulcemap-api/app/dto"
	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/repository"
	"github.com/dulcemap/dulcemap-api/utils"
	"go.uber.org/zap"
)

const (
	defaultRankingPageSize = 20
	maxRankingPageSize     = 100
)

// RankingFlow handles directory ranking and the daily featured business
type RankingFlow interface {
	RankBusinesses(ctx context.Context, req *dto.RankBusinessesRequest) (*dto.RankBusinessesResponse, error)
	BusinessOfTheDay(ctx context.Context, req *dto.BusinessOfTheDayRequest) (*dto.BusinessOfTheDayResponse, error)
}

// RankingFlowConfig bounds the ranking candidate set. Zero CandidateLimit ranks the
// whole active pool; a cap that triggers is logged, counted and flagged in the response.
type RankingFlowConfig struct {
	CandidateLimit int
	Location       *time.Location
}

// RankingFlowImpl implements the ranking business flow
type RankingFlowImpl struct {
	businessRepo repository.BusinessRepository
	plans        *PlanCatalog
	ranker       *allocation.SweetRank
	cfg          RankingFlowConfig
	logger       *zap.Logger
}

// NewRankingFlow creates a new ranking flow instance
func NewRankingFlow(
	businessRepo repository.BusinessRepository,
	plans *PlanCatalog,
	ranker *allocation.SweetRank,
	cfg RankingFlowConfig,
	logger *zap.Logger,
) RankingFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &RankingFlowImpl{
		businessRepo: businessRepo,
		plans:        plans,
		ranker:       ranker,
		cfg:          cfg,
		logger:       logger.Named("ranking_flow"),
	}
}

// candidatePool is the loaded ranking pool. total is the full matching count when the cap dropped rows.
type candidatePool struct {
	rows      []*models.Business
	truncated bool
	total     int64
}

func (f *RankingFlowImpl) candidates(ctx context.Context, sectorID *uint, now time.Time) (*candidatePool, error) {
	if err := f.plans.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	filter := models.BusinessFilter{
		SectorID: sectorID,
		IsActive: utils.ToPtr(true),
	}
	rows, err := f.businessRepo.ListWithSignals(ctx, filter, now, poolFetchLimit(f.cfg.CandidateLimit))
	if err != nil {
		return nil, NewBusinessError("FETCH_BUSINESSES_FAILED", "Failed to load businesses", err)
	}

	rows, truncated := capPool(rows, f.cfg.CandidateLimit)
	pool := &candidatePool{rows: rows, truncated: truncated, total: int64(len(rows))}
	if !truncated {
		return pool, nil
	}

	candidatePoolTruncatedTotal.WithLabelValues("businesses").Inc()
	total, err := f.businessRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("FETCH_BUSINESSES_FAILED", "Failed to count businesses", err)
	}
	pool.total = total
	f.logger.Warn("ranking pool truncated",
		zap.Int("limit", f.cfg.CandidateLimit),
		zap.Int64("matching", total))
	return pool, nil
}

// RankBusinesses returns one page of the SweetRank ordering
func (f *RankingFlowImpl) RankBusinesses(ctx context.Context, req *dto.RankBusinessesRequest) (*dto.RankBusinessesResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	page, limit := req.Page, req.Limit
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultRankingPageSize
	}
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "Invalid page", ErrInvalidPage)
	}
	if limit < 1 || limit > maxRankingPageSize {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "Invalid page size", ErrInvalidPageSize)
	}
	location, err := viewerLocation(req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}

	rankingRequestsTotal.WithLabelValues("ranking").Inc()

	now := utils.UTCNow()
	pool, err := f.candidates(ctx, req.SectorID, now)
	if err != nil {
		return nil, err
	}
	ranked := f.ranker.RankBusinesses(pool.rows, location, now)

	total := len(ranked)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	items := make([]dto.RankedBusinessDTO, 0, end-start)
	for i, s := range ranked[start:end] {
		row := dto.RankedBusinessDTO{
			Rank:     start + i + 1,
			Business: *ToBusinessSummaryDTO(s.Business),
			Score:    s.Score,
		}
		if s.Business.PlanID != nil {
			if plan, ok := f.plans.Plan(*s.Business.PlanID); ok {
				row.PlanCode = utils.ToPtr(plan.Code)
			}
		}
		if req.IncludeBreakdown {
			row.Breakdown = ToScoreBreakdownDTO(s.Breakdown)
		}
		items = append(items, row)
	}

	totalPages := (total + limit - 1) / limit
	return &dto.RankBusinessesResponse{
		Message: "Businesses ranked",
		Items:   items,
		Pagination: dto.PaginationInfo{
			Total:      pool.total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
		Truncated: pool.truncated,
	}, nil
}

// BusinessOfTheDay returns the open business selected by the daily rotation
func (f *RankingFlowImpl) BusinessOfTheDay(ctx context.Context, req *dto.BusinessOfTheDayRequest) (*dto.BusinessOfTheDayResponse, error) {
	var sectorID *uint
	if req != nil {
		sectorID = req.SectorID
	}

	rankingRequestsTotal.WithLabelValues("of_the_day").Inc()

	now := utils.UTCNow()
	pool, err := f.candidates(ctx, sectorID, now)
	if err != nil {
		return nil, err
	}

	pick := allocation.PickOfTheDay(pool.rows, now, f.cfg.Location)
	message := "Business of the day selected"
	if pick == nil {
		message = "No open business today"
	}
	return &dto.BusinessOfTheDayResponse{
		Message:  message,
		Day:      utils.DayBucket(now, f.cfg.Location),
		Business: ToBusinessSummaryDTO(pick),
	}, nil
}

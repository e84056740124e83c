package businessflow

import (
	"context"
	"sync"
	"time"

	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/repository"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const planCatalogRefreshKey = "plans"

// PlanCatalog is an in-memory view of the plans table. It satisfies
// allocation.PlanLookup; callers refresh it with EnsureFresh once per request.
type PlanCatalog struct {
	repo   repository.PlanRepository
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.RWMutex
	plans    map[uint]*models.Plan
	byCode   map[string]*models.Plan
	loadedAt time.Time

	group singleflight.Group
}

// NewPlanCatalog creates an empty catalog. A non-positive ttl reloads on every EnsureFresh.
func NewPlanCatalog(repo repository.PlanRepository, ttl time.Duration, logger *zap.Logger) *PlanCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanCatalog{
		repo:   repo,
		ttl:    ttl,
		logger: logger.Named("plan_catalog"),
		plans:  make(map[uint]*models.Plan),
		byCode: make(map[string]*models.Plan),
	}
}

// Plan returns the cached plan for id
func (c *PlanCatalog) Plan(id uint) (*models.Plan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.plans[id]
	return p, ok
}

// ByCode returns the cached plan with the given catalog code
func (c *PlanCatalog) ByCode(code string) (*models.Plan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byCode[code]
	return p, ok
}

// Len returns the number of cached plans
func (c *PlanCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plans)
}

func (c *PlanCatalog) stale(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt.IsZero() || c.ttl <= 0 || now.Sub(c.loadedAt) >= c.ttl
}

// Refresh reloads the catalog. Concurrent callers share one database round trip.
func (c *PlanCatalog) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do(planCatalogRefreshKey, func() (any, error) {
		rows, err := c.repo.ListAll(ctx)
		if err != nil {
			return nil, err
		}

		plans := make(map[uint]*models.Plan, len(rows))
		byCode := make(map[string]*models.Plan, len(rows))
		for _, p := range rows {
			plans[p.ID] = p
			byCode[p.Code] = p
		}

		c.mu.Lock()
		c.plans = plans
		c.byCode = byCode
		c.loadedAt = utils.UTCNow()
		c.mu.Unlock()

		c.logger.Debug("plan catalog refreshed", zap.Int("plans", len(plans)))
		return nil, nil
	})
	return err
}

// EnsureFresh reloads the catalog when the TTL elapsed. A failed reload keeps
// serving the previous snapshot; it only errors when nothing was ever loaded.
func (c *PlanCatalog) EnsureFresh(ctx context.Context) error {
	if !c.stale(utils.UTCNow()) {
		return nil
	}
	err := c.Refresh(ctx)
	if err == nil {
		return nil
	}

	c.mu.RLock()
	loaded := !c.loadedAt.IsZero()
	c.mu.RUnlock()
	if loaded {
		c.logger.Warn("plan catalog refresh failed, serving cached plans", zap.Error(err))
		return nil
	}
	return NewBusinessError("PLAN_CATALOG_UNAVAILABLE", "Plan catalog could not be loaded", eris.Wrap(ErrPlanCatalogUnavailable, err.Error()))
}

// Seed inserts plans when the table is empty and returns how many were written
func (c *PlanCatalog) Seed(ctx context.Context, seed []models.Plan) (int, error) {
	count, err := c.repo.Count(ctx, models.PlanFilter{})
	if err != nil {
		return 0, err
	}
	if count > 0 || len(seed) == 0 {
		return 0, nil
	}

	rows := make([]*models.Plan, 0, len(seed))
	for i := range seed {
		p := seed[i]
		rows = append(rows, &p)
	}
	if err := c.repo.SaveBatch(ctx, rows); err != nil {
		return 0, err
	}

	c.logger.Info("plan catalog seeded", zap.Int("plans", len(rows)))
	return len(rows), c.Refresh(ctx)
}

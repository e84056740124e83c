// Package main provides the main entry point for the DulceMap promotion and ranking API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dulcemap/dulcemap-api/allocation"
	"github.com/dulcemap/dulcemap-api/app/handlers"
	"github.com/dulcemap/dulcemap-api/app/middleware"
	"github.com/dulcemap/dulcemap-api/app/router"
	"github.com/dulcemap/dulcemap-api/app/scheduler"
	"github.com/dulcemap/dulcemap-api/app/services"
	businessflow "github.com/dulcemap/dulcemap-api/business_flow"
	"github.com/dulcemap/dulcemap-api/config"
	"github.com/dulcemap/dulcemap-api/models"
	"github.com/dulcemap/dulcemap-api/repository"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title DulceMap API
// @version 1.0
// @description Promotion allocation and business ranking for the DulceMap pastry marketplace
// @contact.name DulceMap API Support
// @contact.email support@dulcemap.com
// @host api.dulcemap.com
// @BasePath /
// @schemes https http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	logger    *zap.Logger
	stopFuncs []func()
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dulcemap-api",
		Short:         "DulceMap promotion allocation and business ranking API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "prune-exposures",
		Short: "Delete viewer exposure history older than the retention window and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPruneExposures(cmd.Context())
		},
	})

	return root
}

func runServe(parent context.Context) error {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return eris.Wrap(err, "failed to load configuration")
	}

	logger, err := config.InitLogger(cfg.Logging)
	if err != nil {
		return eris.Wrap(err, "failed to initialize logger")
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting DulceMap API",
		zap.String("version", cfg.Deployment.Version),
		zap.String("environment", cfg.Deployment.Environment),
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initializeApplication(ctx, cfg, logger)
	if err != nil {
		return eris.Wrap(err, "failed to initialize application")
	}

	app.router.SetupRoutes()

	serverErr := make(chan error, 1)
	go func() {
		address := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
		serverErr <- app.router.Start(address)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server stopped unexpectedly", zap.Error(err))
		}
	}

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
	return nil
}

func runPruneExposures(parent context.Context) error {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return eris.Wrap(err, "failed to load configuration")
	}

	logger, err := config.InitLogger(cfg.Logging)
	if err != nil {
		return eris.Wrap(err, "failed to initialize logger")
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Allocation.ExposureStore == config.ExposureStoreMemory {
		logger.Info("Memory exposure store has nothing to prune between processes")
		return nil
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *gorm.DB
	var rc *redis.Client
	if cfg.Allocation.ExposureStore == config.ExposureStorePostgres {
		if db, err = initializeDatabase(cfg.Database, logger); err != nil {
			return err
		}
	} else {
		if rc, err = initializeCache(cfg.Cache, logger); err != nil {
			return err
		}
		if rc != nil {
			defer func() { _ = rc.Close() }()
		}
	}

	store, err := initializeExposureStore(cfg, db, rc)
	if err != nil {
		return err
	}
	history := allocation.NewHistory(store, allocation.HistoryConfig{
		Location: utils.LoadLocationOrUTC(cfg.Allocation.TimeZone),
		Logger:   logger,
	})

	pruner := scheduler.NewExposurePruner(history, scheduler.ExposurePrunerConfig{
		Timeout:   cfg.Scheduler.ExposurePruneTimeout,
		Retention: cfg.Allocation.ExposureRetention,
	}, logger)

	_, err = pruner.RunOnce(ctx)
	return err
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{}
	if cfg.SlowQueryLog {
		gormCfg.Logger = gormlogger.New(
			zap.NewStdLog(logger.Named("gorm")),
			gormlogger.Config{
				SlowThreshold:             cfg.SlowQueryTime,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, eris.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, eris.Wrap(err, "failed to get underlying sql.DB")
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, eris.Wrap(err, "failed to ping database")
	}

	if cfg.AutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return nil, eris.Wrap(err, "failed to migrate database")
		}
		logger.Info("Database schema migrated")
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, eris.Wrap(err, "invalid redis url")
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, eris.Wrap(err, "failed to connect to redis")
	}

	logger.Info("Redis connection established", zap.String("addr", opt.Addr), zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if client == nil {
		return cancel
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeExposureStore picks the exposure backend named by the allocation config
func initializeExposureStore(cfg *config.ProductionConfig, db *gorm.DB, rc *redis.Client) (allocation.ExposureStore, error) {
	switch cfg.Allocation.ExposureStore {
	case config.ExposureStoreMemory:
		return allocation.NewMemoryExposureStore(), nil
	case config.ExposureStoreRedis:
		if rc == nil {
			return nil, eris.New("redis exposure store requires CACHE_PROVIDER=redis")
		}
		return services.NewRedisExposureStore(rc, cfg.Cache.RedisPrefix, cfg.Allocation.ExposureRetention), nil
	case config.ExposureStorePostgres:
		return services.NewDBExposureStore(db, repository.NewViewerExposureRepository(db)), nil
	default:
		return nil, eris.Errorf("unknown exposure store %q", cfg.Allocation.ExposureStore)
	}
}

// initializePlanCatalog seeds the plans table when empty and loads the catalog
func initializePlanCatalog(ctx context.Context, cfg config.AllocationConfig, planRepo repository.PlanRepository, logger *zap.Logger) (*businessflow.PlanCatalog, error) {
	catalog := businessflow.NewPlanCatalog(planRepo, cfg.PlanCacheTTL, logger)

	if cfg.PlanSeedFile != "" {
		seed, err := config.LoadPlanSeed(cfg.PlanSeedFile)
		if err != nil {
			return nil, err
		}
		if _, err := catalog.Seed(ctx, seed); err != nil {
			return nil, eris.Wrap(err, "failed to seed plans")
		}
	}

	// A failed first load is not fatal: requests answer 503 until the catalog loads
	if err := catalog.Refresh(ctx); err != nil {
		logger.Warn("Initial plan catalog load failed", zap.Error(err))
	} else {
		logger.Info("Plan catalog loaded", zap.Int("plans", catalog.Len()))
	}
	return catalog, nil
}

// initializeApplication initializes the main application components
func initializeApplication(ctx context.Context, cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(ctx, rc, 30*time.Second, logger))
	}

	// Initialize repositories
	planRepo := repository.NewPlanRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	itemRepo := repository.NewPromotionalItemRepository(db)

	policy, err := config.LoadAllocationPolicy(cfg.Allocation.PolicyFile)
	if err != nil {
		return nil, err
	}

	catalog, err := initializePlanCatalog(ctx, cfg.Allocation, planRepo, logger)
	if err != nil {
		return nil, err
	}

	store, err := initializeExposureStore(cfg, db, rc)
	if err != nil {
		return nil, err
	}

	// Allocation core
	loc := utils.LoadLocationOrUTC(cfg.Allocation.TimeZone)
	history := allocation.NewHistory(store, allocation.HistoryConfig{
		Location:  loc,
		IOTimeout: cfg.Allocation.ExposureIOTimeout,
		Logger:    logger,
	})
	spawnPolicy := allocation.NewSpawnPolicy(policy.SpawnRules, loc)
	filter := allocation.NewEligibilityFilter(spawnPolicy, catalog, cfg.Allocation.GlobalCooldown)
	scoring := allocation.NewScoringEngine(catalog, loc)
	pipeline := allocation.NewPipeline(history, filter, scoring, cfg.Allocation.DefaultMaxItems)
	ranker := allocation.NewSweetRank(catalog, policy.RankWeights)

	logger.Info("Allocation engine initialized",
		zap.String("exposure_store", cfg.Allocation.ExposureStore),
		zap.String("time_zone", loc.String()),
		zap.Duration("global_cooldown", cfg.Allocation.GlobalCooldown),
	)

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to initialize token service")
	}
	logger.Info("Token service initialized", zap.String("issuer", cfg.JWT.Issuer), zap.String("audience", cfg.JWT.Audience))

	// Initialize flows
	bannerFlow := businessflow.NewBannerFlow(itemRepo, businessRepo, catalog, pipeline, businessflow.BannerFlowConfig{
		MaxItemsLimit:      cfg.Allocation.MaxItemsLimit,
		CandidatePoolLimit: cfg.Allocation.CandidatePoolLimit,
	}, logger)
	rankingFlow := businessflow.NewRankingFlow(businessRepo, catalog, ranker, businessflow.RankingFlowConfig{
		CandidateLimit: cfg.Allocation.CandidatePoolLimit,
		Location:       loc,
	}, logger)

	// Initialize handlers and router
	promotionHandler := handlers.NewPromotionHandler(bannerFlow, logger)
	businessHandler := handlers.NewBusinessHandler(rankingFlow, logger)
	authMiddleware := middleware.NewAuthMiddleware(tokenService, cfg.Security.ViewerIDHeader)

	appRouter := router.NewFiberRouter(cfg, promotionHandler, businessHandler, authMiddleware, logger)
	appRouter.RegisterHealthProbe("database", func() (string, bool) {
		sqlDB, err := db.DB()
		if err != nil {
			return "unavailable", false
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			return "unreachable", false
		}
		return "ok", true
	})
	if rc != nil {
		appRouter.RegisterHealthProbe("redis", func() (string, bool) {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := rc.Ping(pingCtx).Err(); err != nil {
				return "unreachable", false
			}
			return "ok", true
		})
	}
	appRouter.RegisterHealthProbe("plan_catalog", func() (string, bool) {
		if catalog.Len() == 0 {
			return "empty", false
		}
		return strconv.Itoa(catalog.Len()) + " plans", true
	})

	// Background workers
	if cfg.Scheduler.ExposurePrunerEnabled {
		pruner := scheduler.NewExposurePruner(history, scheduler.ExposurePrunerConfig{
			Interval:  cfg.Scheduler.ExposurePruneInterval,
			Timeout:   cfg.Scheduler.ExposurePruneTimeout,
			Retention: cfg.Allocation.ExposureRetention,
		}, logger)
		stopFuncs = append(stopFuncs, pruner.Start(ctx))
	}

	return &Application{
		router:    appRouter,
		config:    cfg,
		logger:    logger,
		stopFuncs: stopFuncs,
	}, nil
}

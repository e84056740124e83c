// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/dulcemap/dulcemap-api/app/dto"
	"github.com/dulcemap/dulcemap-api/app/handlers"
	"github.com/dulcemap/dulcemap-api/app/middleware"
	"github.com/dulcemap/dulcemap-api/config"
	"github.com/dulcemap/dulcemap-api/docs"
	"github.com/dulcemap/dulcemap-api/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// HealthProbe reports the state of one dependency for the health endpoint
type HealthProbe func() (string, bool)

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app              *fiber.App
	cfg              *config.ProductionConfig
	logger           *zap.Logger
	promotionHandler handlers.PromotionHandlerInterface
	businessHandler  handlers.BusinessHandlerInterface
	authMiddleware   *middleware.AuthMiddleware
	probes           map[string]HealthProbe
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	promotionHandler handlers.PromotionHandlerInterface,
	businessHandler handlers.BusinessHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
	logger *zap.Logger,
) *FiberRouter {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &FiberRouter{
		cfg:              cfg,
		logger:           logger,
		promotionHandler: promotionHandler,
		businessHandler:  businessHandler,
		authMiddleware:   authMiddleware,
		probes:           make(map[string]HealthProbe),
	}

	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1024 * 1024
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "DulceMap API",
		ServerHeader: "DulceMap",
		ErrorHandler: r.errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
	})

	return r
}

// RegisterHealthProbe adds a dependency check to the health endpoint
func (r *FiberRouter) RegisterHealthProbe(name string, probe HealthProbe) {
	r.probes[name] = probe
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info("Setting up routes")

	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		path := r.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	api.Get("/health", r.healthCheck)

	if env := r.cfg.Deployment.Environment; env == "development" || env == "local" {
		api.Get("/swagger.json", r.serveSwaggerJSON)
		r.app.Get("/swagger", r.serveSwaggerUI)
		r.logger.Info("API documentation enabled", zap.String("environment", env))
	}

	api.Use(limiter.New(limiter.Config{
		Max:        r.rateLimit(),
		Expiration: r.rateWindow(),
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	promotions := api.Group("/promotions", r.authMiddleware.OptionalAuth())
	promotions.Post("/select", r.promotionHandler.SelectPromotions)
	promotions.Post("/:uuid/click", r.promotionHandler.RecordClick)

	businesses := api.Group("/businesses")
	businesses.Get("/ranking", r.businessHandler.RankBusinesses)
	businesses.Get("/of-the-day", r.businessHandler.BusinessOfTheDay)

	// Admin endpoints get a tighter budget on top of the global one
	admin := api.Group("/admin", limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}), r.authMiddleware.Authenticate(), middleware.RequireRole(utils.ViewerRoleAdmin))
	admin.Put("/promotions/:uuid/status", r.promotionHandler.UpdateStatus)
	admin.Get("/promotions/report", r.promotionHandler.ExportReport)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured successfully")
}

func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: generateRequestID,
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'self'; img-src 'self' data: https:; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline' https://unpkg.com; frame-ancestors 'none';",
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	maxAge := r.cfg.Security.CORSMaxAge
	if maxAge <= 0 {
		maxAge = utils.CORSMaxAge
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           maxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				// xlsx is already zipped
				return strings.HasSuffix(c.Path(), "/report")
			},
		}))
	}

	// Only the swagger document is cacheable; everything else is per viewer
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || c.Path() != "/api/v1/swagger.json"
		},
		Expiration:   30 * time.Minute,
		CacheControl: true,
	}))

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/health" || c.Path() == r.cfg.Metrics.Path
			},
		}))
	}

	if r.cfg.Server.EnableMetrics {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				zap.Any("error", e),
				zap.String("request_id", requestid.FromContext(c)),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
			)
		},
	}))
}

func (r *FiberRouter) rateLimit() int {
	if r.cfg.Security.GlobalRateLimit > 0 {
		return r.cfg.Security.GlobalRateLimit
	}
	return 600
}

func (r *FiberRouter) rateWindow() time.Duration {
	if r.cfg.Security.RateLimitWindow > 0 {
		return r.cfg.Security.RateLimitWindow
	}
	return time.Minute
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	components := make(map[string]string, len(r.probes))
	healthy := true
	for name, probe := range r.probes {
		state, ok := probe()
		components[name] = state
		healthy = healthy && ok
	}

	status := fiber.StatusOK
	message := "Service is healthy"
	overall := "ok"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		message = "Service is degraded"
		overall = "degraded"
	}

	return c.Status(status).JSON(dto.APIResponse{
		Success: healthy,
		Message: message,
		Data: fiber.Map{
			"status":     overall,
			"timestamp":  utils.UTCNow().Unix(),
			"version":    r.cfg.Deployment.Version,
			"service":    "dulcemap-api",
			"components": components,
		},
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(docs.SwaggerInfo.ReadDoc())
}

func (r *FiberRouter) serveSwaggerUI(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(swaggerUIPage)
}

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>DulceMap API - Swagger UI</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({ url: '/api/v1/swagger.json', dom_id: '#swagger-ui', deepLinking: true });
        };
    </script>
</body>
</html>`

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errCode = "REQUEST_ERROR"
		}
	}

	r.logger.Error("request failed",
		zap.Int("status", code),
		zap.Error(err),
		zap.String("request_id", requestid.FromContext(c)),
	)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

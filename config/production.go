// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // ALLOCATION_TIME_ZONE must resolve in minimal images

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Deployment DeploymentConfig `json:"deployment"`
	Allocation AllocationConfig `json:"allocation"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnableMetrics     bool          `json:"enable_metrics"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`

	// Content Security
	XFrameOptions  string `json:"x_frame_options"`
	ReferrerPolicy string `json:"referrer_policy"`

	// ViewerIDHeader carries the anonymous viewer identity when no token is sent
	ViewerIDHeader string `json:"viewer_id_header"`
}

type JWTConfig struct {
	SecretKey      string        `json:"secret_key"`
	PrivateKey     string        `json:"private_key"`  // RSA private key in PEM format
	PublicKey      string        `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys     bool          `json:"use_rsa_keys"` // Whether to use RSA keys instead of secret key
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

type LoggingConfig struct {
	Level            string `json:"level"`  // debug, info, warn, error
	Format           string `json:"format"` // json, console
	Output           string `json:"output"` // stdout, file, both
	FilePath         string `json:"file_path"`
	MaxSize          int    `json:"max_size"` // MB
	MaxBackups       int    `json:"max_backups"`
	MaxAge           int    `json:"max_age"` // days
	Compress         bool   `json:"compress"`
	EnableCaller     bool   `json:"enable_caller"`
	EnableStacktrace bool   `json:"enable_stacktrace"`
	EnableAccessLog  bool   `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	Provider    string        `json:"provider"` // redis, memory
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

type DeploymentConfig struct {
	Domain      string `json:"domain"`
	APIDomain   string `json:"api_domain"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// Exposure store providers
const (
	ExposureStoreMemory   = "memory"
	ExposureStoreRedis    = "redis"
	ExposureStorePostgres = "postgres"
)

// AllocationConfig tunes banner allocation and business ranking
type AllocationConfig struct {
	GlobalCooldown     time.Duration `json:"global_cooldown"`
	DefaultMaxItems    int           `json:"default_max_items"`
	MaxItemsLimit      int           `json:"max_items_limit"`
	CandidatePoolLimit int           `json:"candidate_pool_limit"`
	ExposureStore      string        `json:"exposure_store"` // memory, redis, postgres
	ExposureIOTimeout  time.Duration `json:"exposure_io_timeout"`
	ExposureRetention  time.Duration `json:"exposure_retention"`
	TimeZone           string        `json:"time_zone"`
	PlanSeedFile       string        `json:"plan_seed_file"`
	PolicyFile         string        `json:"policy_file"`
	PlanCacheTTL       time.Duration `json:"plan_cache_ttl"`
}

type SchedulerConfig struct {
	ExposurePrunerEnabled bool          `json:"exposure_pruner_enabled"`
	ExposurePruneInterval time.Duration `json:"exposure_prune_interval"`
	ExposurePruneTimeout  time.Duration `json:"exposure_prune_timeout"`
}

// LoadProductionConfig loads and validates configuration from environment variables.
// A .env file in the working directory is read when present; real environment
// variables take precedence over it.
func LoadProductionConfig() (*ProductionConfig, error) {
	v, err := newEnvReader(".env")
	if err != nil {
		return nil, err
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            v.String("DB_HOST", "localhost"),
			Port:            v.Int("DB_PORT", 5432),
			Name:            v.String("DB_NAME", "dulcemap"),
			User:            v.String("DB_USER", "postgres"),
			Password:        v.String("DB_PASSWORD", ""),
			SSLMode:         v.String("DB_SSL_MODE", "require"),
			MaxOpenConns:    v.Int("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    v.Int("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: v.Duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: v.Duration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    v.Bool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   v.Duration("DB_SLOW_QUERY_TIME", 1*time.Second),
			AutoMigrate:     v.Bool("DB_AUTO_MIGRATE", false),
		},
		Server: ServerConfig{
			Host:              v.String("SERVER_HOST", "0.0.0.0"),
			Port:              v.Int("SERVER_PORT", 8080),
			ReadTimeout:       v.Duration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      v.Duration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       v.Duration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   v.Duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:    v.Duration("SERVER_REQUEST_TIMEOUT", 10*time.Second),
			BodyLimit:         v.Int("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
			EnableMetrics:     v.Bool("SERVER_ENABLE_METRICS", true),
			TrustedProxies:    v.StringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       v.String("SERVER_PROXY_HEADER", "X-Real-IP"),
			EnableCompression: v.Bool("SERVER_ENABLE_COMPRESSION", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:   v.StringSlice("CORS_ALLOWED_ORIGINS", []string{"https://dulcemap.com", "https://admin.dulcemap.com"}),
			AllowedMethods:   v.StringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "OPTIONS"}),
			AllowedHeaders:   v.StringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Viewer-ID"}),
			AllowCredentials: v.Bool("CORS_ALLOW_CREDENTIALS", true),
			CORSMaxAge:       v.Int("CORS_MAX_AGE", 86400),
			GlobalRateLimit:  v.Int("GLOBAL_RATE_LIMIT", 600),
			RateLimitWindow:  v.Duration("RATE_LIMIT_WINDOW", 1*time.Minute),
			XFrameOptions:    v.String("X_FRAME_OPTIONS", "DENY"),
			ReferrerPolicy:   v.String("REFERRER_POLICY", "strict-origin-when-cross-origin"),
			ViewerIDHeader:   v.String("VIEWER_ID_HEADER", "X-Viewer-ID"),
		},
		JWT: JWTConfig{
			SecretKey:      v.String("JWT_SECRET_KEY", ""),
			PrivateKey:     v.String("JWT_PRIVATE_KEY", ""),
			PublicKey:      v.String("JWT_PUBLIC_KEY", ""),
			UseRSAKeys:     v.Bool("JWT_USE_RSA_KEYS", false),
			AccessTokenTTL: v.Duration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			Issuer:         v.String("JWT_ISSUER", "dulcemap"),
			Audience:       v.String("JWT_AUDIENCE", "dulcemap-api"),
		},
		Logging: LoggingConfig{
			Level:            v.String("LOG_LEVEL", "info"),
			Format:           v.String("LOG_FORMAT", "json"),
			Output:           v.String("LOG_OUTPUT", "stdout"),
			FilePath:         v.String("LOG_FILE_PATH", "/var/log/dulcemap/app.log"),
			MaxSize:          v.Int("LOG_MAX_SIZE", 100),
			MaxBackups:       v.Int("LOG_MAX_BACKUPS", 10),
			MaxAge:           v.Int("LOG_MAX_AGE", 30),
			Compress:         v.Bool("LOG_COMPRESS", true),
			EnableCaller:     v.Bool("LOG_ENABLE_CALLER", true),
			EnableStacktrace: v.Bool("LOG_ENABLE_STACKTRACE", false),
			EnableAccessLog:  v.Bool("LOG_ENABLE_ACCESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: v.Bool("METRICS_ENABLED", true),
			Path:    v.String("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:     v.Bool("CACHE_ENABLED", true),
			Provider:    v.String("CACHE_PROVIDER", "redis"),
			RedisURL:    v.String("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     v.Int("CACHE_REDIS_DB", 0),
			RedisPrefix: v.String("CACHE_REDIS_PREFIX", "dulcemap:"),
			DefaultTTL:  v.Duration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Deployment: DeploymentConfig{
			Domain:      v.String("DOMAIN", "dulcemap.com"),
			APIDomain:   v.String("API_DOMAIN", "api.dulcemap.com"),
			Environment: v.String("APP_ENV", "production"),
			Version:     v.String("VERSION", "1.0.0"),
			CommitHash:  v.String("COMMIT_HASH", "unknown"),
			BuildTime:   v.String("BUILD_TIME", "unknown"),
		},
		Allocation: AllocationConfig{
			GlobalCooldown:     v.Duration("ALLOCATION_GLOBAL_COOLDOWN", 420*time.Second),
			DefaultMaxItems:    v.Int("ALLOCATION_DEFAULT_MAX_ITEMS", 3),
			MaxItemsLimit:      v.Int("ALLOCATION_MAX_ITEMS_LIMIT", 10),
			CandidatePoolLimit: v.Int("ALLOCATION_CANDIDATE_POOL_LIMIT", 0),
			ExposureStore:      v.String("ALLOCATION_EXPOSURE_STORE", ExposureStoreRedis),
			ExposureIOTimeout:  v.Duration("ALLOCATION_EXPOSURE_IO_TIMEOUT", 150*time.Millisecond),
			ExposureRetention:  v.Duration("ALLOCATION_EXPOSURE_RETENTION", 30*24*time.Hour),
			TimeZone:           v.String("ALLOCATION_TIME_ZONE", "America/Mexico_City"),
			PlanSeedFile:       v.String("ALLOCATION_PLAN_SEED_FILE", "config/plans.yaml"),
			PolicyFile:         v.String("ALLOCATION_POLICY_FILE", ""),
			PlanCacheTTL:       v.Duration("ALLOCATION_PLAN_CACHE_TTL", 5*time.Minute),
		},
		Scheduler: SchedulerConfig{
			ExposurePrunerEnabled: v.Bool("SCHEDULER_EXPOSURE_PRUNER_ENABLED", true),
			ExposurePruneInterval: v.Duration("SCHEDULER_EXPOSURE_PRUNE_INTERVAL", 1*time.Hour),
			ExposurePruneTimeout:  v.Duration("SCHEDULER_EXPOSURE_PRUNE_TIMEOUT", 5*time.Minute),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envReader resolves configuration keys from the process environment and an
// optional dotenv file. Unparseable values fall back to the default.
type envReader struct {
	v *viper.Viper
}

func newEnvReader(envFile string) (*envReader, error) {
	v := viper.New()
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, eris.Wrap(err, "config: read .env file")
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, eris.Wrap(err, "config: stat .env file")
		}
	}

	return &envReader{v: v}, nil
}

func (r *envReader) lookup(key string) (string, bool) {
	if !r.v.IsSet(key) {
		return "", false
	}
	value := strings.TrimSpace(r.v.GetString(key))
	return value, value != ""
}

func (r *envReader) String(key, defaultValue string) string {
	if value, ok := r.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (r *envReader) Int(key string, defaultValue int) int {
	if value, ok := r.lookup(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (r *envReader) Bool(key string, defaultValue bool) bool {
	if value, ok := r.lookup(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (r *envReader) Duration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := r.lookup(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (r *envReader) StringSlice(key string, defaultValue []string) []string {
	if value, ok := r.lookup(key); ok {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errs []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errs = append(errs, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errs = append(errs, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errs = append(errs, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Validate JWT configuration
	if cfg.JWT.UseRSAKeys {
		if cfg.JWT.PrivateKey == "" || cfg.JWT.PublicKey == "" {
			errs = append(errs, "JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required when JWT_USE_RSA_KEYS is set")
		}
	} else if len(cfg.JWT.SecretKey) < 32 {
		errs = append(errs, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.JWT.Issuer == "" {
		errs = append(errs, "JWT_ISSUER is required")
	}
	if cfg.JWT.Audience == "" {
		errs = append(errs, "JWT_AUDIENCE is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errs = append(errs, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errs = append(errs, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		if !slices.Contains(validLevels, cfg.Logging.Level) {
			errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errs = append(errs, "LOG_FILE_PATH is required when LOG_OUTPUT writes to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errs = append(errs, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Validate allocation configuration
	if cfg.Allocation.GlobalCooldown <= 0 {
		errs = append(errs, "ALLOCATION_GLOBAL_COOLDOWN must be positive")
	}
	if cfg.Allocation.DefaultMaxItems <= 0 {
		errs = append(errs, "ALLOCATION_DEFAULT_MAX_ITEMS must be positive")
	}
	if cfg.Allocation.MaxItemsLimit < cfg.Allocation.DefaultMaxItems {
		errs = append(errs, "ALLOCATION_MAX_ITEMS_LIMIT must not be lower than ALLOCATION_DEFAULT_MAX_ITEMS")
	}
	if cfg.Allocation.CandidatePoolLimit < 0 {
		errs = append(errs, "ALLOCATION_CANDIDATE_POOL_LIMIT must not be negative")
	}
	switch cfg.Allocation.ExposureStore {
	case ExposureStoreMemory, ExposureStorePostgres:
	case ExposureStoreRedis:
		if !cfg.Cache.Enabled || cfg.Cache.RedisURL == "" {
			errs = append(errs, "ALLOCATION_EXPOSURE_STORE=redis requires CACHE_ENABLED and CACHE_REDIS_URL")
		}
	default:
		errs = append(errs, "ALLOCATION_EXPOSURE_STORE must be one of: memory, redis, postgres")
	}
	if cfg.Allocation.ExposureIOTimeout <= 0 {
		errs = append(errs, "ALLOCATION_EXPOSURE_IO_TIMEOUT must be positive")
	}
	if cfg.Allocation.ExposureRetention < 24*time.Hour {
		errs = append(errs, "ALLOCATION_EXPOSURE_RETENTION must be at least 24h")
	}
	if _, err := time.LoadLocation(cfg.Allocation.TimeZone); err != nil {
		errs = append(errs, fmt.Sprintf("ALLOCATION_TIME_ZONE is invalid: %v", err))
	}

	// Validate scheduler configuration
	if cfg.Scheduler.ExposurePrunerEnabled && cfg.Scheduler.ExposurePruneInterval <= 0 {
		errs = append(errs, "SCHEDULER_EXPOSURE_PRUNE_INTERVAL must be positive")
	}

	// Return validation errors if any
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadProductionConfigDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET_KEY", testSecret)

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 420*time.Second, cfg.Allocation.GlobalCooldown)
	assert.Equal(t, 3, cfg.Allocation.DefaultMaxItems)
	assert.Equal(t, 0, cfg.Allocation.CandidatePoolLimit)
	assert.Equal(t, ExposureStoreRedis, cfg.Allocation.ExposureStore)
	assert.Equal(t, 150*time.Millisecond, cfg.Allocation.ExposureIOTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.Allocation.ExposureRetention)
	assert.Equal(t, "X-Viewer-ID", cfg.Security.ViewerIDHeader)
	assert.True(t, cfg.Scheduler.ExposurePrunerEnabled)
}

func TestLoadProductionConfigEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	env := `
# local overrides
DB_PASSWORD=from-file
DB_PORT=6543
JWT_SECRET_KEY="` + testSecret + `"
ALLOCATION_EXPOSURE_STORE=memory
ALLOCATION_DEFAULT_MAX_ITEMS=5
SERVER_TRUSTED_PROXIES=10.0.0.1, 10.0.0.2
SERVER_READ_TIMEOUT=not-a-duration
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))
	t.Setenv("DB_PORT", "7000")

	cfg, err := LoadProductionConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Database.Password)
	assert.Equal(t, 7000, cfg.Database.Port, "process environment wins over .env")
	assert.Equal(t, testSecret, cfg.JWT.SecretKey)
	assert.Equal(t, ExposureStoreMemory, cfg.Allocation.ExposureStore)
	assert.Equal(t, 5, cfg.Allocation.DefaultMaxItems)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Server.TrustedProxies)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout, "invalid values fall back to defaults")
}

func TestLoadProductionConfigRejectsInvalid(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("JWT_SECRET_KEY", "short")

	_, err := LoadProductionConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD is required")
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY must be at least 32 characters long")
}

func validConfig() *ProductionConfig {
	return &ProductionConfig{
		Database: DatabaseConfig{Host: "localhost", Port: 5432, Name: "dulcemap", User: "postgres", Password: "secret"},
		Server:   ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second},
		JWT:      JWTConfig{SecretKey: testSecret, AccessTokenTTL: time.Hour, Issuer: "dulcemap", Audience: "dulcemap-api"},
		Logging:  LoggingConfig{Level: "info", Output: "stdout"},
		Cache:    CacheConfig{Enabled: true, Provider: "redis", RedisURL: "redis://localhost:6379"},
		Allocation: AllocationConfig{
			GlobalCooldown:    420 * time.Second,
			DefaultMaxItems:   3,
			MaxItemsLimit:     10,
			ExposureStore:     ExposureStoreRedis,
			ExposureIOTimeout: 100 * time.Millisecond,
			ExposureRetention: 30 * 24 * time.Hour,
			TimeZone:          "UTC",
		},
		Scheduler: SchedulerConfig{ExposurePrunerEnabled: true, ExposurePruneInterval: time.Hour},
	}
}

func TestValidateProductionConfig(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ProductionConfig)
		expectError string
	}{
		{"valid", func(*ProductionConfig) {}, ""},
		{"unknown exposure store", func(c *ProductionConfig) { c.Allocation.ExposureStore = "dynamo" }, "ALLOCATION_EXPOSURE_STORE must be one of"},
		{"redis store without cache", func(c *ProductionConfig) { c.Cache.Enabled = false }, "requires CACHE_ENABLED"},
		{"postgres store without cache", func(c *ProductionConfig) {
			c.Cache.Enabled = false
			c.Allocation.ExposureStore = ExposureStorePostgres
		}, ""},
		{"bad time zone", func(c *ProductionConfig) { c.Allocation.TimeZone = "Mars/Olympus" }, "ALLOCATION_TIME_ZONE is invalid"},
		{"short retention", func(c *ProductionConfig) { c.Allocation.ExposureRetention = time.Hour }, "ALLOCATION_EXPOSURE_RETENTION"},
		{"negative pool cap", func(c *ProductionConfig) { c.Allocation.CandidatePoolLimit = -1 }, "ALLOCATION_CANDIDATE_POOL_LIMIT"},
		{"limit below default", func(c *ProductionConfig) { c.Allocation.MaxItemsLimit = 2 }, "ALLOCATION_MAX_ITEMS_LIMIT"},
		{"bad log level", func(c *ProductionConfig) { c.Logging.Level = "verbose" }, "LOG_LEVEL must be one of"},
		{"rsa without keys", func(c *ProductionConfig) { c.JWT.UseRSAKeys = true }, "JWT_PRIVATE_KEY and JWT_PUBLIC_KEY"},
		{"pruner without interval", func(c *ProductionConfig) { c.Scheduler.ExposurePruneInterval = 0 }, "SCHEDULER_EXPOSURE_PRUNE_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateProductionConfig(cfg)
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
}

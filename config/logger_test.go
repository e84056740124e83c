package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { zap.ReplaceGlobals(zap.NewNop()) })

	t.Run("stdout json", func(t *testing.T) {
		logger, err := InitLogger(LoggingConfig{Level: "debug", Format: "json", Output: "stdout"})
		require.NoError(t, err)
		assert.Same(t, logger, zap.L())
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	})

	t.Run("rotated file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		logger, err := InitLogger(LoggingConfig{Level: "warn", Format: "json", Output: "file", FilePath: path, MaxSize: 1})
		require.NoError(t, err)

		logger.Info("dropped")
		logger.Warn("kept", zap.String("viewer_id", "v-1"))
		require.NoError(t, logger.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"kept"`)
		assert.Contains(t, string(data), `"viewer_id":"v-1"`)
		assert.NotContains(t, string(data), "dropped")
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := InitLogger(LoggingConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("invalid output", func(t *testing.T) {
		_, err := InitLogger(LoggingConfig{Level: "info", Output: "syslog"})
		assert.Error(t, err)
	})
}

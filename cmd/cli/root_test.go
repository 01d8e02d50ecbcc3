package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/portsweep/internal/config"
	"github.com/anstrom/portsweep/internal/logging"
)

// resetViper gives a test a clean viper instance reading PORTSWEEP_* variables.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	t.Cleanup(viper.Reset)
}

func TestApplyOverrides(t *testing.T) {
	t.Run("environment overrides defaults", func(t *testing.T) {
		resetViper(t)
		t.Setenv("PORTSWEEP_SCANNING_POOL_SIZE", "42")
		t.Setenv("PORTSWEEP_SCANNING_PROBE_TIMEOUT", "250ms")
		t.Setenv("PORTSWEEP_API_PORT", "9999")
		t.Setenv("PORTSWEEP_DATABASE_ENABLED", "true")
		t.Setenv("PORTSWEEP_LOGGING_LEVEL", "debug")

		cfg := config.Default()
		applyOverrides(cfg)

		assert.Equal(t, 42, cfg.Scanning.PoolSize)
		assert.Equal(t, 250*time.Millisecond, cfg.Scanning.ProbeTimeout)
		assert.Equal(t, 9999, cfg.API.Port)
		assert.True(t, cfg.Database.Enabled)
		assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
	})

	t.Run("unset keys leave config untouched", func(t *testing.T) {
		resetViper(t)

		cfg := config.Default()
		applyOverrides(cfg)

		assert.Equal(t, config.Default(), cfg)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("file then environment", func(t *testing.T) {
		resetViper(t)
		path := filepath.Join(t.TempDir(), "portsweep.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scanning:\n  pool_size: 7\napi:\n  port: 8181\n"), 0o600))
		viper.SetConfigFile(path)
		require.NoError(t, viper.ReadInConfig())
		t.Setenv("PORTSWEEP_API_PORT", "8282")

		cfg, err := loadConfig()
		require.NoError(t, err)

		assert.Equal(t, 7, cfg.Scanning.PoolSize)
		assert.Equal(t, 8282, cfg.API.Port)
	})

	t.Run("invalid override fails validation", func(t *testing.T) {
		resetViper(t)
		t.Setenv("PORTSWEEP_SCANNING_POOL_SIZE", "0")

		_, err := loadConfig()
		assert.Error(t, err)
	})
}

func TestSetVersion(t *testing.T) {
	prev := [3]string{version, commit, buildTime}
	t.Cleanup(func() { SetVersion(prev[0], prev[1], prev[2]) })

	SetVersion("1.2.3", "abc123", "2024-05-01")

	assert.Equal(t, "1.2.3 (commit: abc123, built: 2024-05-01)", rootCmd.Version)
}

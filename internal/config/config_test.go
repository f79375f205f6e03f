package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "lojamap.db", cfg.Store.Path)
	assert.Equal(t, "https://nominatim.openstreetmap.org/search", cfg.Geocoder.BaseURL)
	assert.Equal(t, "lojamap/1.0", cfg.Geocoder.UserAgent)
	assert.Equal(t, 1100, cfg.Geocoder.DelayMs)
	assert.Equal(t, "https://viacep.com.br", cfg.ViaCEP.BaseURL)
	assert.Equal(t, 250, cfg.ViaCEP.DelayMs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/lojamap
log:
  level: debug
  format: console
geocoder:
  delay_ms: 1500
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 1500, cfg.Geocoder.DelayMs)
	// Defaults still apply for unset values
	assert.Equal(t, 250, cfg.ViaCEP.DelayMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LOJAMAP_STORE_DRIVER", "postgres")
	t.Setenv("LOJAMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("LOJAMAP_GEOCODER_DELAY_MS", "2000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Geocoder.DelayMs)
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	cfg := &Config{
		Store:    StoreConfig{Driver: "sqlite"},
		Geocoder: GeocoderConfig{UserAgent: "lojamap/1.0"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path")

	cfg.Store.Path = "lojamap.db"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := &Config{
		Store:    StoreConfig{Driver: "postgres"},
		Geocoder: GeocoderConfig{UserAgent: "lojamap/1.0"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &Config{
		Store:    StoreConfig{Driver: "mysql"},
		Geocoder: GeocoderConfig{UserAgent: "lojamap/1.0"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidate_NegativeDelays(t *testing.T) {
	cfg := &Config{
		Store:    StoreConfig{Driver: "sqlite", Path: "x.db"},
		Geocoder: GeocoderConfig{UserAgent: "lojamap/1.0", DelayMs: -1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geocoder.delay_ms")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

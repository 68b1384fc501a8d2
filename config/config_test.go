package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops-forecast/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "clickhouse", cfg.Source.Kind)
	assert.Equal(t, "finops", cfg.Source.ClickHouse.Database)
	assert.Equal(t, 900, cfg.Cache.ForecastTTL)
	assert.Equal(t, 90, cfg.Forecast.DefaultForecastDays)
	assert.Equal(t, 180, cfg.Forecast.DefaultHistoricalDays)
	assert.Equal(t, "forecaster", cfg.Forecast.Model)
	assert.Equal(t, "multiplicative", cfg.Forecast.SeasonalityMode)
}

func TestLoad_YAMLOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
server:
  port: 9090
source:
  kind: postgres
  postgres_dsn: postgres://finops:pw@db:5432/billing
cache:
  forecast_ttl_seconds: 600
forecast:
  default_forecast_days: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Source.Kind)
	assert.Equal(t, 600, cfg.Cache.ForecastTTL)
	assert.Equal(t, 30, cfg.Forecast.DefaultForecastDays)

	// Untouched keys keep their defaults.
	assert.Equal(t, 60, cfg.Server.WriteTimeout)
	assert.Equal(t, 180, cfg.Forecast.DefaultHistoricalDays)
}

func TestLoad_EnvOverridesCredentials(t *testing.T) {
	t.Setenv("CLICKHOUSE_PASSWORD", "ch-secret")
	t.Setenv("AUTH_USER", "ops")
	t.Setenv("AUTH_PASS", "ops-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ch-secret", cfg.Source.ClickHouse.Password)
	assert.Equal(t, "ops", cfg.Server.AuthUser)
	assert.Equal(t, "ops-secret", cfg.Server.AuthPass)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_RejectsUnknownSourceKind(t *testing.T) {
	path := writeConfig(t, "source:\n  kind: bigtable\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfig))
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	path := writeConfig(t, "source:\n  kind: postgres\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfig))

	t.Setenv("POSTGRES_DSN", "postgres://finops@db:5432/billing")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://finops@db:5432/billing", cfg.Source.PostgresDSN)
}

func TestValidate_PortRange(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownModel(t *testing.T) {
	cfg := Default()
	cfg.Forecast.Model = "prophet"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfig))

	cfg.Forecast.Model = "holtwinters"
	require.NoError(t, cfg.Validate())
}

func TestValidate_HorizonsMustBePositive(t *testing.T) {
	cfg := Default()
	cfg.Forecast.DefaultHistoricalDays = -1
	require.Error(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 900*time.Second, cfg.ForecastCacheTTL())
	assert.Equal(t, 30*time.Second, cfg.ReadTimeoutDuration())
	assert.Equal(t, 60*time.Second, cfg.WriteTimeoutDuration())
}

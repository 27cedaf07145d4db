package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapboxToken = "pk.test-token"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Motor_Vehicle_Collisions_2019_Crashes.csv", cfg.CollisionsPath)
	assert.Equal(t, "Median Incomes.csv", cfg.IncomesPath)
	assert.Equal(t, "Potholes.csv", cfg.PotholesPath)
	assert.Equal(t, "zipcode_map.geojson", cfg.BoundaryPath)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 5, cfg.TopZips)
	assert.Equal(t, 10, cfg.TopFactors)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Minute, cfg.RunTimeout)
	assert.Empty(t, cfg.StatusAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, BackfillNone, cfg.ZipBackfill)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.InDelta(t, 10, cfg.MapboxRateLimit, 0.0001)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "collision-analysis-reports", cfg.KafkaReportTopic)
	assert.Empty(t, cfg.PushgatewayURL)
	assert.True(t, cfg.WorkbookEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("COLLISIONS_CSV", "data/crashes.csv")
	t.Setenv("INCOMES_CSV", "data/incomes.csv")
	t.Setenv("POTHOLES_CSV", "data/potholes.csv")
	t.Setenv("BOUNDARY_GEOJSON", "data/zips.geojson")
	t.Setenv("OUTPUT_DIR", "out")
	t.Setenv("TOP_N", "3")
	t.Setenv("TOP_FACTORS", "8")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("RUN_TIMEOUT", "30s")
	t.Setenv("STATUS_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("ZIP_BACKFILL", "mapbox")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("MAPBOX_RATE_LIMIT", "2.5")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_REPORT_TOPIC", "custom-reports")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("WORKBOOK_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/crashes.csv", cfg.CollisionsPath)
	assert.Equal(t, "data/incomes.csv", cfg.IncomesPath)
	assert.Equal(t, "data/potholes.csv", cfg.PotholesPath)
	assert.Equal(t, "data/zips.geojson", cfg.BoundaryPath)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 3, cfg.TopZips)
	assert.Equal(t, 8, cfg.TopFactors)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.RunTimeout)
	assert.Equal(t, ":9090", cfg.StatusAddr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, BackfillMapbox, cfg.ZipBackfill)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.InDelta(t, 2.5, cfg.MapboxRateLimit, 0.0001)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "custom-reports", cfg.KafkaReportTopic)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
	assert.False(t, cfg.WorkbookEnabled)
}

func TestLoad_InvalidRunTimeout(t *testing.T) {
	t.Setenv("RUN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RUN_TIMEOUT")
}

func TestLoad_NegativeRunTimeout(t *testing.T) {
	t.Setenv("RUN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RUN_TIMEOUT")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidTopN(t *testing.T) {
	t.Setenv("TOP_N", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOP_N")
}

func TestLoad_InvalidTopFactors(t *testing.T) {
	t.Setenv("TOP_FACTORS", "ten")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOP_FACTORS")
}

func TestLoad_InvalidMapboxTimeout(t *testing.T) {
	t.Setenv("MAPBOX_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TIMEOUT")
}

func TestLoad_InvalidMapboxRateLimit(t *testing.T) {
	t.Setenv("MAPBOX_RATE_LIMIT", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_RATE_LIMIT")
}

func TestLoad_InvalidBackfill(t *testing.T) {
	t.Setenv("ZIP_BACKFILL", "census")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ZIP_BACKFILL")
}

func TestLoad_MapboxBackfillWithoutToken(t *testing.T) {
	t.Setenv("ZIP_BACKFILL", "mapbox")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_BoundaryBackfillNeedsNoToken(t *testing.T) {
	t.Setenv("ZIP_BACKFILL", "boundary")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackfillBoundary, cfg.ZipBackfill)
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_FORMAT")
}

func TestLoad_InvalidMapboxCacheSizeFallsBack(t *testing.T) {
	t.Setenv("MAPBOX_CACHE_SIZE", "-3")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

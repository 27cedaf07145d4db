package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Zip backfill modes.
const (
	BackfillNone     = "none"
	BackfillBoundary = "boundary"
	BackfillMapbox   = "mapbox"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	CollisionsPath string
	IncomesPath    string
	PotholesPath   string
	BoundaryPath   string
	OutputDir      string

	TopZips    int
	TopFactors int

	LogLevel   string
	LogFormat  string
	RunTimeout time.Duration

	// Status server, disabled when StatusAddr is empty.
	StatusAddr      string
	ShutdownTimeout time.Duration

	ZipBackfill string

	// Mapbox geocoding configuration, used when ZipBackfill is "mapbox".
	MapboxToken     string
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxRateLimit float64 // requests per second

	// Optional report sinks.
	KafkaBrokers     []string
	KafkaReportTopic string
	PushgatewayURL   string
	WorkbookEnabled  bool
}

// KafkaEnabled reports whether the Kafka report sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	runTimeout, err := parsePositiveDuration("RUN_TIMEOUT", "10m")
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	mapboxRate, err := parsePositiveFloat("MAPBOX_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}

	topZips, err := parsePositiveInt("TOP_N", 5)
	if err != nil {
		return nil, err
	}

	topFactors, err := parsePositiveInt("TOP_FACTORS", 10)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		CollisionsPath: sharedcfg.EnvOrDefault("COLLISIONS_CSV", "Motor_Vehicle_Collisions_2019_Crashes.csv"),
		IncomesPath:    sharedcfg.EnvOrDefault("INCOMES_CSV", "Median Incomes.csv"),
		PotholesPath:   sharedcfg.EnvOrDefault("POTHOLES_CSV", "Potholes.csv"),
		BoundaryPath:   sharedcfg.EnvOrDefault("BOUNDARY_GEOJSON", "zipcode_map.geojson"),
		OutputDir:      sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),

		TopZips:    topZips,
		TopFactors: topFactors,

		LogLevel:   sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:  sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		RunTimeout: runTimeout,

		StatusAddr:      os.Getenv("STATUS_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		ZipBackfill: sharedcfg.EnvOrDefault("ZIP_BACKFILL", BackfillNone),

		MapboxToken:     os.Getenv("MAPBOX_TOKEN"),
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
		MapboxRateLimit: mapboxRate,

		KafkaBrokers:     brokers,
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "collision-analysis-reports"),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
		WorkbookEnabled:  sharedcfg.EnvOrDefault("WORKBOOK_ENABLED", "true") == "true",
	}

	switch cfg.ZipBackfill {
	case BackfillNone, BackfillBoundary, BackfillMapbox:
	default:
		return nil, errors.New("invalid ZIP_BACKFILL: want none, boundary or mapbox")
	}
	if cfg.ZipBackfill == BackfillMapbox && cfg.MapboxToken == "" {
		return nil, errors.New("ZIP_BACKFILL is mapbox but MAPBOX_TOKEN is not set")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, errors.New("invalid LOG_FORMAT: want json or text")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return f, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the aggregation service.
type Config struct {
	Environment string
	HTTPAddr    string

	Database DatabaseConfig
	Tracing  TracingConfig
	Bootstrap BootstrapConfig

	// SnapshotInterval is the nominal collector cadence. It is the
	// multiplier that converts snapshot counts into hours.
	SnapshotInterval time.Duration

	// RunStaleAfter is how old a RUNNING aggregation run may be before
	// it is treated as abandoned and eligible for retry.
	RunStaleAfter time.Duration

	MetricsVersion int
}

type DatabaseConfig struct {
	DSN string
}

type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

type BootstrapConfig struct {
	SeedSampleParks bool
}

// CurrentMetricsVersion tags aggregate rows produced by the windowed
// query pipeline. Version 1 was the retired fixed-hour bucket pipeline.
const CurrentMetricsVersion = 2

// Load reads configuration from the environment, consulting a local
// .env file when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		Database: DatabaseConfig{
			DSN: getEnv("DATABASE_URL", "postgres://localhost:5432/hallofshame?sslmode=disable"),
		},
		Tracing: TracingConfig{
			Enabled:          getBool("TRACING_ENABLED", false),
			ExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", ""),
			ExporterProtocol: getEnv("OTEL_EXPORTER_PROTOCOL", "http"),
			SamplingRatio:    getFloat("OTEL_SAMPLING_RATIO", 1.0),
		},
		Bootstrap: BootstrapConfig{
			SeedSampleParks: getBool("SEED_SAMPLE_PARKS", false),
		},
		SnapshotInterval: time.Duration(getInt("SNAPSHOT_INTERVAL_MINUTES", 5)) * time.Minute,
		RunStaleAfter:    time.Duration(getInt("RUN_STALE_AFTER_MINUTES", 120)) * time.Minute,
		MetricsVersion:   getInt("METRICS_VERSION", CurrentMetricsVersion),
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

package config

import (
	"os"
	"strconv"
	"time"

	"geoanomaly/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Grid      GridConfig
	Analysis  AnalysisConfig
	Audit     AuditConfig
	Lifecycle LifecycleConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	Host    string
	Port    int
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// GridConfig holds grid-build settings. Threshold constants are carried
// explicitly rather than read from ambient state so tests can vary them.
type GridConfig struct {
	// DefaultResolution in degrees.
	DefaultResolution float64
	// SweepResolutions used by multi-resolution runs.
	SweepResolutions []float64
	// RareCategory gets the window-index rarity bonus when present.
	RareCategory string
	// RarityBonus multiplier applied when the rare category is present.
	RarityBonus float64
}

// AnalysisConfig holds cooccurrence engine settings.
type AnalysisConfig struct {
	// ShuffleCount is the Monte Carlo simulation count per pairing.
	ShuffleCount int
	// ZThreshold above which a pairing counts as a window effect.
	ZThreshold float64
	// MaxIterations caps total simulation work, since shuffle count is
	// configuration controlled.
	MaxIterations int
	// Timeout bounds one analysis run.
	Timeout time.Duration
	// Seed for deterministic shuffle streams.
	Seed int64
}

// AuditConfig holds gaming-auditor settings.
type AuditConfig struct {
	// DriftThreshold is the score increase that, with zero new evidence,
	// raises a rigor_drift flag.
	DriftThreshold float64
	// IterationThreshold is the attempt number at which excessive_iteration
	// fires (the Nth and every later attempt).
	IterationThreshold int
	// RiskCap bounds the summed risk score.
	RiskCap int
}

// LifecycleConfig holds prediction lifecycle thresholds.
type LifecycleConfig struct {
	// MinQuality filters which results qualify for aggregation.
	MinQuality float64
	// SampleFloor is the total sample size required before a terminal
	// transition is considered.
	SampleFloor int
	// ConfirmSupport and RefuteSupport bound supportPercent.
	ConfirmSupport float64
	RefuteSupport  float64
	// SignificanceLevel bounds the averaged p-value.
	SignificanceLevel float64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Database:  loadDatabaseConfig(),
		Server:    loadServerConfig(),
		Grid:      DefaultGridConfig(),
		Analysis:  DefaultAnalysisConfig(),
		Audit:     DefaultAuditConfig(),
		Lifecycle: DefaultLifecycleConfig(),
	}

	cfg.Analysis.ShuffleCount = getEnvIntOrDefault("SHUFFLE_COUNT", cfg.Analysis.ShuffleCount)
	cfg.Analysis.Seed = int64(getEnvIntOrDefault("ANALYSIS_SEED", int(cfg.Analysis.Seed)))
	cfg.Grid.DefaultResolution = getEnvFloatOrDefault("GRID_RESOLUTION", cfg.Grid.DefaultResolution)

	if cfg.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}
	return cfg, nil
}

// DefaultGridConfig returns the grid defaults used in production.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		DefaultResolution: 1.0,
		SweepResolutions:  []float64{0.25, 0.5, 1.0, 2.0},
		RareCategory:      "missing_person",
		RarityBonus:       1.2,
	}
}

// DefaultAnalysisConfig returns the cooccurrence defaults.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		ShuffleCount:  1000,
		ZThreshold:    2.0,
		MaxIterations: 100000,
		Timeout:       10 * time.Minute,
		Seed:          42,
	}
}

// DefaultAuditConfig returns the gaming-auditor defaults.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		DriftThreshold:     1.5,
		IterationThreshold: 10,
		RiskCap:            100,
	}
}

// DefaultLifecycleConfig returns the prediction lifecycle defaults.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		MinQuality:        7.0,
		SampleFloor:       500,
		ConfirmSupport:    0.8,
		RefuteSupport:     0.2,
		SignificanceLevel: 0.05,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:     os.Getenv("DATABASE_URL"),
		Host:    getEnvOrDefault("DB_HOST", ""),
		Port:    getEnvIntOrDefault("DB_PORT", 5432),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string // Base directory for the run database and reports (always absolute)
	GoldenSetPath string // Path to the golden query set JSON file
	ReportDir     string // Directory for rendered report artifacts

	PipelineURL     string        // Base URL of the pipeline service under test
	PipelineTimeout time.Duration // Per-query timeout for pipeline calls
	Workers         int           // Bounded worker pool size (1 = serial, the observed baseline)

	ErrorCeiling float64 // Gate ceiling on average relative error (fraction, e.g. 0.15)

	FredAPIKey string // Risk-free-rate provider key; empty triggers the hardcoded fallback rates

	GitCommit string // Commit the run is keyed by (CI-provided, may be empty locally)
	Schedule  string // Cron expression for scheduled full runs in serve mode

	LogLevel string
	Port     int
	DevMode  bool

	Artifact *ArtifactConfig
}

// ArtifactConfig holds S3-compatible artifact upload configuration.
// Uploads are disabled unless bucket and credentials are all present.
type ArtifactConfig struct {
	Endpoint        string // S3-compatible endpoint (e.g. Cloudflare R2)
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string // Key prefix within the bucket
}

// Enabled reports whether artifact uploads are configured.
func (a *ArtifactConfig) Enabled() bool {
	return a != nil && a.Bucket != "" && a.AccessKeyID != "" && a.SecretAccessKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic:
	// 1. Check VERIFIND_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path
	// 4. Ensure directory exists
	dataDir := getEnv("VERIFIND_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Commit keying: prefer an explicit GIT_COMMIT, fall back to the
	// variables common CI providers set.
	commit := getEnv("GIT_COMMIT", "")
	if commit == "" {
		commit = getEnv("GITHUB_SHA", "")
	}
	if commit == "" {
		commit = getEnv("CI_COMMIT_SHA", "")
	}

	cfg := &Config{
		DataDir:         absDataDir,
		GoldenSetPath:   getEnv("GOLDEN_SET_PATH", filepath.Join(absDataDir, "golden_queries.json")),
		ReportDir:       getEnv("REPORT_DIR", filepath.Join(absDataDir, "reports")),
		PipelineURL:     getEnv("PIPELINE_URL", "http://localhost:8000"),
		PipelineTimeout: time.Duration(getEnvAsInt("PIPELINE_TIMEOUT_SECONDS", 120)) * time.Second,
		Workers:         getEnvAsInt("EVAL_WORKERS", 1),
		ErrorCeiling:    getEnvAsFloat("ERROR_CEILING", 0.15),
		FredAPIKey:      getEnv("FRED_API_KEY", ""),
		GitCommit:       commit,
		Schedule:        getEnv("RUN_SCHEDULE", "0 0 2 * * *"), // 02:00 daily (cron with seconds field)
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("GO_PORT", 8001),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		Artifact:        loadArtifactConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadArtifactConfig() *ArtifactConfig {
	return &ArtifactConfig{
		Endpoint:        getEnv("R2_ENDPOINT", ""),
		Bucket:          getEnv("R2_BUCKET", ""),
		AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		Prefix:          getEnv("R2_PREFIX", "verifind-runs"),
	}
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("EVAL_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.ErrorCeiling <= 0 || c.ErrorCeiling >= 1 {
		return fmt.Errorf("ERROR_CEILING must be a fraction in (0, 1), got %v", c.ErrorCeiling)
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT_SECONDS must be positive")
	}
	// FRED_API_KEY is optional; the rate source falls back to hardcoded
	// annual rates, and the active source is recorded on every run summary.
	return nil
}

// RunsDBPath returns the path of the run store database.
func (c *Config) RunsDBPath() string {
	return filepath.Join(c.DataDir, "runs.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

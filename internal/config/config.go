// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always resolved to an absolute path)
	Port     int
	LogLevel string
	DevMode  bool

	// EvalWorkers is the number of concurrent workers used for batch
	// candidate evaluation. Evaluations are independent, so this only
	// bounds resource usage, never correctness.
	EvalWorkers int

	// Severity thresholds partition the normalized distance-to-target
	// into pass / minor_miss / major_miss. They must satisfy
	// 0 <= pass <= minor so the partition has no gaps.
	SeverityPassThreshold  float64
	SeverityMinorThreshold float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory:
	// 1. Check WHEELHOUSE_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path and ensure it exists
	dataDir := getEnv("WHEELHOUSE_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                absDataDir,
		Port:                   getEnvAsInt("WHEELHOUSE_PORT", 8010),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		EvalWorkers:            getEnvAsInt("EVAL_WORKERS", 4),
		SeverityPassThreshold:  getEnvAsFloat("SEVERITY_PASS_THRESHOLD", 0.05),
		SeverityMinorThreshold: getEnvAsFloat("SEVERITY_MINOR_THRESHOLD", 0.20),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is internally consistent
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	if c.EvalWorkers < 1 {
		return fmt.Errorf("eval workers must be at least 1, got %d", c.EvalWorkers)
	}

	if c.SeverityPassThreshold < 0 {
		return fmt.Errorf("severity pass threshold must be >= 0, got %f", c.SeverityPassThreshold)
	}

	if c.SeverityMinorThreshold < c.SeverityPassThreshold {
		return fmt.Errorf(
			"severity minor threshold (%f) must be >= pass threshold (%f)",
			c.SeverityMinorThreshold, c.SeverityPassThreshold,
		)
	}

	return nil
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

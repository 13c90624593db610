// Package config provides application configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment variables or .env file.
// Configuration priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv           string // Application environment (dev, staging, prod)
	LogLevel         string // zerolog level name (trace, debug, info, warn, error)
	LogFormat        string // json or console
	CatalogPath      string // Catalog document (.yaml, .yml or .json)
	RulePassLimit    int    // Maximum rule engine passes per run
	BatchConcurrency int    // Concurrent evaluations in a batch
	MetricsFile      string // Prometheus textfile output; empty disables it
}

const (
	minPassLimit = 1
	maxPassLimit = 100
)

// Load reads configuration from environment variables and .env file (if present).
// Environment variables take precedence over .env file values.
// Returns a Config struct with all values populated (either from env or defaults).
//
// Load does not validate; call Validate before use.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigFile(envFile) // Optional; silently ignored if file doesn't exist
	viperInstance.SetConfigType("env")
	_ = viperInstance.ReadInConfig() // Ignore error - .env is optional
	viperInstance.AutomaticEnv()     // Read from environment variables

	setConfigDefaults(viperInstance)

	return &Config{
		AppEnv:           viperInstance.GetString("APP_ENV"),
		LogLevel:         strings.ToLower(viperInstance.GetString("LOG_LEVEL")),
		LogFormat:        strings.ToLower(viperInstance.GetString("LOG_FORMAT")),
		CatalogPath:      viperInstance.GetString("CATALOG_PATH"),
		RulePassLimit:    viperInstance.GetInt("RULE_PASS_LIMIT"),
		BatchConcurrency: viperInstance.GetInt("BATCH_CONCURRENCY"),
		MetricsFile:      viperInstance.GetString("METRICS_FILE"),
	}, nil
}

// setConfigDefaults sets default values for all configuration options.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CATALOG_PATH", "catalog.yaml")
	v.SetDefault("RULE_PASS_LIMIT", 10)
	v.SetDefault("BATCH_CONCURRENCY", 4)
	v.SetDefault("METRICS_FILE", "")
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration field
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks the loaded values.
//
// Validation Rules:
//  1. LogFormat must be "json" or "console"
//  2. LogLevel must be a zerolog level name
//  3. CatalogPath must be non-empty
//  4. RulePassLimit must be within 1..100
//  5. BatchConcurrency must be at least 1
//
// Returns nil or a ValidationError describing the first failure.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return ValidationError{
			Field:   "LOG_FORMAT",
			Message: fmt.Sprintf("must be 'json' or 'console', got '%s'", c.LogFormat),
		}
	}

	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("unknown level '%s'", c.LogLevel),
		}
	}

	if c.CatalogPath == "" {
		return ValidationError{
			Field:   "CATALOG_PATH",
			Message: "catalog path cannot be empty",
		}
	}

	if c.RulePassLimit < minPassLimit || c.RulePassLimit > maxPassLimit {
		return ValidationError{
			Field:   "RULE_PASS_LIMIT",
			Message: fmt.Sprintf("must be between %d and %d, got %d", minPassLimit, maxPassLimit, c.RulePassLimit),
		}
	}

	if c.BatchConcurrency < 1 {
		return ValidationError{
			Field:   "BATCH_CONCURRENCY",
			Message: fmt.Sprintf("must be at least 1, got %d", c.BatchConcurrency),
		}
	}

	return nil
}

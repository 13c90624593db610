package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var allKeys = []string{
	"APP_ENV", "LOG_LEVEL", "LOG_FORMAT", "CATALOG_PATH",
	"RULE_PASS_LIMIT", "BATCH_CONCURRENCY", "METRICS_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		if old, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, old) })
		}
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := load(filepath.Join(t.TempDir(), ".env"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "dev" {
		t.Errorf("Expected AppEnv='dev', got '%s'", cfg.AppEnv)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel='info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected LogFormat='json', got '%s'", cfg.LogFormat)
	}
	if cfg.CatalogPath != "catalog.yaml" {
		t.Errorf("Expected CatalogPath='catalog.yaml', got '%s'", cfg.CatalogPath)
	}
	if cfg.RulePassLimit != 10 {
		t.Errorf("Expected RulePassLimit=10, got %d", cfg.RulePassLimit)
	}
	if cfg.BatchConcurrency != 4 {
		t.Errorf("Expected BatchConcurrency=4, got %d", cfg.BatchConcurrency)
	}
	if cfg.MetricsFile != "" {
		t.Errorf("Expected MetricsFile='', got '%s'", cfg.MetricsFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("CATALOG_PATH", "/etc/configurator/catalog.json")
	t.Setenv("RULE_PASS_LIMIT", "25")
	t.Setenv("BATCH_CONCURRENCY", "8")
	t.Setenv("METRICS_FILE", "/var/lib/node_exporter/configurator.prom")

	cfg, err := load(filepath.Join(t.TempDir(), ".env"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.AppEnv != "test" {
		t.Errorf("Expected AppEnv='test', got '%s'", cfg.AppEnv)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel lower-cased to 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.LogFormat != "console" {
		t.Errorf("Expected LogFormat='console', got '%s'", cfg.LogFormat)
	}
	if cfg.CatalogPath != "/etc/configurator/catalog.json" {
		t.Errorf("unexpected CatalogPath '%s'", cfg.CatalogPath)
	}
	if cfg.RulePassLimit != 25 {
		t.Errorf("Expected RulePassLimit=25, got %d", cfg.RulePassLimit)
	}
	if cfg.BatchConcurrency != 8 {
		t.Errorf("Expected BatchConcurrency=8, got %d", cfg.BatchConcurrency)
	}
	if cfg.MetricsFile != "/var/lib/node_exporter/configurator.prom" {
		t.Errorf("unexpected MetricsFile '%s'", cfg.MetricsFile)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CATALOG_PATH=from-file.yaml\nRULE_PASS_LIMIT=7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RULE_PASS_LIMIT", "9")

	cfg, err := load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.CatalogPath != "from-file.yaml" {
		t.Errorf("Expected CatalogPath from .env, got '%s'", cfg.CatalogPath)
	}
	if cfg.RulePassLimit != 9 {
		t.Errorf("Expected environment to win over .env, got %d", cfg.RulePassLimit)
	}
}

func TestLoad_MissingEnvFileIsAcceptable(t *testing.T) {
	clearEnv(t)
	if _, err := load(filepath.Join(t.TempDir(), "does-not-exist.env")); err != nil {
		t.Fatalf("missing .env should not fail: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			AppEnv:           "dev",
			LogLevel:         "info",
			LogFormat:        "json",
			CatalogPath:      "catalog.yaml",
			RulePassLimit:    10,
			BatchConcurrency: 4,
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"empty catalog", func(c *Config) { c.CatalogPath = "" }, "CATALOG_PATH"},
		{"zero passes", func(c *Config) { c.RulePassLimit = 0 }, "RULE_PASS_LIMIT"},
		{"too many passes", func(c *Config) { c.RulePassLimit = 101 }, "RULE_PASS_LIMIT"},
		{"upper pass bound", func(c *Config) { c.RulePassLimit = 100 }, ""},
		{"zero concurrency", func(c *Config) { c.BatchConcurrency = 0 }, "BATCH_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Fatalf("Field = %s, want %s", verr.Field, tt.wantField)
			}
		})
	}
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration: named catalog profiles.
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile points at a catalog and, optionally, the product evaluated by default.
type Profile struct {
	Catalog string `yaml:"catalog"`
	Product string `yaml:"product,omitempty"`
}

// configPathOverride lets tests redirect the config file.
var configPathOverride string

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	if configPathOverride != "" {
		return configPathOverride, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".configurator", "config.yaml"), nil
}

// LoadConfig loads the configuration from file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{Profiles: make(map[string]Profile)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ProfileNames returns the configured profile names, sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveProfile picks the catalog and default product to use.
// Priority: --catalog flag > named profile (or the default profile) > fallback.
// An explicitly named profile that does not exist is an error.
func ResolveProfile(profileName, catalogFlag, fallback string) (Profile, error) {
	if catalogFlag != "" {
		return Profile{Catalog: catalogFlag}, nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return Profile{}, err
	}

	name := profileName
	if name == "" {
		name = cfg.DefaultProfile
	}
	if name != "" {
		p, ok := cfg.Profiles[name]
		if ok && p.Catalog != "" {
			return p, nil
		}
		if profileName != "" {
			return Profile{}, fmt.Errorf("profile '%s' not found in config", profileName)
		}
	}

	return Profile{Catalog: fallback}, nil
}

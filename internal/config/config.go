package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/solcial/pulse/internal/constants"
)

// Config represents the application configuration
type Config struct {
	ListenPort        int    `yaml:"listen_port"`
	PrefsPath         string `yaml:"prefs_path"`
	CORSAllowedOrigin string `yaml:"cors_allowed_origin"`
	LogLevel          string `yaml:"log_level"`

	APITimeout time.Duration `yaml:"api_timeout"`

	// Analytics result cache
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`

	// Rate limiting for the HTTP API
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`

	Services Services `yaml:"services"`
}

// Services contains configuration for the external collaborators
type Services struct {
	Provider ProviderConfig `yaml:"provider"`
	Exporter ExporterConfig `yaml:"exporter"`
}

// ProviderConfig contains the analytics data provider configuration
type ProviderConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// ExporterConfig contains the export service configuration
type ExporterConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		ListenPort:         8690,
		PrefsPath:          "/appdata/data/pulse-prefs.db",
		CORSAllowedOrigin:  "http://localhost:8690",
		LogLevel:           "info",
		APITimeout:         constants.DefaultAPITimeoutSeconds * time.Second,
		CacheTTL:           constants.DefaultCacheTTL,
		CacheMaxEntries:    constants.DefaultCacheMaxEntries,
		RateLimitPerSecond: constants.DefaultRequestsPerSecond,
		RateLimitBurst:     constants.DefaultBurstSize,
		Services: Services{
			Provider: ProviderConfig{URL: "https://analytics.solcial.net"},
			Exporter: ExporterConfig{URL: "https://exports.solcial.net"},
		},
	}
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port must be between 1 and 65535")
	}

	if c.PrefsPath == "" {
		return fmt.Errorf("prefs_path is required")
	}

	if c.APITimeout < time.Second {
		return fmt.Errorf("api_timeout must be at least 1 second")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}

	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("cache_max_entries must be at least 1")
	}

	if c.RateLimitPerSecond <= 0 {
		return fmt.Errorf("rate_limit_per_second must be positive")
	}

	if c.RateLimitBurst < 1 {
		return fmt.Errorf("rate_limit_burst must be at least 1")
	}

	if c.Services.Provider.URL == "" {
		return fmt.Errorf("services.provider.url is required")
	}

	if c.Services.Exporter.URL == "" {
		return fmt.Errorf("services.exporter.url is required")
	}

	// Validate CORS origin if provided
	if c.CORSAllowedOrigin != "" && c.CORSAllowedOrigin != "*" {
		if !strings.HasPrefix(c.CORSAllowedOrigin, "http://") && !strings.HasPrefix(c.CORSAllowedOrigin, "https://") {
			return fmt.Errorf("cors_allowed_origin must start with http:// or https:// (or be * for all origins)")
		}
	}

	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of trace, debug, info, warn, error")
	}

	return nil
}

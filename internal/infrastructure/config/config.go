// Package config provides 12-factor configuration for the shell.
//
// Configuration loads from environment variables with sensible defaults;
// an optional YAML profile supplies the application endpoints and trusted
// domain allow-list, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all shell configuration.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Push      PushConfig
	Storage   StorageConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds the local control server settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// AppConfig identifies the hosted web application and its trust set.
// Fields carry no envconfig defaults so a YAML profile survives the
// environment pass; missing values are filled by fillDefaults.
type AppConfig struct {
	// URL is the application entry point the surface loads first.
	URL string `envconfig:"APP_URL" yaml:"url"`
	// Domains are the application's own hosts (app domain, API domain).
	Domains []string `envconfig:"APP_DOMAINS" yaml:"domains"`
	// TrustedDomains is the third-party allow-list navigation stays
	// internal for (payment processor, OAuth provider).
	TrustedDomains []string `envconfig:"APP_TRUSTED_DOMAINS" yaml:"trusted_domains"`
	// Platform and Version identify this shell build to the hosted app.
	Platform string `envconfig:"APP_PLATFORM" yaml:"platform"`
	Version  string `envconfig:"APP_VERSION" yaml:"version"`
}

// PushConfig holds the push-registration endpoint.
type PushConfig struct {
	Endpoint string `envconfig:"PUSH_ENDPOINT" yaml:"endpoint"`
}

// StorageConfig holds the on-disk store location.
type StorageConfig struct {
	Dir string `envconfig:"STORAGE_DIR" yaml:"dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds control-server rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// profile is the YAML shape of a shell profile file.
type profile struct {
	App     AppConfig     `yaml:"app"`
	Push    PushConfig    `yaml:"push"`
	Storage StorageConfig `yaml:"storage"`
}

// Load loads configuration, layering in order of increasing precedence:
// built-in defaults, the YAML profile at path (empty path skips it), then
// environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if err := applyProfile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.fillDefaults()
	return &cfg, nil
}

// LoadOrDefault loads configuration or falls back to defaults.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		cfg = &Config{}
		cfg.fillDefaults()
	}
	return cfg
}

func (c *Config) fillDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8090"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.App.URL == "" {
		c.App.URL = "https://app.example.com"
	}
	if len(c.App.Domains) == 0 {
		c.App.Domains = []string{"app.example.com", "api.app.example.com"}
	}
	if c.App.Platform == "" {
		c.App.Platform = "desktop"
	}
	if c.App.Version == "" {
		c.App.Version = "0.0.0-dev"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = defaultStorageDir()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func applyProfile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var p profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("failed to parse profile %s: %w", path, err)
	}

	cfg.App = p.App
	cfg.Push = p.Push
	cfg.Storage = p.Storage
	return nil
}

func defaultStorageDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".webshell"
	}
	return filepath.Join(base, "webshell")
}

// Package config loads the overlay service and engine configuration from
// YAML, with environment overrides for deployment-specific settings.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/shopoverlay/decorate"
	"github.com/hazyhaar/shopoverlay/horosafe"
	"github.com/hazyhaar/shopoverlay/internal/browser"
)

// Config is the top-level configuration shared by overlayd and overlayctl.
type Config struct {
	Server  ServerConfig           `yaml:"server"`
	Engine  EngineConfig           `yaml:"engine"`
	Locator decorate.LocatorConfig `yaml:"locator"`
	Browser BrowserConfig          `yaml:"browser"`
	Log     LogConfig              `yaml:"log"`
}

// ServerConfig controls the ConfigStore service.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	DBPath        string        `yaml:"db_path"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	WatchInterval time.Duration `yaml:"watch_interval"`
	// EventRetentionDays prunes the business event log. 0 keeps everything.
	EventRetentionDays int `yaml:"event_retention_days"`
}

// EngineConfig tunes the decoration engine.
type EngineConfig struct {
	APIBase            string        `yaml:"api_base"`
	ListingDelay       time.Duration `yaml:"listing_delay"`
	ListingConcurrency int           `yaml:"listing_concurrency"`
	ObserveMutations   bool          `yaml:"observe_mutations"`
	Debounce           time.Duration `yaml:"debounce"`
	// FetchTimeout bounds each descriptor fetch. 0 means no timeout.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// BrowserConfig controls Chrome for overlayctl decorate.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Stealth          bool          `yaml:"stealth"`
	Headless         *bool         `yaml:"headless"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	NavTimeout       time.Duration `yaml:"nav_timeout"`
}

// LogConfig selects the level and the components muted below warn.
type LogConfig struct {
	Level string   `yaml:"level"`
	Mute  []string `yaml:"mute"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads a YAML configuration file, applies defaults then the
// OVERLAY_* environment overrides, and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8420"
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = "overlay.db"
	}
	if c.Server.CacheTTL <= 0 {
		c.Server.CacheTTL = 30 * time.Second
	}
	if c.Server.WatchInterval <= 0 {
		c.Server.WatchInterval = time.Second
	}
	if c.Engine.ListingDelay <= 0 {
		c.Engine.ListingDelay = time.Second
	}
	if c.Engine.Debounce <= 0 {
		c.Engine.Debounce = 250 * time.Millisecond
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OVERLAY_DB"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("OVERLAY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("OVERLAY_API"); v != "" {
		c.Engine.APIBase = v
	}
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.APIBase != "" {
		if err := horosafe.ValidateBaseURL(c.Engine.APIBase); err != nil {
			errs = append(errs, fmt.Errorf("engine.api_base: %w", err))
		}
	}
	if c.Engine.ListingConcurrency < 0 {
		errs = append(errs, errors.New("engine.listing_concurrency: must be >= 0"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// DecorateConfig returns the scheduler configuration.
func (c *Config) DecorateConfig() decorate.Config {
	return decorate.Config{
		ListingDelay:       c.Engine.ListingDelay,
		ListingConcurrency: c.Engine.ListingConcurrency,
		ObserveMutations:   c.Engine.ObserveMutations,
		Debounce:           c.Engine.Debounce,
		Locator:            c.Locator,
	}
}

// BrowserOptions returns the browser configuration.
func (c *Config) BrowserOptions(logger *slog.Logger) browser.Config {
	return browser.Config{
		RemoteURL:        c.Browser.Remote,
		Headless:         c.Browser.Headless,
		Stealth:          c.Browser.Stealth,
		ResourceBlocking: c.Browser.ResourceBlocking,
		NavTimeout:       c.Browser.NavTimeout,
		Logger:           logger,
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
}

// Package config loads CLI configuration from a TOML file with environment
// variable overrides (HRMS_* keys).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the full CLI configuration.
type Config struct {
	API    APIConfig    `toml:"api"`
	Redis  RedisConfig  `toml:"redis"`
	Loader LoaderConfig `toml:"loader"`
	Cache  CacheConfig  `toml:"cache"`
	Log    LogConfig    `toml:"log"`
}

// APIConfig configures the HRMS backend connection.
type APIConfig struct {
	BaseURL  string `toml:"base_url"`
	Resource string `toml:"resource"`
	Token    string `toml:"token"`
	TenantID string `toml:"tenant_id"`
	// Timeout is a Go duration string, e.g. "30s".
	Timeout string `toml:"timeout"`
}

// RedisConfig configures the optional Redis connection used for the
// snapshot cache and shared rate limit state.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// LoaderConfig configures progressive loading behavior.
type LoaderConfig struct {
	AutoFetchRemaining bool   `toml:"auto_fetch_remaining"`
	DefaultDelay       string `toml:"default_delay"`
}

// CacheConfig configures snapshot caching.
type CacheConfig struct {
	SnapshotTTL string `toml:"snapshot_ttl"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			Resource: "/api/daily-attendance/",
			Timeout:  "30s",
		},
		Loader: LoaderConfig{
			AutoFetchRemaining: true,
			DefaultDelay:       "500ms",
		},
		Cache: CacheConfig{
			SnapshotTTL: "10m",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration: defaults, then the TOML file at path (skipped if
// path is empty), then HRMS_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv applies HRMS_* environment variable overrides.
func applyEnv(cfg *Config) {
	setString(&cfg.API.BaseURL, "HRMS_BASE_URL")
	setString(&cfg.API.Resource, "HRMS_RESOURCE")
	setString(&cfg.API.Token, "HRMS_TOKEN")
	setString(&cfg.API.TenantID, "HRMS_TENANT_ID")
	setString(&cfg.API.Timeout, "HRMS_TIMEOUT")

	setString(&cfg.Redis.Addr, "HRMS_REDIS_ADDR")
	setString(&cfg.Redis.Password, "HRMS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HRMS_REDIS_DB")

	setBool(&cfg.Loader.AutoFetchRemaining, "HRMS_AUTO_FETCH_REMAINING")
	setString(&cfg.Loader.DefaultDelay, "HRMS_DEFAULT_DELAY")

	setString(&cfg.Cache.SnapshotTTL, "HRMS_SNAPSHOT_TTL")

	setString(&cfg.Log.Level, "HRMS_LOG_LEVEL")
	setBool(&cfg.Log.Pretty, "HRMS_LOG_PRETTY")
}

// Validate checks required fields and duration formats.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required (or HRMS_BASE_URL)")
	}
	if c.API.Token == "" {
		return fmt.Errorf("api.token is required (or HRMS_TOKEN)")
	}
	for name, v := range map[string]string{
		"api.timeout":          c.API.Timeout,
		"loader.default_delay": c.Loader.DefaultDelay,
		"cache.snapshot_ttl":   c.Cache.SnapshotTTL,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: invalid duration %q", name, v)
		}
	}
	return nil
}

// Duration parses a duration field, falling back to def on empty input.
// Validate has already rejected malformed values.
func Duration(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// Package config loads the service configuration from an optional YAML file
// and environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the service configuration.
type Config struct {
	ListenAddr    string        `yaml:"listen_addr"`
	Backend       string        `yaml:"store_backend"`
	RedisURL      string        `yaml:"redis_connection_string"`
	SQLitePath    string        `yaml:"sqlite_path"`
	KeyPrefix     string        `yaml:"key_prefix"`
	PetName       string        `yaml:"pet_name"`
	Timezone      string        `yaml:"timezone"`
	RetentionDays int           `yaml:"history_retention_days"`
	Interval      time.Duration `yaml:"reminder_interval"`
	DeduperTTL    time.Duration `yaml:"deduper_ttl"`
	NotifyChannel string        `yaml:"notify_channel"`
	NotifyIcon    string        `yaml:"notify_icon"`
	Debug         bool          `yaml:"debug"`
	LogFormat     string        `yaml:"log_format"` // "text" or "json"
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ListenAddr:    ":8080",
		Backend:       BackendSQLite,
		SQLitePath:    "petcare.db",
		KeyPrefix:     "petcare:",
		PetName:       "Luna",
		RetentionDays: 365,
		Interval:      time.Minute,
		DeduperTTL:    24 * time.Hour,
		NotifyChannel: "petcare:notifications",
		NotifyIcon:    "/cat-icon.png",
		LogFormat:     "text",
	}
}

// Load reads CONFIG_FILE when set and applies environment overrides.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LISTEN_ADDR":             &c.ListenAddr,
		"STORE_BACKEND":           &c.Backend,
		"REDIS_CONNECTION_STRING": &c.RedisURL,
		"SQLITE_PATH":             &c.SQLitePath,
		"KEY_PREFIX":              &c.KeyPrefix,
		"PET_NAME":                &c.PetName,
		"TIMEZONE":                &c.Timezone,
		"NOTIFY_CHANNEL":          &c.NotifyChannel,
		"NOTIFY_ICON":             &c.NotifyIcon,
		"LOG_FORMAT":              &c.LogFormat,
	}
	for name, dst := range strs {
		if val, ok := lookup(name); ok {
			*dst = val
		}
	}
	if val, ok := lookup("HISTORY_RETENTION_DAYS"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("HISTORY_RETENTION_DAYS: %w", err)
		}
		c.RetentionDays = n
	}
	if val, ok := lookup("REMINDER_INTERVAL"); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("REMINDER_INTERVAL: %w", err)
		}
		c.Interval = d
	}
	if val, ok := lookup("DEDUPER_TTL"); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("DEDUPER_TTL: %w", err)
		}
		c.DeduperTTL = d
	}
	if val, ok := lookup("DEBUG"); ok {
		if dbg, err := strconv.ParseBool(val); err == nil {
			c.Debug = dbg
		}
	}
	return nil
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(c.Backend)
	switch c.Backend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite backend requires SQLITE_PATH")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis backend requires REDIS_CONNECTION_STRING")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("history retention must not be negative, got %d", c.RetentionDays)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("reminder interval must be positive, got %s", c.Interval)
	}
	if c.DeduperTTL <= 0 {
		return fmt.Errorf("deduper ttl must be positive, got %s", c.DeduperTTL)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone. Empty means host local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"streamcal/internal/tz"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the widget page and API.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`

	// Timezone is the IANA zone times are displayed in (e.g. "Europe/Bucharest").
	Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`

	// DefaultZone applies to calendar events that declare no zone and
	// appear in a feed without X-WR-TIMEZONE. Empty means UTC.
	DefaultZone string `yaml:"default_zone" toml:"default_zone" json:"default_zone"`

	// Locale picks the phrase table ("en", "ro").
	Locale string `yaml:"locale" toml:"locale" json:"locale"`

	// Hour12 is "auto", "true" or "false". Auto uses a 12-hour clock for
	// America/* and Canada/* display zones.
	Hour12 string `yaml:"hour12" toml:"hour12" json:"hour12"`

	// ScheduleURL is the calendar (ICS) feed with the stream schedule.
	ScheduleURL string `yaml:"schedule_url" toml:"schedule_url" json:"schedule_url"`

	// LiveURL returns {"live": bool, "platforms": {...}}. Empty disables the badge.
	LiveURL string `yaml:"live_url" toml:"live_url" json:"live_url"`

	// RefreshCron is a standard 5-field cron spec for re-fetching the feed.
	RefreshCron string `yaml:"refresh" toml:"refresh" json:"refresh"`

	// LivePollSeconds is the live badge poll interval.
	LivePollSeconds int `yaml:"live_poll_seconds" toml:"live_poll_seconds" json:"live_poll_seconds"`

	// ExpandedCount is how many streams the widget lists after the next one.
	ExpandedCount int `yaml:"expanded_count" toml:"expanded_count" json:"expanded_count"`

	// Policy is "weekly" (default) or "next-n".
	Policy string `yaml:"policy" toml:"policy" json:"policy"`

	// NextCount and HorizonDays parameterize the next-n policy.
	NextCount   int `yaml:"next_count" toml:"next_count" json:"next_count"`
	HorizonDays int `yaml:"horizon_days" toml:"horizon_days" json:"horizon_days"`

	// CacheDir stores the HTTP cache of the feed.
	CacheDir string `yaml:"cache_dir" toml:"cache_dir" json:"cache_dir"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen        = "127.0.0.1:8080"
	defaultTimezone      = "UTC"
	defaultLocale        = "en"
	defaultRefreshCron   = "*/15 * * * *"
	defaultLivePoll      = 10
	defaultExpandedCount = 3
	defaultPolicy        = "weekly"
	defaultNextCount     = 5
	defaultHorizonDays   = 14
	defaultCacheDir      = "./var/ics-cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          defaultListen,
		Timezone:        defaultTimezone,
		Locale:          defaultLocale,
		Hour12:          "auto",
		RefreshCron:     defaultRefreshCron,
		LivePollSeconds: defaultLivePoll,
		ExpandedCount:   defaultExpandedCount,
		Policy:          defaultPolicy,
		NextCount:       defaultNextCount,
		HorizonDays:     defaultHorizonDays,
		CacheDir:        defaultCacheDir,
		LogLevel:        "info",
	}
}

// Normalize fills in missing values and repairs invalid ones so that
// partially-filled or hand-edited files still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" || !tz.Known(c.Timezone) {
		c.Timezone = defaultTimezone
	}
	if c.DefaultZone != "" && !tz.Known(c.DefaultZone) {
		c.DefaultZone = ""
	}
	c.Locale = strings.ToLower(strings.TrimSpace(c.Locale))
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	switch strings.ToLower(c.Hour12) {
	case "true", "false", "auto":
		c.Hour12 = strings.ToLower(c.Hour12)
	default:
		c.Hour12 = "auto"
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LivePollSeconds <= 0 {
		c.LivePollSeconds = defaultLivePoll
	}
	if c.ExpandedCount < 0 {
		c.ExpandedCount = defaultExpandedCount
	}
	switch c.Policy {
	case "weekly", "next-n":
	default:
		c.Policy = defaultPolicy
	}
	if c.NextCount <= 0 {
		c.NextCount = defaultNextCount
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// isTOML reports whether path is read and written as TOML; everything else
// is YAML.
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load loads configuration from path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created as needed) and returned.
//   - Otherwise the file is decoded (TOML for .toml, YAML otherwise) and
//     normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, ".streamcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

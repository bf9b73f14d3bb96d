package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"calayout/internal/layout"
	appLog "calayout/internal/log"
	"calayout/internal/timeutil"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url" toml:"url"`
	// ID becomes the calendar id of every event from this source.
	ID string `yaml:"id" json:"id" toml:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name" toml:"name"`
}

// CalendarID returns the id events from this source are tagged with.
func (c ICSConfig) CalendarID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" toml:"username"`
	Password string `yaml:"password" json:"password" toml:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" toml:"listen"`

	// Timezone is the IANA timezone calendar dates are computed in.
	Timezone string `yaml:"timezone" json:"timezone" toml:"timezone"`

	// WeekStart is the first day of the week, "sunday" through "saturday".
	WeekStart string `yaml:"week_start" json:"week_start" toml:"week_start"`

	// View is the default grid granularity: month, week, workweek, 3day, 1day.
	View string `yaml:"view" json:"view" toml:"view"`

	// PrimaryCalendar is the calendar id that wins column ties.
	PrimaryCalendar string `yaml:"primary_calendar" json:"primary_calendar" toml:"primary_calendar"`

	// RefreshCron is a cron-style schedule for re-fetching ICS sources.
	RefreshCron string `yaml:"refresh" json:"refresh" toml:"refresh"`

	// HorizonDays / BackfillDays bound the recurrence expansion window
	// around now.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days" toml:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days" toml:"backfill_days"`

	// LogLevel is DEBUG, INFO, WARN or ERROR.
	LogLevel string `yaml:"log_level" json:"log_level" toml:"log_level"`

	// CacheDir holds per-source HTTP cache entries.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" toml:"cache_dir"`

	ICS []ICSConfig `yaml:"ics" json:"ics" toml:"ics"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty" toml:"basic_auth,omitempty"`

	Layout layout.Options `yaml:"layout" json:"layout" toml:"layout"`

	// loc caches the zone Normalize resolved for locName.
	loc     *time.Location
	locName string
}

var weekdays = map[string]int{
	"sunday":    0,
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "UTC",
		WeekStart:    "monday",
		View:         string(timeutil.ViewWeek),
		RefreshCron:  "*/15 * * * *",
		HorizonDays:  31,
		BackfillDays: 7,
		LogLevel:     "INFO",
		CacheDir:     "./var/ics-cache",
		ICS:          []ICSConfig{},
		Layout:       layout.DefaultOptions(),
		loc:          time.UTC,
		locName:      "UTC",
	}
}

// Normalize fills in missing or invalid values with defaults so partially
// filled files still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Warn("unknown timezone; using default", "timezone", c.Timezone, "default", def.Timezone, "err", err)
		c.Timezone = def.Timezone
		loc = def.loc
	}
	c.loc, c.locName = loc, c.Timezone
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if _, ok := weekdays[c.WeekStart]; !ok {
		c.WeekStart = def.WeekStart
	}
	if v, err := timeutil.ParseViewType(c.View); err != nil || c.View == "" {
		c.View = def.View
	} else {
		c.View = string(v)
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	c.Layout.Normalize()
}

// WeekStartOffset maps WeekStart to 0 (Sunday) .. 6 (Saturday).
func (c *Config) WeekStartOffset() int {
	return weekdays[c.WeekStart]
}

// ViewType returns View as a timeutil.ViewType.
func (c *Config) ViewType() timeutil.ViewType {
	v, err := timeutil.ParseViewType(c.View)
	if err != nil {
		return timeutil.ViewWeek
	}
	return v
}

// Location returns the zone for Timezone. Normalize resolves and caches it;
// a Timezone changed afterwards is loaded on each call, falling back to
// time.Local.
func (c *Config) Location() *time.Location {
	if c.loc != nil && c.locName == c.Timezone {
		return c.loc
	}
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load loads configuration from path. Files ending in .toml are decoded as
// TOML, everything else as YAML.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the file is decoded and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether running on defaults is acceptable.
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

func encode(path string, cfg *Config) ([]byte, error) {
	if !isTOML(path) {
		return yaml.Marshal(cfg)
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
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

	data, err := encode(path, cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calayout-config-*.tmp")
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

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

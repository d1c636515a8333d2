// Package config loads and validates the YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/soltauer/icalfeed/internal/source"
)

// Source type identifiers accepted in SourceConfig.Type.
const (
	SourceTypeRemote = "remote"
	SourceTypeCalDAV = "caldav"
)

// SourceConfig describes where a calendar's events come from.
type SourceConfig struct {
	// Type selects the backing source: "remote" (ICS subscription URL) or
	// "caldav" (CalDAV collection). Defaults to "remote".
	Type string `yaml:"type"`

	// URL is the ICS subscription endpoint or the CalDAV server endpoint.
	URL string `yaml:"url"`

	// Refresh is a cron-style schedule for remote subscription refresh
	// (e.g. "*/15 * * * *").
	Refresh string `yaml:"refresh,omitempty"`

	// Username/Password authenticate against a CalDAV server.
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// CalendarPath is the CalDAV collection path to query.
	CalendarPath string `yaml:"calendar_path,omitempty"`
}

// CalendarConfig declares one exported calendar.
type CalendarConfig struct {
	// EntityID is the identifier used in the feed URL, e.g. "calendar.holidays".
	EntityID string `yaml:"entity_id"`

	// Secret gates access to this calendar's feed.
	Secret string `yaml:"secret"`

	// Name is the display name written into the document. Defaults to EntityID.
	Name string `yaml:"name,omitempty"`

	Source SourceConfig `yaml:"source"`
}

// ColorConfig maps a summary substring to a display color. Rule order in
// the file is the match order.
type ColorConfig struct {
	Name   string `yaml:"name"`
	Colour string `yaml:"colour"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// URLPrefix is where the feed handler is mounted.
	URLPrefix string `yaml:"url_prefix"`

	// LookbackWeeks/LookaheadWeeks bound the event window of every feed.
	LookbackWeeks  int `yaml:"lookback_weeks"`
	LookaheadWeeks int `yaml:"lookahead_weeks"`

	Calendars []CalendarConfig `yaml:"calendars"`
	Colours   []ColorConfig    `yaml:"colours,omitempty"`
}

// Load reads, normalizes and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Normalize fills in missing values with defaults so that partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.URLPrefix == "" {
		c.URLPrefix = "/api/ics/"
	}
	if c.LookbackWeeks <= 0 {
		c.LookbackWeeks = 4
	}
	if c.LookaheadWeeks <= 0 {
		c.LookaheadWeeks = 52
	}
	for i := range c.Calendars {
		if c.Calendars[i].Name == "" {
			c.Calendars[i].Name = c.Calendars[i].EntityID
		}
		if c.Calendars[i].Source.Type == "" {
			c.Calendars[i].Source.Type = SourceTypeRemote
		}
	}
}

// Validate checks the configuration for errors the rest of the program
// relies on being absent.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Calendars))
	for _, cal := range c.Calendars {
		if cal.EntityID == "" {
			return fmt.Errorf("calendar with empty entity_id")
		}
		if seen[cal.EntityID] {
			return fmt.Errorf("duplicate calendar entity_id %q", cal.EntityID)
		}
		seen[cal.EntityID] = true

		if cal.Secret == "" {
			return fmt.Errorf("calendar %q has no secret", cal.EntityID)
		}

		switch cal.Source.Type {
		case SourceTypeRemote:
			if cal.Source.URL == "" {
				return fmt.Errorf("calendar %q: remote source requires a url", cal.EntityID)
			}
		case SourceTypeCalDAV:
			if cal.Source.URL == "" || cal.Source.CalendarPath == "" {
				return fmt.Errorf("calendar %q: caldav source requires url and calendar_path", cal.EntityID)
			}
		default:
			return fmt.Errorf("calendar %q: unknown source type %q", cal.EntityID, cal.Source.Type)
		}
	}

	for _, rule := range c.Colours {
		if rule.Name == "" || rule.Colour == "" {
			return fmt.Errorf("colour rule with empty name or colour")
		}
	}

	return nil
}

// Window returns the configured event window.
func (c *Config) Window() source.Window {
	return source.Window{
		Lookback:  time.Duration(c.LookbackWeeks) * 7 * 24 * time.Hour,
		Lookahead: time.Duration(c.LookaheadWeeks) * 7 * 24 * time.Hour,
	}
}

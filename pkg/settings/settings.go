// Package settings manages persistent user settings for the netcam-meraki CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Settings holds persistent user preferences. Command-line flags and the
// MERAKI_* environment variables take precedence over these values.
type Settings struct {
	// OrgID and OrgName select the dashboard organization.
	OrgID   string `json:"org_id,omitempty"`
	OrgName string `json:"org_name,omitempty"`

	// DesignFile is the design used when --design is not specified
	DesignFile string `json:"design_file,omitempty"`

	// BaseURL overrides the dashboard API endpoint
	BaseURL string `json:"base_url,omitempty"`

	// RedisAddr enables the result store when set
	RedisAddr string `json:"redis_addr,omitempty"`
	RedisDB   int    `json:"redis_db,omitempty"`

	// MetricsAddr serves Prometheus metrics during a run when set
	MetricsAddr string `json:"metrics_addr,omitempty"`

	// Concurrency bounds the devices validated at once
	Concurrency int `json:"concurrency,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "netcam-meraki_settings.json"
	}
	return filepath.Join(home, ".netcam-meraki", "settings.json")
}

// DefaultAuditPath returns the audit log kept beside the settings file.
func DefaultAuditPath() string {
	return filepath.Join(filepath.Dir(DefaultSettingsPath()), "audit.log")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path. The file may name an
// organization, so it is kept private to the user.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// GetDesignFile returns the design path (with fallback)
func (s *Settings) GetDesignFile() string {
	if s.DesignFile != "" {
		return s.DesignFile
	}
	return "design.yaml"
}

// GetRedisAddr returns the result store address, empty when disabled.
func (s *Settings) GetRedisAddr() string {
	return s.RedisAddr
}

// Keys lists the settable keys in display order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type field struct {
	get func(*Settings) string
	set func(*Settings, string) error
}

func stringField(p func(*Settings) *string) field {
	return field{
		get: func(s *Settings) string { return *p(s) },
		set: func(s *Settings, v string) error { *p(s) = v; return nil },
	}
}

func intField(p func(*Settings) *int) field {
	return field{
		get: func(s *Settings) string {
			if *p(s) == 0 {
				return ""
			}
			return strconv.Itoa(*p(s))
		},
		set: func(s *Settings, v string) error {
			if v == "" {
				*p(s) = 0
				return nil
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("expected a non-negative integer, got %q", v)
			}
			*p(s) = n
			return nil
		},
	}
}

var fields = map[string]field{
	"org_id":       stringField(func(s *Settings) *string { return &s.OrgID }),
	"org_name":     stringField(func(s *Settings) *string { return &s.OrgName }),
	"design_file":  stringField(func(s *Settings) *string { return &s.DesignFile }),
	"base_url":     stringField(func(s *Settings) *string { return &s.BaseURL }),
	"redis_addr":   stringField(func(s *Settings) *string { return &s.RedisAddr }),
	"metrics_addr": stringField(func(s *Settings) *string { return &s.MetricsAddr }),
	"redis_db":     intField(func(s *Settings) *int { return &s.RedisDB }),
	"concurrency":  intField(func(s *Settings) *int { return &s.Concurrency }),
}

// Get returns the value of key in string form.
func (s *Settings) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", unknownKey(key)
	}
	return f.get(s), nil
}

// Set assigns key from its string form. An empty value clears it.
func (s *Settings) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return unknownKey(key)
	}
	if err := f.set(s, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(Keys(), ", "))
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"golang.org/x/text/language"
)

// Config is loaded from an optional JSON file and then overlaid by
// environment variables. All fields are optional.
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty" env:"ASSESS_DATABASE_URL"` // PostgreSQL connection URL
	ContentDir  string `json:"content_dir,omitempty" env:"ASSESS_CONTENT_DIR"`   // Seed content directory; embedded content when empty

	// Server
	Port               int `json:"port,omitempty" env:"ASSESS_PORT"`
	RateLimitPerMinute int `json:"rate_limit_per_minute,omitempty" env:"ASSESS_RATE_LIMIT"` // Evaluate requests per client per minute

	// Scoring
	DefaultLocale       string   `json:"default_locale,omitempty" env:"ASSESS_DEFAULT_LOCALE"`
	CriticalCeiling     *float64 `json:"critical_ceiling,omitempty" env:"ASSESS_CRITICAL_CEILING"`
	MajorPenalty        *float64 `json:"major_penalty,omitempty" env:"ASSESS_MAJOR_PENALTY"`
	RedFlagsAffectScore bool     `json:"red_flags_affect_score,omitempty" env:"ASSESS_RED_FLAGS_AFFECT_SCORE"`

	// Behavior
	Verbose bool `json:"verbose,omitempty" env:"ASSESS_VERBOSE"` // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:               8080,
		RateLimitPerMinute: 60,
		DefaultLocale:      "en",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overlays environment variables onto c. Variables that are not
// set leave the field unchanged.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the optional file at path, applies the environment overlay,
// fills defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("config error: 'rate_limit_per_minute' must be non-negative")
	}
	if c.DefaultLocale != "" {
		if _, err := language.Parse(c.DefaultLocale); err != nil {
			return fmt.Errorf("config error: 'default_locale' %q is not a valid language tag: %w", c.DefaultLocale, err)
		}
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.ContentDir != "" {
		if _, err := os.Stat(c.ContentDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: content directory not found: %s", c.ContentDir)
		}
	}
	return nil
}

// Policy builds the override policy. Unset magnitudes use the scoring
// defaults.
func (c *Config) Policy() scoring.Policy {
	ceiling := scoring.DefaultCriticalCeiling
	if c.CriticalCeiling != nil {
		ceiling = *c.CriticalCeiling
	}
	penalty := scoring.DefaultMajorPenalty
	if c.MajorPenalty != nil {
		penalty = *c.MajorPenalty
	}
	return scoring.NewPolicy(ceiling, penalty, c.RedFlagsAffectScore)
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ContentDir == "" {
		result.ContentDir = defaults.ContentDir
	}
	if result.DefaultLocale == "" {
		result.DefaultLocale = defaults.DefaultLocale
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.RateLimitPerMinute == 0 {
		result.RateLimitPerMinute = defaults.RateLimitPerMinute
	}

	// Pointer fields: nil means unset
	if result.CriticalCeiling == nil {
		result.CriticalCeiling = defaults.CriticalCeiling
	}
	if result.MajorPenalty == nil {
		result.MajorPenalty = defaults.MajorPenalty
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

package ratelimit

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	DefaultLimit    int           `env:"RATE_LIMIT_DEFAULT_LIMIT" envDefault:"600"`
	DefaultWindow   time.Duration `env:"RATE_LIMIT_DEFAULT_WINDOW" envDefault:"1m"`
	CleanupInterval time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
	Allowlist       []string      `env:"RATE_LIMIT_ALLOWLIST" envSeparator:","`
	Denylist        []string      `env:"RATE_LIMIT_DENYLIST" envSeparator:","`

	Endpoints []EndpointConfig `env:"-"`
}

// EndpointConfig limits one route, identified by its ServeMux pattern
// (for example "POST /scenarios/{code}/versions/{version}/evaluate").
type EndpointConfig struct {
	Pattern string
	Limit   int // Requests per window; zero or less means unlimited
	Window  time.Duration
	Burst   int // Bucket capacity, defaults to Limit
}

// Route patterns with dedicated limits.
const (
	PatternHealth         = "GET /health"
	PatternEvaluateRubric = "POST /scenarios/{code}/versions/{version}/evaluate"
	PatternEvaluateLikert = "POST /questionnaires/{code}/versions/{version}/evaluate"
)

const defaultEvaluatePerMinute = 60

// LoadConfig reads RATE_LIMIT_* environment variables. evaluatePerMinute caps
// each client on the evaluate routes; zero selects the default.
func LoadConfig(evaluatePerMinute int) (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("invalid rate limit configuration: %w", err)
	}
	cfg.Endpoints = DefaultEndpointConfigs(evaluatePerMinute)
	return &cfg, nil
}

// DefaultEndpointConfigs returns the per-route limits. Evaluations are the
// only write path and get the strictest limit; reads use the default.
func DefaultEndpointConfigs(evaluatePerMinute int) []EndpointConfig {
	if evaluatePerMinute <= 0 {
		evaluatePerMinute = defaultEvaluatePerMinute
	}
	burst := max(1, evaluatePerMinute/6)
	return []EndpointConfig{
		{Pattern: PatternHealth, Limit: 0},
		{Pattern: PatternEvaluateRubric, Limit: evaluatePerMinute, Window: time.Minute, Burst: burst},
		{Pattern: PatternEvaluateLikert, Limit: evaluatePerMinute, Window: time.Minute, Burst: burst},
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			set[item] = true
		}
	}
	return set
}

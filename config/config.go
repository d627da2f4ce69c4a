// Package config loads the process-wide SDK configuration. Configuration is
// sourced entirely from BOOTES_* environment variables; there is no file
// format. A Config is constructed once at startup and read-only afterwards.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "bootes"

// Config carries the request, retry, cache and rate-limit settings shared
// by every data service. Every field is consumed: MaxRetries/RetryDelay
// drive the retrying HTTP client, RequestsPerMinute drives the token
// bucket, CacheEnabled/CacheTTL drive the per-service read-through cache.
type Config struct {
	// Request settings
	Timeout    int     `envconfig:"TIMEOUT" default:"30"`
	MaxRetries uint    `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelay float64 `envconfig:"RETRY_DELAY" default:"1.0"`

	// Data settings
	DefaultStockInterval string `envconfig:"DEFAULT_INTERVAL" default:"1d"`
	DefaultStockPeriod   string `envconfig:"DEFAULT_PERIOD" default:"1y"`
	CacheEnabled         bool   `envconfig:"CACHE_ENABLED" default:"false"`
	CacheTTL             int    `envconfig:"CACHE_TTL" default:"300"`

	// Rate limiting
	RequestsPerMinute int `envconfig:"REQUESTS_PER_MINUTE" default:"60"`
}

// FromEnv reads configuration from the environment, falling back to the
// documented defaults for anything unset.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration with every field at its default value.
func Default() Config {
	return Config{
		Timeout:              30,
		MaxRetries:           3,
		RetryDelay:           1.0,
		DefaultStockInterval: "1d",
		DefaultStockPeriod:   "1y",
		CacheEnabled:         false,
		CacheTTL:             300,
		RequestsPerMinute:    60,
	}
}

// RequestTimeout is the per-request deadline for outbound calls.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// RetryBaseDelay is the first backoff step; subsequent attempts double it.
func (c Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryDelay * float64(time.Second))
}

// CacheExpiry is the TTL applied to cached records.
func (c Config) CacheExpiry() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

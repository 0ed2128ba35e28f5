// SPDX-License-Identifier: Apache-2.0

// Package config assembles the engine configuration from command-line
// flags, environment variables and an optional JSON file. Sources are
// merged in that order of precedence.
package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration container for the snapsync engine.
//
// Struct tags:
//   - envPrefix — prefix applied to nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type Config struct {
	// Storage holds local persistence settings.
	Storage Storage `envPrefix:"STORAGE_" json:"storage,omitempty"`

	// Transport holds settings for the snapshot service HTTP client.
	Transport Transport `envPrefix:"TRANSPORT_" json:"transport,omitempty"`

	// Sync holds scheduler tuning for sync sessions.
	Sync Sync `envPrefix:"SYNC_" json:"sync,omitempty"`

	// JSONFilePath is the optional path to a JSON configuration file,
	// merged on top of flags and environment values when non-empty.
	// Populated via the CONFIG environment variable or the -c/-config flag.
	JSONFilePath string `env:"CONFIG" json:"-"`
}

// Storage groups local persistence settings.
type Storage struct {
	// DB holds the main sync database settings.
	DB DB `envPrefix:"DB_" json:"db,omitempty"`
}

// DB contains the SQLite connection settings for the main sync database.
type DB struct {
	// DSN is the path of the main database file.
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN" json:"dsn"`
}

// Transport holds settings for the snapshot service HTTP client.
type Transport struct {
	// BaseURL is the snapshot service endpoint.
	// Env: TRANSPORT_BASE_URL
	BaseURL string `env:"BASE_URL" json:"base_url"`

	// RequestTimeout is the per-attempt timeout for outbound requests.
	// Env: TRANSPORT_REQUEST_TIMEOUT
	RequestTimeout Duration `env:"REQUEST_TIMEOUT" json:"request_timeout"`

	// RetryCount is the number of re-issues after a failed attempt.
	// Env: TRANSPORT_RETRY_COUNT
	RetryCount int `env:"RETRY_COUNT" json:"retry_count"`

	// RetryWaitTime is the base backoff between attempts.
	// Env: TRANSPORT_RETRY_WAIT_TIME
	RetryWaitTime Duration `env:"RETRY_WAIT_TIME" json:"retry_wait_time"`
}

// Sync holds scheduler tuning for sync sessions.
type Sync struct {
	// MaxConcurrentRequests caps simultaneous network operations.
	// Env: SYNC_MAX_CONCURRENT_REQUESTS
	MaxConcurrentRequests int `env:"MAX_CONCURRENT_REQUESTS" json:"max_concurrent_requests"`

	// DispatchDelay is the politeness pause between request dispatches.
	// Env: SYNC_DISPATCH_DELAY
	DispatchDelay Duration `env:"DISPATCH_DELAY" json:"dispatch_delay"`
}

func defaultConfig() *Config {
	return &Config{
		Storage: Storage{
			DB: DB{DSN: "snapsync.db"},
		},
		Transport: Transport{
			RequestTimeout: Duration(30 * time.Second),
			RetryCount:     2,
			RetryWaitTime:  Duration(500 * time.Millisecond),
		},
		Sync: Sync{
			MaxConcurrentRequests: 6,
			DispatchDelay:         Duration(50 * time.Millisecond),
		},
	}
}

func (c *Config) validate() error {
	if c.Storage.DB.DSN == "" {
		return errors.New("storage db dsn must not be empty")
	}
	if c.Sync.MaxConcurrentRequests <= 0 {
		return errors.New("sync max concurrent requests must be positive")
	}
	if c.Transport.RetryCount < 0 {
		return errors.New("transport retry count must not be negative")
	}
	return nil
}

// GetConfig builds and validates the engine configuration from all sources.
func GetConfig() (*Config, error) {
	return newConfigBuilder().
		withFlags().
		withEnv().
		withJSON().
		withDefaults().
		build()
}

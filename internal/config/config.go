// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the sync
// engine. It aggregates all sub-configurations and is populated by merging
// values from environment variables, command-line flags, an optional JSON
// file, and built-in defaults.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Remote holds the endpoint and timeout settings for the remote sync API.
	Remote Remote `envPrefix:"BUZO_REMOTE_"`

	// Engine holds the sync cadence and retry knobs.
	Engine Engine `envPrefix:"BUZO_ENGINE_"`

	// Storage holds the local key/value database settings.
	Storage Storage `envPrefix:"BUZO_STORAGE_"`

	// Logging holds on-device log output settings.
	Logging Logging `envPrefix:"BUZO_LOGGING_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged below the values already
	// loaded from environment variables and flags.
	// Populated via the BUZO_CONFIG environment variable or the -c / -config
	// flag.
	JSONFilePath string `env:"BUZO_CONFIG"`
}

// Remote holds settings for the outbound connection to the remote sync API.
type Remote struct {
	// BaseURL is the root URL of the remote sync API
	// (e.g. "https://api.buzo.app").
	// Env: BUZO_REMOTE_BASE_URL
	BaseURL string `env:"BASE_URL"`

	// RequestTimeout is the maximum duration of a single outbound request
	// (e.g. "15s"). Requests exceeding it count as transient failures.
	// Env: BUZO_REMOTE_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Engine holds the knobs that control sync cycle behavior.
type Engine struct {
	// SyncInterval is the period of the timer trigger (e.g. "5m").
	// Env: BUZO_ENGINE_SYNC_INTERVAL
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	// BatchSize is the maximum number of pending operations drained from the
	// queue per peek.
	// Env: BUZO_ENGINE_BATCH_SIZE
	BatchSize int `env:"BATCH_SIZE"`

	// RetryCeiling is the number of transient push failures after which an
	// operation becomes terminally failed.
	// Env: BUZO_ENGINE_RETRY_CEILING
	RetryCeiling int `env:"RETRY_CEILING"`

	// ProbeInterval is the period of the reachability probe (e.g. "30s").
	// Env: BUZO_ENGINE_PROBE_INTERVAL
	ProbeInterval time.Duration `env:"PROBE_INTERVAL"`
}

// Storage holds settings for the local durable store.
type Storage struct {
	// DSN is the SQLite connection string for the on-device database
	// (e.g. "file:/data/buzo/sync.db" or ":memory:" in tests).
	// Env: BUZO_STORAGE_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Logging holds on-device log output settings.
type Logging struct {
	// FilePath is the rotating log file location. Empty means stdout.
	// Env: BUZO_LOGGING_FILE_PATH
	FilePath string `env:"FILE_PATH"`
}

// Defaults applied below every explicit configuration source.
const (
	DefaultRequestTimeout = 15 * time.Second
	DefaultSyncInterval   = 5 * time.Minute
	DefaultBatchSize      = 50
	DefaultRetryCeiling   = 5
	DefaultProbeInterval  = 30 * time.Second
)

// GetStructuredConfig loads, merges, and validates the engine configuration
// from all available sources in the following priority order (first non-zero
// value wins):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//  4. Built-in defaults
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		withDefaults().
		build()
}

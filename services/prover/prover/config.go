// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prover

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid prover config")

// configValidate validates the struct tags of every configuration type.
var configValidate = validator.New()

// Config contains all prover configuration.
// This is the top-level config struct that can be loaded from files/env.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	// Auto configures the automatic prover.
	Auto AutoProverConfig `json:"auto" yaml:"auto"`

	// Cut configures the cut strategies.
	Cut CutConfig `json:"cut" yaml:"cut"`

	// Storage configures the proof store.
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Observability contains logging, tracing and metrics settings.
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// CutConfig configures the cut strategies.
type CutConfig struct {
	// InitialCap is the depth cap of the first iterative deepening round.
	// Default: 4
	InitialCap int `json:"initial_cap" yaml:"initial_cap" validate:"gte=1"`

	// Parallelism bounds the goroutines evaluating sibling subtrees during
	// iterative deepening. 1 evaluates everything on the calling goroutine.
	// Default: number of CPUs
	Parallelism int `json:"parallelism" yaml:"parallelism" validate:"gte=1,lte=1024"`

	// BFSStartLevel is the first level scanned by the level scan.
	// Default: 0
	BFSStartLevel int `json:"bfs_start_level" yaml:"bfs_start_level" validate:"gte=0"`
}

// StorageConfig configures the proof store.
type StorageConfig struct {
	Path       string        `json:"path" yaml:"path" validate:"required_unless=InMemory true"`
	InMemory   bool          `json:"in_memory" yaml:"in_memory"`
	SyncWrites bool          `json:"sync_writes" yaml:"sync_writes"`
	GCInterval time.Duration `json:"gc_interval" yaml:"gc_interval" validate:"gte=0"`
}

// ObservabilityConfig contains observability settings.
type ObservabilityConfig struct {
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	LogLevel       string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	ServiceName    string `json:"service_name" yaml:"service_name" validate:"required"`

	// LogDir enables daily JSON log files in this directory. Empty logs to
	// stderr only.
	LogDir string `json:"log_dir,omitempty" yaml:"log_dir,omitempty"`

	// MetricsFile, when set with MetricsEnabled, receives the Prometheus
	// registry in text exposition format when the CLI exits.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
}

// DefaultCutConfig returns the default cut configuration.
func DefaultCutConfig() CutConfig {
	return CutConfig{
		InitialCap:    4,
		Parallelism:   runtime.NumCPU(),
		BFSStartLevel: 0,
	}
}

// DefaultConfig returns the default configuration.
//
// Outputs:
//   - Config: Default configuration with sensible values.
func DefaultConfig() Config {
	return Config{
		Auto: DefaultAutoProverConfig(),
		Cut:  DefaultCutConfig(),
		Storage: StorageConfig{
			Path:       "prover-data",
			SyncWrites: true,
			GCInterval: 10 * time.Minute,
		},
		Observability: ObservabilityConfig{
			TracingEnabled: true,
			MetricsEnabled: true,
			LogLevel:       "info",
			ServiceName:    "aleutian-prover",
		},
	}
}

// LoadConfig loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - configPath: Path to YAML/JSON config file (optional, can be empty).
//
// Outputs:
//   - Config: Merged configuration.
//   - error: Non-nil if the file exists but is invalid, or the merged
//     configuration does not validate.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadConfigFromEnv(&config); err != nil {
		return config, fmt.Errorf("load config from env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}

	return nil
}

func envInt(name, v string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, name, v)
	}
	return i, nil
}

func envBool(v string) bool {
	return v == "true" || v == "1"
}

func loadConfigFromEnv(config *Config) error {
	// Auto
	if v := os.Getenv("PROVER_HEURISTIC"); v != "" {
		config.Auto.Heuristic = v
	}
	if v := os.Getenv("PROVER_DEPTH_BOUND"); v != "" {
		if strings.EqualFold(v, "none") {
			config.Auto.DepthBound = nil
		} else {
			i, err := envInt("PROVER_DEPTH_BOUND", v)
			if err != nil {
				return err
			}
			config.Auto.DepthBound = &i
		}
	}
	if v := os.Getenv("PROVER_CUT"); v != "" {
		policy, err := ParseCutPolicy(v)
		if err != nil {
			return err
		}
		config.Auto.Cut = policy
	}

	// Cut
	if v := os.Getenv("PROVER_CUT_INITIAL_CAP"); v != "" {
		i, err := envInt("PROVER_CUT_INITIAL_CAP", v)
		if err != nil {
			return err
		}
		config.Cut.InitialCap = i
	}
	if v := os.Getenv("PROVER_CUT_PARALLELISM"); v != "" {
		i, err := envInt("PROVER_CUT_PARALLELISM", v)
		if err != nil {
			return err
		}
		config.Cut.Parallelism = i
	}
	if v := os.Getenv("PROVER_BFS_START_LEVEL"); v != "" {
		i, err := envInt("PROVER_BFS_START_LEVEL", v)
		if err != nil {
			return err
		}
		config.Cut.BFSStartLevel = i
	}

	// Storage
	if v := os.Getenv("PROVER_STORAGE_PATH"); v != "" {
		config.Storage.Path = v
	}
	if v := os.Getenv("PROVER_STORAGE_IN_MEMORY"); v != "" {
		config.Storage.InMemory = envBool(v)
	}
	if v := os.Getenv("PROVER_STORAGE_SYNC_WRITES"); v != "" {
		config.Storage.SyncWrites = envBool(v)
	}
	if v := os.Getenv("PROVER_STORAGE_GC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: PROVER_STORAGE_GC_INTERVAL: %v", ErrInvalidConfig, err)
		}
		config.Storage.GCInterval = d
	}

	// Observability
	if v := os.Getenv("PROVER_TRACING_ENABLED"); v != "" {
		config.Observability.TracingEnabled = envBool(v)
	}
	if v := os.Getenv("PROVER_METRICS_ENABLED"); v != "" {
		config.Observability.MetricsEnabled = envBool(v)
	}
	if v := os.Getenv("PROVER_LOG_LEVEL"); v != "" {
		config.Observability.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("PROVER_LOG_DIR"); v != "" {
		config.Observability.LogDir = v
	}
	if v := os.Getenv("PROVER_METRICS_FILE"); v != "" {
		config.Observability.MetricsFile = v
	}
	if v := os.Getenv("PROVER_SERVICE_NAME"); v != "" {
		config.Observability.ServiceName = v
	}
	return nil
}

// Validate checks that the configuration is valid.
//
// Outputs:
//   - error: Wraps ErrInvalidConfig if the configuration is invalid.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

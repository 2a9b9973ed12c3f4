// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/glowbase/recommender/internal/recommend"
)

// validate is the shared struct validator for configuration checks.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the full application configuration.
type Config struct {
	Catalog   CatalogConfig    `koanf:"catalog"`
	Artifacts ArtifactsConfig  `koanf:"artifacts"`
	Feedback  FeedbackConfig   `koanf:"feedback"`
	Engine    recommend.Config `koanf:"engine"`
	Training  TrainingConfig   `koanf:"training"`
	Server    ServerConfig     `koanf:"server"`
	Logging   LoggingConfig    `koanf:"logging"`
}

// CatalogConfig locates the product and interaction database.
type CatalogConfig struct {
	// Path is the DuckDB database file. ":memory:" is accepted for
	// ephemeral runs.
	Path string `koanf:"path" validate:"required"`
}

// ArtifactsConfig locates published model artifacts.
type ArtifactsConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// FeedbackConfig controls the interaction ingestion pipeline.
type FeedbackConfig struct {
	// LogDir is the BadgerDB directory for the durable feedback log.
	// Empty selects an in-memory log, which loses events on restart.
	LogDir string `koanf:"log_dir"`

	// Buffer is the in-process channel depth between the serving path
	// and the persistence consumer.
	Buffer int64 `koanf:"buffer" validate:"gte=1"`
}

// TrainingConfig controls the background retraining loop.
type TrainingConfig struct {
	// Interval between scheduled retraining runs.
	Interval time.Duration `koanf:"interval" validate:"gte=1m"`

	// OnStartup triggers a training run when the daemon boots and no
	// published artifact exists yet.
	OnStartup bool `koanf:"on_startup"`

	// Evaluate runs k-fold cross-validation as part of each training
	// run and embeds the metrics in the published artifact.
	Evaluate bool `koanf:"evaluate"`
}

// ServerConfig configures the operational HTTP listener.
type ServerConfig struct {
	// MetricsAddr is the listen address for /metrics and /healthz.
	MetricsAddr string `koanf:"metrics_addr" validate:"required"`

	// Timeout bounds request handling on the listener.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults. These are applied first,
// then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path: "/data/glowbase.duckdb",
		},
		Artifacts: ArtifactsConfig{
			Dir: "/data/models",
		},
		Feedback: FeedbackConfig{
			LogDir: "/data/feedback",
			Buffer: 256,
		},
		Engine: *recommend.DefaultConfig(),
		Training: TrainingConfig{
			Interval:  12 * time.Hour,
			OnStartup: true,
			Evaluate:  false,
		},
		Server: ServerConfig{
			MetricsAddr: ":9090",
			Timeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the assembled configuration, including the nested
// engine parameters.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	return nil
}

// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/glowbase/config.yaml",
	"/etc/glowbase/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load assembles the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
//
// The result is validated before being returned.
func Load() (*Config, error) {
	return loadFrom(findConfigFile())
}

// LoadFile loads configuration from an explicit file path plus
// environment overrides. Used by the trainer's -config flag.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	return loadFrom(path)
}

func loadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processListFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first config file that exists, or empty.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// intListPaths are config paths holding integer lists. Environment
// values arrive as comma-separated strings and need parsing.
var intListPaths = []string{
	"engine.evaluation.cutoffs",
}

func processListFields(k *koanf.Koanf) error {
	for _, path := range intListPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		ints := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return fmt.Errorf("parse %s entry %q: %w", path, p, err)
			}
			ints = append(ints, n)
		}
		if err := k.Set(path, ints); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps flat environment variable names to nested
// config paths. Unmapped variables are skipped so unrelated environment
// noise cannot leak into the configuration.
//
// Examples:
//   - CATALOG_PATH -> catalog.path
//   - ENGINE_VOCAB_SIZE -> engine.features.vocab_size
//   - TRAIN_INTERVAL -> training.interval
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Catalog mappings
		"catalog_path": "catalog.path",

		// Artifact mappings
		"artifacts_dir": "artifacts.dir",

		// Feedback pipeline mappings
		"feedback_log_dir": "feedback.log_dir",
		"feedback_buffer":  "feedback.buffer",

		// Engine mappings (feature extraction)
		"engine_vocab_size":      "engine.features.vocab_size",
		"engine_ngram_min":       "engine.features.ngram_min",
		"engine_ngram_max":       "engine.features.ngram_max",
		"engine_min_corpus_size": "engine.features.min_corpus_size",
		"engine_max_doc_frac":    "engine.features.max_doc_frac",

		// Engine mappings (collaborative filter)
		"engine_k_neighbors":          "engine.cf.k_neighbors",
		"engine_cold_start_threshold": "engine.cf.cold_start_threshold",

		// Engine mappings (hybrid blend)
		"engine_cold_cb": "engine.blend.cold_cb",
		"engine_cold_cf": "engine.blend.cold_cf",
		"engine_warm_cb": "engine.blend.warm_cb",
		"engine_warm_cf": "engine.blend.warm_cf",

		// Engine mappings (evaluation)
		"engine_eval_folds":                 "engine.evaluation.folds",
		"engine_eval_cutoffs":               "engine.evaluation.cutoffs",
		"engine_eval_min_test_interactions": "engine.evaluation.min_test_interactions",
		"engine_eval_relevance_threshold":   "engine.evaluation.relevance_threshold",

		// Engine mappings (serving limits)
		"engine_default_count":   "engine.limits.default_count",
		"engine_max_count":       "engine.limits.max_count",
		"engine_retain_versions": "engine.limits.retain_versions",
		"engine_seed":            "engine.seed",

		// Training loop mappings
		"train_interval":   "training.interval",
		"train_on_startup": "training.on_startup",
		"train_evaluate":   "training.evaluate",

		// Server mappings
		"metrics_addr": "server.metrics_addr",
		"http_timeout": "server.timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

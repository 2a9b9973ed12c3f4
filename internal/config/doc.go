// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package config loads the application configuration with layered
// precedence: environment variables override an optional YAML file,
// which overrides built-in defaults.
//
// The file path is taken from the CONFIG_PATH environment variable, or
// searched in the default locations (./config.yaml, then
// /etc/glowbase/config.yaml). All settings are reachable via flat
// environment variables; nested engine parameters map through the
// ENGINE_ prefix, for example ENGINE_VOCAB_SIZE or ENGINE_K_NEIGHBORS.
//
// Load validates the assembled configuration before returning it, so a
// bad deployment fails at startup rather than mid-training.
package config

// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package artifact persists trained model bundles as immutable
// versioned directories. Writes go through a staging directory and
// become visible with a single rename, so a crash mid-publish can
// never corrupt the currently served version.
package artifact

import (
	"time"

	"github.com/glowbase/recommender/internal/recommend"
	"github.com/glowbase/recommender/internal/recommend/cf"
	"github.com/glowbase/recommender/internal/recommend/feature"
)

// Artifact is one trained model bundle. Everything needed to serve
// recommendations without touching the catalog store travels together:
// the fitted feature model, the collaborative index, the product
// snapshot, and the configuration that produced them.
type Artifact struct {
	Version   string
	TrainedAt time.Time
	Config    *recommend.Config
	Products  []recommend.Product
	Features  *feature.Model

	// CF is nil when training saw no interactions; serving then runs
	// content-only.
	CF *cf.Model

	Eval *EvalSummary
}

// EvalSummary is the offline evaluation result stored alongside a
// version, for the audit trail in metadata.json.
type EvalSummary struct {
	Folds        int                `json:"folds"`
	SkippedFolds int                `json:"skipped_folds"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Metadata is the sidecar JSON written next to the encoded bundle. It
// is readable without decoding the model blob, so operators can inspect
// a version's provenance with nothing but a JSON tool.
type Metadata struct {
	Version      string            `json:"version"`
	TrainedAt    time.Time         `json:"trained_at"`
	Checksum     string            `json:"checksum"`
	Seed         int64             `json:"seed"`
	Products     int               `json:"products"`
	Interactions int               `json:"interactions"`
	VocabSize    int               `json:"vocab_size"`
	Config       *recommend.Config `json:"config,omitempty"`
	Eval         *EvalSummary      `json:"eval,omitempty"`
}

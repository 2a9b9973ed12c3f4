// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package recommend

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// validate is the shared struct validator for configuration checks.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the typed training and serving configuration. Every
// recognized hyperparameter is an explicit field with a validated range;
// there is no loosely-typed option map.
type Config struct {
	// Features configures the TF-IDF extractor.
	Features FeatureConfig `json:"features" koanf:"features"`

	// CF configures the collaborative filter.
	CF CFConfig `json:"cf" koanf:"cf"`

	// Blend configures the hybrid combiner weights.
	Blend BlendConfig `json:"blend" koanf:"blend"`

	// Evaluation configures offline cross-validation.
	Evaluation EvaluationConfig `json:"evaluation" koanf:"evaluation"`

	// Limits contains operational limits for serving.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Seed is the random seed for deterministic behavior. If zero, a
	// fixed default seed is used.
	Seed int64 `json:"seed" koanf:"seed"`
}

// FeatureConfig contains parameters for the feature extractor.
type FeatureConfig struct {
	// VocabSize bounds the vocabulary to the top-N terms by aggregate
	// TF-IDF mass. Default: 500.
	VocabSize int `json:"vocab_size" koanf:"vocab_size" validate:"gte=50,lte=20000"`

	// NGramMin and NGramMax bound the n-gram range. Defaults: 1 and 2,
	// so compound terms like "oil-free moisturizer" survive as bigrams.
	NGramMin int `json:"ngram_min" koanf:"ngram_min" validate:"gte=1,lte=3"`
	NGramMax int `json:"ngram_max" koanf:"ngram_max" validate:"gte=1,lte=3"`

	// MinCorpusSize is the minimum product count for stable TF-IDF
	// statistics. Training fails below it. Default: 20.
	MinCorpusSize int `json:"min_corpus_size" koanf:"min_corpus_size" validate:"gte=2"`

	// MaxDocFrac drops terms present in more than this fraction of
	// documents. Default: 0.8.
	MaxDocFrac float64 `json:"max_doc_frac" koanf:"max_doc_frac" validate:"gt=0,lte=1"`
}

// CFConfig contains parameters for the collaborative filter.
type CFConfig struct {
	// KNeighbors is the number of nearest neighbor items retained per
	// product. Default: 10.
	KNeighbors int `json:"k_neighbors" koanf:"k_neighbors" validate:"gte=1,lte=500"`

	// ColdStartThreshold is the minimum interaction count before a
	// user's collaborative signal is trusted. Default: 3.
	ColdStartThreshold int `json:"cold_start_threshold" koanf:"cold_start_threshold" validate:"gte=1"`
}

// BlendConfig contains the hybrid fusion weights. Each pair must sum
// to 1; both score lists are min-max normalized before blending.
type BlendConfig struct {
	// ColdCB and ColdCF apply when the user is below the cold-start
	// threshold. Defaults: 0.8 / 0.2.
	ColdCB float64 `json:"cold_cb" koanf:"cold_cb" validate:"gt=0,lt=1"`
	ColdCF float64 `json:"cold_cf" koanf:"cold_cf" validate:"gte=0,lt=1"`

	// WarmCB and WarmCF apply at or above the threshold.
	// Defaults: 0.4 / 0.6.
	WarmCB float64 `json:"warm_cb" koanf:"warm_cb" validate:"gt=0,lt=1"`
	WarmCF float64 `json:"warm_cf" koanf:"warm_cf" validate:"gt=0,lt=1"`
}

// EvaluationConfig contains offline evaluation parameters.
type EvaluationConfig struct {
	// Folds is the cross-validation fold count. Default: 5.
	Folds int `json:"folds" koanf:"folds" validate:"gte=2,lte=20"`

	// Cutoffs are the ranking cutoffs for Precision/Recall/F1@K.
	// Default: 5, 10, 20.
	Cutoffs []int `json:"cutoffs" koanf:"cutoffs" validate:"min=1,dive,gte=1"`

	// MinTestInteractions is the minimum usable held-out interactions
	// for a fold to be scored; folds below it are skipped and noted in
	// the report. Default: 5.
	MinTestInteractions int `json:"min_test_interactions" koanf:"min_test_interactions" validate:"gte=1"`

	// RelevanceThreshold is the minimum interaction weight for a
	// held-out record to count as relevant. Default: 4.0 (a four-star
	// rating; favorites fall below it, per the implicit weights).
	RelevanceThreshold float64 `json:"relevance_threshold" koanf:"relevance_threshold" validate:"gt=0"`
}

// LimitsConfig contains serving-side operational limits.
type LimitsConfig struct {
	// DefaultCount is the result count when the caller passes zero.
	// Default: 10.
	DefaultCount int `json:"default_count" koanf:"default_count" validate:"gte=1"`

	// MaxCount caps the requested result count. Default: 100.
	MaxCount int `json:"max_count" koanf:"max_count" validate:"gte=1"`

	// RetainVersions is the number of published artifact versions kept
	// on disk. Default: 3.
	RetainVersions int `json:"retain_versions" koanf:"retain_versions" validate:"gte=1"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Features: FeatureConfig{
			VocabSize:     500,
			NGramMin:      1,
			NGramMax:      2,
			MinCorpusSize: 20,
			MaxDocFrac:    0.8,
		},
		CF: CFConfig{
			KNeighbors:         10,
			ColdStartThreshold: 3,
		},
		Blend: BlendConfig{
			ColdCB: 0.8,
			ColdCF: 0.2,
			WarmCB: 0.4,
			WarmCF: 0.6,
		},
		Evaluation: EvaluationConfig{
			Folds:               5,
			Cutoffs:             []int{5, 10, 20},
			MinTestInteractions: 5,
			RelevanceThreshold:  4.0,
		},
		Limits: LimitsConfig{
			DefaultCount:   10,
			MaxCount:       100,
			RetainVersions: 3,
		},
		Seed: 42,
	}
}

const weightTolerance = 1e-9

// Validate checks all field ranges and cross-field rules. It fails fast;
// no computation happens on an invalid configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if c.Features.NGramMax < c.Features.NGramMin {
		return fmt.Errorf("features.ngram_max (%d) must be >= features.ngram_min (%d)",
			c.Features.NGramMax, c.Features.NGramMin)
	}
	if math.Abs(c.Blend.ColdCB+c.Blend.ColdCF-1.0) > weightTolerance {
		return fmt.Errorf("blend.cold_cb + blend.cold_cf must sum to 1, got %f",
			c.Blend.ColdCB+c.Blend.ColdCF)
	}
	if math.Abs(c.Blend.WarmCB+c.Blend.WarmCF-1.0) > weightTolerance {
		return fmt.Errorf("blend.warm_cb + blend.warm_cf must sum to 1, got %f",
			c.Blend.WarmCB+c.Blend.WarmCF)
	}
	if c.Limits.MaxCount < c.Limits.DefaultCount {
		return fmt.Errorf("limits.max_count must be >= limits.default_count, got %d < %d",
			c.Limits.MaxCount, c.Limits.DefaultCount)
	}

	return nil
}

// ValidateForCorpus checks rules that depend on the training corpus.
// A neighbor count at or above the corpus size cannot produce a
// meaningful KNN index.
func (c *Config) ValidateForCorpus(products int) error {
	if c.CF.KNeighbors >= products {
		return fmt.Errorf("cf.k_neighbors (%d) must be smaller than corpus size (%d)",
			c.CF.KNeighbors, products)
	}
	return nil
}

// Weights returns the blend weights for a user with the given
// interaction count.
func (c *Config) Weights(interactions int) BlendWeights {
	if interactions < c.CF.ColdStartThreshold {
		return BlendWeights{CB: c.Blend.ColdCB, CF: c.Blend.ColdCF, Cold: true}
	}
	return BlendWeights{CB: c.Blend.WarmCB, CF: c.Blend.WarmCF}
}

// EffectiveSeed returns the configured seed, or the fixed default when
// unset, so training stays deterministic either way.
func (c *Config) EffectiveSeed() int64 {
	if c.Seed == 0 {
		return 42
	}
	return c.Seed
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Evaluation.Cutoffs = append([]int(nil), c.Evaluation.Cutoffs...)
	return &out
}

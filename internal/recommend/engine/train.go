// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/glowbase/recommender/internal/metrics"
	"github.com/glowbase/recommender/internal/recommend/artifact"
	"github.com/glowbase/recommender/internal/recommend/cf"
	"github.com/glowbase/recommender/internal/recommend/eval"
	"github.com/glowbase/recommender/internal/recommend/feature"
)

// TrainOptions controls one training run.
type TrainOptions struct {
	// Evaluate runs cross-validation before publishing and stores the
	// report in the artifact metadata.
	Evaluate bool

	// DryRun trains and evaluates without publishing or swapping.
	DryRun bool
}

// TrainResult reports what a training run produced.
type TrainResult struct {
	Version      string
	Products     int
	Interactions int
	VocabSize    int
	Duration     time.Duration
	Report       *eval.Report
}

// Train reads the corpus, fits both models, optionally evaluates, and
// publishes a new artifact version. Configuration errors surface
// before any model computation starts. On success the new version is
// immediately swapped into serving.
func (e *Engine) Train(ctx context.Context, opts TrainOptions) (*TrainResult, error) {
	start := time.Now()

	products, err := e.data.Products(ctx)
	if err != nil {
		metrics.RecordTraining(time.Since(start), 0, 0, err)
		return nil, fmt.Errorf("load products: %w", err)
	}
	interactions, err := e.data.Interactions(ctx)
	if err != nil {
		metrics.RecordTraining(time.Since(start), 0, 0, err)
		return nil, fmt.Errorf("load interactions: %w", err)
	}

	// Fail fast on corpus-dependent rules before any computation.
	if len(interactions) > 0 {
		if err := e.cfg.ValidateForCorpus(len(products)); err != nil {
			metrics.RecordTraining(time.Since(start), 0, 0, err)
			return nil, err
		}
	}

	// Deterministic corpus ordering regardless of provider iteration
	// order: the same data always trains the same model.
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	sort.SliceStable(interactions, func(i, j int) bool {
		a, b := interactions[i], interactions[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.Timestamp.Before(b.Timestamp)
	})

	e.log.Info().
		Int("products", len(products)).
		Int("interactions", len(interactions)).
		Bool("evaluate", opts.Evaluate).
		Bool("dry_run", opts.DryRun).
		Msg("Training run started")

	features, err := feature.New(e.cfg.Features).Build(products)
	if err != nil {
		metrics.RecordTraining(time.Since(start), len(products), len(interactions), err)
		return nil, fmt.Errorf("feature extraction: %w", err)
	}

	var cfModel *cf.Model
	if len(interactions) > 0 {
		cfModel, err = cf.Train(interactions, e.cfg.CF)
		if err != nil && !errors.Is(err, cf.ErrNoInteractions) {
			metrics.RecordTraining(time.Since(start), len(products), len(interactions), err)
			return nil, fmt.Errorf("collaborative training: %w", err)
		}
	} else {
		e.log.Warn().Msg("No interactions, publishing content-only model")
	}

	result := &TrainResult{
		Products:     len(products),
		Interactions: len(interactions),
		VocabSize:    features.VocabSize(),
	}

	var summary *artifact.EvalSummary
	if opts.Evaluate && cfModel != nil {
		report, err := eval.New(e.cfg, e.log).Run(ctx, products, interactions)
		if err != nil {
			var die *eval.DataInsufficientError
			if errors.As(err, &die) {
				e.log.Warn().Err(err).Msg("Evaluation skipped, publishing without metrics")
			} else {
				metrics.RecordTraining(time.Since(start), len(products), len(interactions), err)
				return nil, fmt.Errorf("evaluation: %w", err)
			}
		} else {
			result.Report = report
			summary = &artifact.EvalSummary{
				Folds:        report.Folds,
				SkippedFolds: report.Skipped,
				Metrics:      make(map[string]float64, len(report.Metrics)),
			}
			for name, s := range report.Metrics {
				summary.Metrics[name] = s.Mean
			}
		}
	}

	art := &artifact.Artifact{
		TrainedAt: time.Now().UTC(),
		Config:    e.cfg.Clone(),
		Products:  products,
		Features:  features,
		CF:        cfModel,
		Eval:      summary,
	}

	if opts.DryRun {
		result.Duration = time.Since(start)
		e.log.Info().Dur("elapsed", result.Duration).Msg("Dry run complete, nothing published")
		return result, nil
	}

	version, err := e.store.Save(art)
	if err != nil {
		metrics.RecordTraining(time.Since(start), len(products), len(interactions), err)
		return nil, fmt.Errorf("publish artifact: %w", err)
	}
	result.Version = version
	result.Duration = time.Since(start)

	e.swap(art)
	metrics.RecordTraining(result.Duration, len(products), len(interactions), nil)

	e.log.Info().
		Str("version", version).
		Int("vocab_size", result.VocabSize).
		Dur("elapsed", result.Duration).
		Msg("Training run published")

	return result, nil
}

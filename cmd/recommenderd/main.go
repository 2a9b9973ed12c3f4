// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package main is the entry point for the Glowbase recommendation
// daemon.
//
// The daemon serves hybrid product recommendations for a cosmetics
// catalog: TF-IDF content similarity blended with item-based
// collaborative filtering, with cold-start handling for new shoppers.
//
// # Application Architecture
//
// Startup proceeds in order:
//
//  1. Configuration: Koanf v2 layered sources (env > file > defaults)
//  2. Catalog: DuckDB database of products, ingredients, interactions
//  3. Artifact store: versioned model snapshots with atomic publish
//  4. Feedback pipeline: Watermill channel into a BadgerDB log
//  5. Supervisor tree: retraining loop, feedback consumer, metrics HTTP
//
// # Configuration
//
// Settings are loaded from environment variables, an optional YAML
// file (CONFIG_PATH or ./config.yaml), and built-in defaults. See the
// config package for the full variable list. Common ones:
//
//	export CATALOG_PATH=/data/glowbase.duckdb
//	export ARTIFACTS_DIR=/data/models
//	export TRAIN_INTERVAL=12h
//	export METRICS_ADDR=:9090
//	./recommenderd
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the supervisor tree
// stops its services, the feedback pipeline drains, and the catalog
// and feedback log are closed.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/catalog"
	"github.com/glowbase/recommender/internal/config"
	"github.com/glowbase/recommender/internal/feedback"
	"github.com/glowbase/recommender/internal/logging"
	"github.com/glowbase/recommender/internal/metrics"
	"github.com/glowbase/recommender/internal/recommend/artifact"
	"github.com/glowbase/recommender/internal/recommend/engine"
	"github.com/glowbase/recommender/internal/service"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "config file path")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		boot := logging.New(logging.Options{})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	log.Info().Str("version", version).Msg("starting glowbase recommender")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("daemon exited with error")
	}
	log.Info().Msg("shutdown complete")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.AppUptime.Set(time.Since(start).Seconds())
			}
		}
	}()

	store, err := catalog.Open(cfg.Catalog.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	artifacts, err := artifact.NewStore(cfg.Artifacts.Dir, cfg.Engine.Limits.RetainVersions, log)
	if err != nil {
		return err
	}

	journal, err := feedback.OpenLog(cfg.Feedback.LogDir, log)
	if err != nil {
		return err
	}
	defer journal.Close()

	pipeline := feedback.NewPipeline(cfg.Feedback.Buffer, log)
	defer pipeline.Close()

	eng, err := engine.New(&cfg.Engine, artifacts, store, pipeline, log)
	if err != nil {
		return err
	}

	tree := service.NewTree(logging.NewSlog(log), service.DefaultTreeConfig())
	tree.AddPipelineService(service.NewFeedbackService(
		feedback.NewConsumer(pipeline, journal, store, log), log))
	tree.AddPipelineService(service.NewRetrainService(eng, service.RetrainConfig{
		Interval:  cfg.Training.Interval,
		OnStartup: cfg.Training.OnStartup,
		Evaluate:  cfg.Training.Evaluate,
	}, log))
	tree.AddOpsService(service.NewHTTPService(
		service.NewMetricsServer(cfg.Server.MetricsAddr, cfg.Server.Timeout, eng.ServingVersion),
		cfg.Server.Timeout))

	log.Info().
		Str("catalog", cfg.Catalog.Path).
		Str("artifacts", cfg.Artifacts.Dir).
		Str("metrics_addr", cfg.Server.MetricsAddr).
		Msg("supervisor tree starting")
	return tree.Serve(ctx)
}

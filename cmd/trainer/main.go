// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package main is the one-shot training tool. It loads the catalog,
// trains a model, optionally runs k-fold cross-validation, and
// publishes the artifact the daemon serves from.
//
// Usage:
//
//	trainer [flags]
//
//	-config path    explicit config file (overrides CONFIG_PATH search)
//	-evaluate       run cross-validation and embed metrics
//	-folds n        override the configured fold count
//	-report path    write the evaluation report as JSON
//	-compare path   paired t-test against a previously saved report
//	-dry-run        train and report without publishing
//	-versions       list published artifact versions and exit
//
// Exit code is nonzero when training fails, so the tool composes with
// cron and CI pipelines.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/catalog"
	"github.com/glowbase/recommender/internal/config"
	"github.com/glowbase/recommender/internal/logging"
	"github.com/glowbase/recommender/internal/recommend/artifact"
	"github.com/glowbase/recommender/internal/recommend/engine"
	"github.com/glowbase/recommender/internal/recommend/eval"
)

type options struct {
	evaluate    bool
	dryRun      bool
	versions    bool
	folds       int
	reportPath  string
	comparePath string
}

func main() {
	var (
		configPath = flag.String("config", "", "config file path")
		opts       options
	)
	flag.BoolVar(&opts.evaluate, "evaluate", false, "run cross-validation and embed metrics")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "train without publishing")
	flag.BoolVar(&opts.versions, "versions", false, "list published artifact versions")
	flag.IntVar(&opts.folds, "folds", 0, "override configured fold count")
	flag.StringVar(&opts.reportPath, "report", "", "write the evaluation report as JSON")
	flag.StringVar(&opts.comparePath, "compare", "", "compare against a saved report JSON")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg, log, opts); err != nil {
		log.Error().Err(err).Msg("training failed")
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(cfg *config.Config, log zerolog.Logger, opts options) error {
	store, err := artifact.NewStore(cfg.Artifacts.Dir, cfg.Engine.Limits.RetainVersions, log)
	if err != nil {
		return err
	}

	if opts.versions {
		names, err := store.Versions()
		if err != nil {
			return err
		}
		current := store.CurrentVersion()
		for _, name := range names {
			marker := "  "
			if name == current {
				marker = "* "
			}
			fmt.Println(marker + name)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.folds > 0 {
		cfg.Engine.Evaluation.Folds = opts.folds
		if err := cfg.Engine.Validate(); err != nil {
			return err
		}
	}
	evaluate := opts.evaluate || opts.reportPath != "" || opts.comparePath != ""

	data, err := catalog.Open(cfg.Catalog.Path, log)
	if err != nil {
		return err
	}
	defer data.Close()

	eng, err := engine.New(&cfg.Engine, store, data, nil, log)
	if err != nil {
		return err
	}

	res, err := eng.Train(ctx, engine.TrainOptions{Evaluate: evaluate, DryRun: opts.dryRun})
	if err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Printf("dry run: %d products, %d interactions, vocabulary %d, took %s\n",
			res.Products, res.Interactions, res.VocabSize, res.Duration.Round(time.Millisecond))
	} else {
		fmt.Printf("published %s: %d products, %d interactions, vocabulary %d, took %s\n",
			res.Version, res.Products, res.Interactions, res.VocabSize, res.Duration.Round(time.Millisecond))
	}
	printReport(res.Report)

	if opts.reportPath != "" && res.Report != nil {
		if err := writeReport(opts.reportPath, res.Report); err != nil {
			return err
		}
	}
	if opts.comparePath != "" && res.Report != nil {
		if err := compareReports(res.Report, opts.comparePath); err != nil {
			return err
		}
	}
	return nil
}

func printReport(report *eval.Report) {
	if report == nil {
		return
	}
	fmt.Printf("evaluation: %d/%d folds scored (seed %d)\n",
		report.Scored, report.Folds, report.Seed)
	names := make([]string, 0, len(report.Metrics))
	for name := range report.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		summary := report.Metrics[name]
		fmt.Printf("  %s: %.4f (std %.4f over %d folds)\n", name, summary.Mean, summary.Std, summary.N)
	}
}

func writeReport(path string, report *eval.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("report written to %s\n", path)
	return nil
}

// compareReports runs a paired t-test per shared metric between this
// run and a previously saved one.
func compareReports(current *eval.Report, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read baseline report: %w", err)
	}
	baseline := &eval.Report{}
	if err := json.Unmarshal(data, baseline); err != nil {
		return fmt.Errorf("parse baseline report: %w", err)
	}

	names := make([]string, 0, len(current.Metrics))
	for name := range current.Metrics {
		if _, ok := baseline.Metrics[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	fmt.Printf("comparison against %s (alpha 0.05):\n", path)
	for _, name := range names {
		cmp, err := eval.Compare(current, baseline, name, 0.05)
		if err != nil {
			return err
		}
		verdict := "not significant"
		if cmp.Significant {
			verdict = "significant"
		}
		fmt.Printf("  %s: diff %+.4f, t=%.3f, df=%d, p=%.4f (%s)\n",
			name, cmp.MeanDiff, cmp.TStat, cmp.DF, cmp.PValue, verdict)
	}
	return nil
}

// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/recommend"
	"github.com/glowbase/recommender/internal/recommend/engine"
)

// Trainer is the slice of the serving engine the retraining loop
// needs. Satisfied by *engine.Engine.
type Trainer interface {
	Train(ctx context.Context, opts engine.TrainOptions) (*engine.TrainResult, error)
	Reload() error
	ServingVersion() string
}

// RetrainConfig controls the retraining loop.
type RetrainConfig struct {
	// Interval between scheduled runs.
	Interval time.Duration

	// OnStartup trains immediately when no published artifact can be
	// loaded at boot.
	OnStartup bool

	// Evaluate runs cross-validation as part of each training run.
	Evaluate bool

	// RunTimeout bounds a single training run. Defaults to 30 minutes.
	RunTimeout time.Duration
}

// RetrainService periodically retrains and republishes the model.
type RetrainService struct {
	trainer Trainer
	cfg     RetrainConfig
	log     zerolog.Logger
}

// NewRetrainService wraps a trainer for supervision.
func NewRetrainService(trainer Trainer, cfg RetrainConfig, log zerolog.Logger) *RetrainService {
	if cfg.Interval <= 0 {
		cfg.Interval = 12 * time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}
	return &RetrainService{
		trainer: trainer,
		cfg:     cfg,
		log:     log.With().Str("service", "retrain").Logger(),
	}
}

// Serve implements suture.Service. A failed run is logged and retried
// on the next tick; the previously published model keeps serving.
func (s *RetrainService) Serve(ctx context.Context) error {
	s.log.Info().
		Dur("interval", s.cfg.Interval).
		Bool("evaluate", s.cfg.Evaluate).
		Msg("retrain service starting")

	s.bootstrap(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("retrain service shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := s.train(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn().Err(err).Msg("scheduled training failed")
			}
		}
	}
}

// bootstrap ensures a model is serving at startup: load the published
// artifact if one exists, otherwise train one when configured to.
func (s *RetrainService) bootstrap(ctx context.Context) {
	if s.trainer.ServingVersion() != "" {
		return
	}
	if err := s.trainer.Reload(); err == nil {
		s.log.Info().Str("version", s.trainer.ServingVersion()).Msg("loaded published model")
		return
	} else if !errors.Is(err, recommend.ErrModelUnavailable) {
		s.log.Warn().Err(err).Msg("model load failed")
	}

	if !s.cfg.OnStartup {
		s.log.Warn().Msg("no published model and startup training disabled")
		return
	}
	if err := s.train(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn().Err(err).Msg("startup training failed, will retry on schedule")
	}
}

func (s *RetrainService) train(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	res, err := s.trainer.Train(runCtx, engine.TrainOptions{Evaluate: s.cfg.Evaluate})
	if err != nil {
		return err
	}
	s.log.Info().
		Str("version", res.Version).
		Int("products", res.Products).
		Int("interactions", res.Interactions).
		Dur("duration", res.Duration).
		Msg("model retrained")
	return nil
}

// String returns the service name for supervisor logs.
func (s *RetrainService) String() string {
	return "retrain-service"
}

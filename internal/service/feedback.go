// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/glowbase/recommender/internal/feedback"
)

// FeedbackService runs the feedback consumer under supervision.
type FeedbackService struct {
	consumer *feedback.Consumer
	log      zerolog.Logger
}

// NewFeedbackService wraps a consumer for supervision.
func NewFeedbackService(consumer *feedback.Consumer, log zerolog.Logger) *FeedbackService {
	return &FeedbackService{
		consumer: consumer,
		log:      log.With().Str("service", "feedback").Logger(),
	}
}

// Serve implements suture.Service. A nil return from the consumer
// means the pipeline channel closed for good, so the service must not
// be restarted into a dead subscription.
func (s *FeedbackService) Serve(ctx context.Context) error {
	s.log.Info().Msg("feedback service starting")
	err := s.consumer.Run(ctx)
	if err == nil {
		s.log.Info().Msg("feedback pipeline closed")
		return suture.ErrDoNotRestart
	}
	return err
}

// String returns the service name for supervisor logs.
func (s *FeedbackService) String() string {
	return "feedback-service"
}

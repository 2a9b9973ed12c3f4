// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/metrics"
	"github.com/glowbase/recommender/internal/recommend"
)

// Topic carries recorded shopper interactions from the serving path to
// the persistence consumer.
const Topic = "feedback.recorded"

// Recorder mirrors interactions into the catalog so training runs see
// them. The catalog store satisfies this.
type Recorder interface {
	InsertInteraction(ctx context.Context, in recommend.Interaction) error
}

// Pipeline bundles an in-process publisher and subscriber around one
// Watermill channel. The publisher side implements the engine's
// feedback sink.
type Pipeline struct {
	channel *gochannel.GoChannel
	log     zerolog.Logger
}

// NewPipeline creates the feedback channel. Buffering decouples the
// request path from persistence latency. Persistent retains events
// published before the consumer's subscription is up, so nothing
// acked on the request path is lost across startup or a consumer
// restart.
func NewPipeline(buffer int64, log zerolog.Logger) *Pipeline {
	plog := log.With().Str("component", "feedback_pipeline").Logger()
	channel := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: buffer,
			Persistent:          true,
		},
		watermillLogger{log: plog},
	)
	return &Pipeline{channel: channel, log: plog}
}

// Record publishes one interaction to the feedback topic.
func (p *Pipeline) Record(ctx context.Context, in recommend.Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal feedback event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := p.channel.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish feedback event: %w", err)
	}
	return nil
}

// Close shuts the channel down. In-flight messages already handed to a
// consumer are still processed.
func (p *Pipeline) Close() error {
	return p.channel.Close()
}

// Consumer drains the feedback topic, appending each event to the
// durable log and mirroring it into the catalog.
type Consumer struct {
	pipeline *Pipeline
	journal  *Log
	recorder Recorder
	log      zerolog.Logger
}

// NewConsumer wires a consumer. recorder may be nil when the catalog
// mirror is not wanted (replay tooling writes the catalog itself).
func NewConsumer(p *Pipeline, journal *Log, recorder Recorder, log zerolog.Logger) *Consumer {
	return &Consumer{
		pipeline: p,
		journal:  journal,
		recorder: recorder,
		log:      log.With().Str("component", "feedback_consumer").Logger(),
	}
}

// Run subscribes and processes events until ctx is cancelled or the
// channel closes. Every message is acked: once an event is in the
// durable log a catalog failure must not trigger redelivery, and a
// decode failure will never succeed on retry.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.pipeline.channel.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("subscribe feedback topic: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var in recommend.Interaction
	if err := json.Unmarshal(msg.Payload, &in); err != nil {
		metrics.FeedbackErrors.WithLabelValues("decode").Inc()
		c.log.Error().Err(err).Str("message_id", msg.UUID).Msg("undecodable feedback event dropped")
		return
	}

	err := c.journal.Append(ctx, in)
	metrics.RecordFeedbackPersist(err)
	if err != nil {
		c.log.Error().Err(err).
			Int64("user_id", in.UserID).
			Int64("product_id", in.ProductID).
			Msg("feedback log append failed")
		return
	}

	if c.recorder == nil {
		return
	}
	if err := c.recorder.InsertInteraction(ctx, in); err != nil && !errors.Is(err, context.Canceled) {
		metrics.FeedbackErrors.WithLabelValues("persist").Inc()
		c.log.Warn().Err(err).
			Int64("user_id", in.UserID).
			Int64("product_id", in.ProductID).
			Msg("catalog mirror failed, event retained in log")
	}
}

// Replay feeds every logged interaction into the recorder. Used to
// catch the catalog up after an outage.
func (c *Consumer) Replay(ctx context.Context, recorder Recorder) (int, error) {
	entries, err := c.journal.All(ctx)
	if err != nil {
		return 0, err
	}
	for i, in := range entries {
		if err := recorder.InsertInteraction(ctx, in); err != nil {
			return i, fmt.Errorf("replay entry %d: %w", i, err)
		}
	}
	return len(entries), nil
}

// watermillLogger adapts zerolog to Watermill's logging interface.
type watermillLogger struct {
	log zerolog.Logger
}

func (w watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.event(w.log.Error().Err(err), msg, fields)
}

func (w watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.event(w.log.Info(), msg, fields)
}

func (w watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.event(w.log.Debug(), msg, fields)
}

func (w watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.event(w.log.Trace(), msg, fields)
}

func (w watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	ctx := w.log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return watermillLogger{log: ctx.Logger()}
}

func (w watermillLogger) event(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

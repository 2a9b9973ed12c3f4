// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package feedback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/recommend"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := OpenLog("", zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenLog: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// captureRecorder collects mirrored interactions and signals arrival.
type captureRecorder struct {
	mu   sync.Mutex
	seen []recommend.Interaction
	ch   chan struct{}
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{ch: make(chan struct{}, 64)}
}

func (r *captureRecorder) InsertInteraction(ctx context.Context, in recommend.Interaction) error {
	r.mu.Lock()
	r.seen = append(r.seen, in)
	r.mu.Unlock()
	r.ch <- struct{}{}
	return nil
}

func (r *captureRecorder) snapshot() []recommend.Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recommend.Interaction(nil), r.seen...)
}

func testInteraction(user, product int64, offset time.Duration) recommend.Interaction {
	return recommend.Interaction{
		UserID:    user,
		ProductID: product,
		Kind:      recommend.KindRating,
		Value:     4.0,
		Timestamp: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC).Add(offset),
	}
}

func TestLogAppendAndAll(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	inserts := []recommend.Interaction{
		testInteraction(1, 10, 0),
		testInteraction(2, 20, time.Second),
		testInteraction(3, 30, 2*time.Second),
	}
	for _, in := range inserts {
		if err := l.Append(ctx, in); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := l.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for i, in := range got {
		if in.UserID != inserts[i].UserID || in.ProductID != inserts[i].ProductID {
			t.Errorf("entry %d out of order: %+v", i, in)
		}
		if in.Kind != recommend.KindRating || in.Value != 4.0 {
			t.Errorf("entry %d lost fields: %+v", i, in)
		}
	}

	n, err := l.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestLogSameTimestampKeepsBoth(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	// Identical timestamps must not collide on key.
	if err := l.Append(ctx, testInteraction(1, 10, 0)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append(ctx, testInteraction(2, 20, 0)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := l.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}
}

func TestPipelineDeliversToLogAndRecorder(t *testing.T) {
	l := openTestLog(t)
	recorder := newCaptureRecorder()
	pipeline := NewPipeline(16, zerolog.Nop())
	defer pipeline.Close()

	consumer := NewConsumer(pipeline, l, recorder, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	events := []recommend.Interaction{
		testInteraction(1, 10, 0),
		testInteraction(1, 11, time.Second),
		testInteraction(2, 10, 2*time.Second),
	}
	for _, in := range events {
		if err := pipeline.Record(ctx, in); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	for range events {
		select {
		case <-recorder.ch:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for consumer")
		}
	}

	cancel()
	if err := <-done; err != nil && err != context.Canceled {
		t.Errorf("Run returned %v", err)
	}

	if got := recorder.snapshot(); len(got) != 3 {
		t.Errorf("recorder saw %d events, want 3", len(got))
	}
	logged, err := l.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(logged) != 3 {
		t.Errorf("log holds %d events, want 3", len(logged))
	}
}

func TestPipelineRetainsEventsPublishedBeforeConsumer(t *testing.T) {
	l := openTestLog(t)
	recorder := newCaptureRecorder()
	pipeline := NewPipeline(16, zerolog.Nop())
	defer pipeline.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record acks before any consumer has subscribed. The events must
	// still reach the log and recorder once the consumer comes up.
	events := []recommend.Interaction{
		testInteraction(1, 10, 0),
		testInteraction(2, 11, time.Second),
		testInteraction(3, 12, 2*time.Second),
	}
	for _, in := range events {
		if err := pipeline.Record(ctx, in); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	consumer := NewConsumer(pipeline, l, recorder, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	for range events {
		select {
		case <-recorder.ch:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for consumer to drain retained events")
		}
	}

	cancel()
	if err := <-done; err != nil && err != context.Canceled {
		t.Errorf("Run returned %v", err)
	}

	logged, err := l.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(logged) != 3 {
		t.Errorf("log holds %d events, want 3", len(logged))
	}
}

func TestRecordAfterCancelFails(t *testing.T) {
	pipeline := NewPipeline(1, zerolog.Nop())
	defer pipeline.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pipeline.Record(ctx, testInteraction(1, 10, 0)); err == nil {
		t.Error("Record with cancelled context should fail")
	}
}

func TestReplay(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		if err := l.Append(ctx, testInteraction(i+1, 100+i, time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	pipeline := NewPipeline(1, zerolog.Nop())
	defer pipeline.Close()
	consumer := NewConsumer(pipeline, l, nil, zerolog.Nop())

	recorder := newCaptureRecorder()
	n, err := consumer.Replay(ctx, recorder)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if n != 5 {
		t.Errorf("replayed %d entries, want 5", n)
	}
	if got := recorder.snapshot(); len(got) != 5 || got[0].UserID != 1 || got[4].UserID != 5 {
		t.Errorf("replay order wrong: %+v", got)
	}
}

// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package feedback

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/glowbase/recommender/internal/metrics"
	"github.com/glowbase/recommender/internal/recommend"
)

// entryKeyPrefix namespaces feedback entries so the log can share a
// Badger directory with other keyspaces later without rekeying.
const entryKeyPrefix = "feedback:"

// Log is an append-only store of shopper interactions backed by
// BadgerDB. Keys embed a zero-padded nanosecond timestamp so iteration
// returns entries in arrival order.
type Log struct {
	db  *badger.DB
	log zerolog.Logger
}

// OpenLog opens (or creates) a feedback log at dir. An empty dir opens
// an in-memory log, which is only useful for tests.
func OpenLog(dir string, log zerolog.Logger) (*Log, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open feedback log: %w", err)
	}

	l := &Log{
		db:  db,
		log: log.With().Str("component", "feedback_log").Logger(),
	}
	if n, err := l.Count(); err == nil {
		metrics.FeedbackLogEntries.Set(float64(n))
	}
	return l, nil
}

// Append durably records one interaction. The entry key is unique even
// when two events share a timestamp.
func (l *Log) Append(ctx context.Context, in recommend.Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}
	key := fmt.Sprintf("%s%020d:%s", entryKeyPrefix, in.Timestamp.UnixNano(), uuid.NewString()[:8])

	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("append feedback entry: %w", err)
	}

	metrics.FeedbackLogEntries.Inc()
	return nil
}

// All returns every logged interaction in arrival order.
func (l *Log) All(ctx context.Context) ([]recommend.Interaction, error) {
	var out []recommend.Interaction

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var in recommend.Interaction
				if err := json.Unmarshal(val, &in); err != nil {
					return fmt.Errorf("unmarshal feedback entry: %w", err)
				}
				out = append(out, in)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of logged interactions.
func (l *Log) Count() (int, error) {
	n := 0
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close flushes and closes the underlying database.
func (l *Log) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close feedback log: %w", err)
	}
	return nil
}

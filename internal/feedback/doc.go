// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package feedback moves shopper interaction events from the serving
// path to durable storage without blocking recommendation requests.
//
// The serving engine publishes each recorded interaction to an
// in-process Watermill channel. A consumer drains that channel,
// appends every event to a BadgerDB write-ahead log and mirrors it
// into the catalog database so the next training run picks it up.
// The Badger log survives catalog outages: events persisted there can
// be replayed into the catalog once it recovers.
//
// Delivery is at-most-once past the log append. A failed catalog
// insert is counted and logged but not retried inline, because the
// event is already durable in the log.
package feedback

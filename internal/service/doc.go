// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

// Package service wraps the long-running pieces of the daemon as
// Suture-supervised services and assembles them into a tree.
//
// The tree has two layers. The pipeline layer holds the feedback
// consumer and the retraining loop; the ops layer holds the metrics
// and health HTTP listener. A crash in one layer restarts only that
// layer's services, so a training panic never takes down /metrics.
package service

// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the recommendation pipeline end to end using the
Prometheus client library.

# Overview

The package provides metrics for:
  - Recommendation serving latency, algorithm mix, and result counts
  - Model training duration, corpus size, and publish outcomes
  - Model artifact load attempts and encoded size
  - Catalog store (DuckDB) query performance
  - Feedback ingestion pipeline throughput and errors
  - Circuit breaker state

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:9090/metrics

# Usage Example

	start := time.Now()
	recs, err := engine.Recommend(ctx, userID, 10, filters)
	metrics.RecordRecommendation("recommend", "hybrid", len(recs), time.Since(start), err)

Example PromQL queries:

	# Serving p95 latency
	histogram_quantile(0.95, rate(recommendation_duration_seconds_bucket[5m]))

	# Cold-start share of traffic
	rate(recommendation_cold_start_total[5m]) / rate(recommendation_requests_total[5m])

	# Training success rate
	rate(model_training_runs_total{outcome="success"}[1h])

# Thread Safety

All metric recording functions are safe for concurrent use; the Prometheus
client library handles synchronization internally.

# Cardinality Management

Labels stay low-cardinality: operation and algorithm names are fixed
constants, and user or product identifiers never become labels.
*/
package metrics

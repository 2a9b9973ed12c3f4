// Glowbase - Cosmetics Catalog Analytics and Recommendations
// Copyright 2026 Glowbase Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glowbase/recommender

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Recommendation serving latency and outcomes
// - Model training and artifact publishing
// - Catalog store (DuckDB) query performance
// - Feedback ingestion pipeline
// - Circuit breaker state

var (
	// Serving Metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"operation", "algorithm", "outcome"}, // operation: "recommend", "similar"
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Recommendation request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	RecommendationResultCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_result_count",
			Help:    "Number of items returned per recommendation request",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	ColdStartRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cold_start_total",
			Help: "Total number of requests served with cold-start weighting",
		},
	)

	// Training Metrics
	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Duration of full model training runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_training_runs_total",
			Help: "Total number of training runs",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	TrainingCorpusSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_training_corpus_products",
			Help: "Product count of the most recent training corpus",
		},
	)

	TrainingInteractions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_training_interactions",
			Help: "Interaction count of the most recent training corpus",
		},
	)

	ModelVocabSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_vocabulary_terms",
			Help: "Vocabulary size of the currently served model",
		},
	)

	ModelLastPublished = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_last_published_timestamp",
			Help: "Unix timestamp of the last published model artifact",
		},
	)

	// Artifact Store Metrics
	ArtifactLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_artifact_loads_total",
			Help: "Total number of model artifact load attempts",
		},
		[]string{"outcome"}, // "success", "unavailable"
	)

	ArtifactBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_artifact_bytes",
			Help: "Encoded size of the most recently published artifact",
		},
	)

	// Catalog Store Metrics
	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_query_duration_seconds",
			Help:    "Duration of catalog store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CatalogQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_query_errors_total",
			Help: "Total number of catalog store query errors",
		},
		[]string{"operation"},
	)

	// Feedback Pipeline Metrics
	FeedbackPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_events_published_total",
			Help: "Total number of feedback events published to the pipeline",
		},
		[]string{"kind"}, // "view", "favorite", "rating"
	)

	FeedbackPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_events_persisted_total",
			Help: "Total number of feedback events persisted to the log",
		},
	)

	FeedbackErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_errors_total",
			Help: "Total number of feedback pipeline errors",
		},
		[]string{"stage"}, // "publish", "persist", "decode"
	)

	FeedbackLogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedback_log_entries",
			Help: "Current number of entries in the feedback log",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordRecommendation records one serving request.
func RecordRecommendation(operation, algorithm string, results int, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	RecommendationRequests.WithLabelValues(operation, algorithm, outcome).Inc()
	RecommendationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err == nil {
		RecommendationResultCount.Observe(float64(results))
	}
}

// RecordTraining records a full training run.
func RecordTraining(duration time.Duration, products, interactions int, err error) {
	TrainingDuration.Observe(duration.Seconds())
	if err != nil {
		TrainingRuns.WithLabelValues("failure").Inc()
		return
	}
	TrainingRuns.WithLabelValues("success").Inc()
	TrainingCorpusSize.Set(float64(products))
	TrainingInteractions.Set(float64(interactions))
	ModelLastPublished.Set(float64(time.Now().Unix()))
}

// RecordArtifactLoad records a model artifact load attempt.
func RecordArtifactLoad(err error) {
	if err != nil {
		ArtifactLoads.WithLabelValues("unavailable").Inc()
		return
	}
	ArtifactLoads.WithLabelValues("success").Inc()
}

// RecordCatalogQuery records a catalog store query.
func RecordCatalogQuery(operation string, duration time.Duration, err error) {
	CatalogQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		CatalogQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordFeedbackPublish records a feedback event entering the pipeline.
func RecordFeedbackPublish(kind string, err error) {
	if err != nil {
		FeedbackErrors.WithLabelValues("publish").Inc()
		return
	}
	FeedbackPublished.WithLabelValues(kind).Inc()
}

// RecordFeedbackPersist records a feedback event reaching the log.
func RecordFeedbackPersist(err error) {
	if err != nil {
		FeedbackErrors.WithLabelValues("persist").Inc()
		return
	}
	FeedbackPersisted.Inc()
}

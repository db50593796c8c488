// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package metrics provides Prometheus instrumentation for the training
// pipeline: API request latency and throughput, object storage transfers,
// vectorization, and training job submissions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Object storage metrics
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objectstore_downloads_total",
			Help: "Total number of object downloads",
		},
		[]string{"status"}, // "success", "failure"
	)

	DownloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "objectstore_download_duration_seconds",
			Help:    "Duration of single object downloads in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	UploadedParts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "objectstore_uploaded_parts_total",
			Help: "Total number of uploaded training data parts",
		},
		[]string{"channel"}, // "train", "val"
	)

	UploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "objectstore_uploaded_bytes_total",
			Help: "Total bytes uploaded to object storage",
		},
	)

	// Vectorization metrics
	VectorizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vectorize_duration_seconds",
			Help:    "Duration of corpus vectorization in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	VectorizedDocuments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vectorize_documents_total",
			Help: "Total number of documents vectorized",
		},
	)

	VocabularySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vectorize_vocabulary_size",
			Help: "Size of the most recently fitted vocabulary",
		},
	)

	// Training job metrics
	TrainingJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_jobs_total",
			Help: "Total number of training job submissions",
		},
		[]string{"status"}, // "submitted", "failed"
	)

	// Content service circuit breaker metrics
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
			Help: "Total requests through circuit breakers",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)
)

// RecordAPIRequest records metrics for a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

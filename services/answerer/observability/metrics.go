// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the answerer.
//
// # Description
//
// Metrics cover request outcomes (pass, warn, escalate, fallback), final
// confidence distribution, hallucination and correction counts, and
// per-stage latency.
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "covegate"

// Subsystem for pipeline metrics
const pipelineSubsystem = "answerer"

// Outcome label values for RequestsTotal.
const (
	OutcomePass     = "pass"
	OutcomeWarn     = "warn"
	OutcomeEscalate = "escalate"
	OutcomeFallback = "fallback"
)

// Stage label values for StageDurationSeconds.
const (
	StageRetrieval    = "retrieval"
	StageGeneration   = "generation"
	StageVerification = "verification"
	StageTotal        = "total"
)

// PipelineMetrics holds all Prometheus metrics for the answer pipeline.
//
// Initialize once at startup via InitMetrics().
type PipelineMetrics struct {
	// RequestsTotal counts answered requests by outcome and language.
	// Labels: outcome (pass, warn, escalate, fallback), language (fr, en)
	RequestsTotal *prometheus.CounterVec

	// ConfidenceScore observes the final confidence of each answer.
	ConfidenceScore prometheus.Histogram

	// HallucinationsTotal counts answers flagged as hallucinated.
	HallucinationsTotal prometheus.Counter

	// CorrectionsTotal counts claim corrections applied to answers.
	CorrectionsTotal prometheus.Counter

	// StageDurationSeconds measures per-stage latency.
	// Labels: stage (retrieval, generation, verification, total)
	StageDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance of PipelineMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *PipelineMetrics

// InitMetrics creates and registers all pipeline metrics.
//
// # Description
//
// Should be called once at application startup. Panics if called twice
// (duplicate registration against the default Prometheus registry).
func InitMetrics() *PipelineMetrics {
	DefaultMetrics = &PipelineMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "requests_total",
				Help:      "Total answered requests by outcome and language",
			},
			[]string{"outcome", "language"},
		),

		ConfidenceScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "confidence_score",
				Help:      "Final confidence score distribution",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
		),

		HallucinationsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "hallucinations_total",
				Help:      "Total answers with a detected hallucination",
			},
		),

		CorrectionsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "corrections_total",
				Help:      "Total claim corrections applied to answers",
			},
		),

		StageDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: pipelineSubsystem,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"stage"},
		),
	}
	return DefaultMetrics
}

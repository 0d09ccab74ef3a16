// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package audit persists per-request quality metrics and review snapshots.
//
// Every evaluated answer produces one MetricsRecord; answers that fail the
// quality gate additionally produce a full Snapshot for human review.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/covegate/covegate/services/answerer/datatypes"
)

// MetricsRecord is one line of the metrics log.
type MetricsRecord struct {
	Timestamp                 time.Time `json:"timestamp"`
	RequestID                 string    `json:"request_id"`
	Question                  string    `json:"question"`
	SimilarityScore           float64   `json:"similarity_score"`
	VerifiedRatio             float64   `json:"verified_ratio"`
	AvgVerificationConfidence float64   `json:"avg_verification_confidence"`
	FinalConfidence           float64   `json:"final_confidence"`
	CitesOK                   bool      `json:"cites_ok"`
	HallucinationDetected     bool      `json:"hallucination_detected"`
	QualityPass               bool      `json:"quality_pass"`
	Escalate                  bool      `json:"escalate"`
	CorrectionsMade           int       `json:"corrections_made"`
	NumEvidence               int       `json:"num_evidence"`
	NumVerifications          int       `json:"num_verifications"`
	Language                  string    `json:"language"`
	ProcessingTimeMS          float64   `json:"processing_time_ms"`
	Grade                     string    `json:"grade,omitempty"`
}

// Snapshot captures everything a reviewer needs to judge a failed answer.
type Snapshot struct {
	ID            string                          `json:"id"`
	Timestamp     time.Time                       `json:"timestamp"`
	Question      string                          `json:"question"`
	FinalAnswer   string                          `json:"final_answer"`
	InitialAnswer string                          `json:"initial_answer,omitempty"`
	Evidence      []datatypes.EvidenceDocument    `json:"evidence,omitempty"`
	Verifications []datatypes.VerificationOutcome `json:"verification_results,omitempty"`
	Metrics       MetricsRecord                   `json:"metrics"`
}

// Sink receives audit records.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the pipeline records
// from every request goroutine.
type Sink interface {
	RecordMetrics(ctx context.Context, rec MetricsRecord) error
	RecordSnapshot(ctx context.Context, snap Snapshot) error
}

// NoopSink discards everything. Useful default when auditing is disabled.
type NoopSink struct{}

func (NoopSink) RecordMetrics(context.Context, MetricsRecord) error { return nil }
func (NoopSink) RecordSnapshot(context.Context, Snapshot) error     { return nil }

// BufferedSink collects records in memory for inspection in tests.
type BufferedSink struct {
	mu        sync.Mutex
	metrics   []MetricsRecord
	snapshots []Snapshot
}

func (b *BufferedSink) RecordMetrics(_ context.Context, rec MetricsRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = append(b.metrics, rec)
	return nil
}

func (b *BufferedSink) RecordSnapshot(_ context.Context, snap Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, snap)
	return nil
}

// Metrics returns a copy of the recorded metrics.
func (b *BufferedSink) Metrics() []MetricsRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]MetricsRecord, len(b.metrics))
	copy(out, b.metrics)
	return out
}

// Snapshots returns a copy of the recorded snapshots.
func (b *BufferedSink) Snapshots() []Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Snapshot, len(b.snapshots))
	copy(out, b.snapshots)
	return out
}

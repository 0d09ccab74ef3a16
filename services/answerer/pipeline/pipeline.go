// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline orchestrates the verified-answer flow: retrieve, rerank,
// generate, verify, gate, audit.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/covegate/covegate/services/answerer/audit"
	"github.com/covegate/covegate/services/answerer/datatypes"
	"github.com/covegate/covegate/services/answerer/gate"
	"github.com/covegate/covegate/services/answerer/generation"
	"github.com/covegate/covegate/services/answerer/language"
	"github.com/covegate/covegate/services/answerer/observability"
	"github.com/covegate/covegate/services/answerer/retrieval"
	"github.com/covegate/covegate/services/answerer/verification"
)

var tracer = otel.Tracer("covegate.answerer.pipeline")

// Retriever is the retrieval stage as the pipeline sees it.
type Retriever interface {
	Retrieve(ctx context.Context, query, collection string, sourceTags []string, topK int) []datatypes.EvidenceDocument
	Rerank(ctx context.Context, query string, docs []datatypes.EvidenceDocument) []datatypes.EvidenceDocument
}

// Generator is the generation stage as the pipeline sees it.
type Generator interface {
	Generate(ctx context.Context, query string, evidence []datatypes.EvidenceDocument, lang string) string
}

// Verifier is the verification stage as the pipeline sees it.
type Verifier interface {
	Verify(ctx context.Context, query, answer string, evidence []datatypes.EvidenceDocument, lang string) verification.Result
}

// Deps wires a Pipeline. Sink and Metrics may be nil; auditing degrades to
// a no-op and metrics are skipped.
type Deps struct {
	Retriever Retriever
	Generator Generator
	Verifier  Verifier
	Gate      *gate.Gate
	Sink      audit.Sink
	Metrics   *observability.PipelineMetrics
}

// Pipeline answers one question end to end.
//
// # Description
//
// The pipeline never fails a request: every stage degrades (empty evidence,
// apology answer, conservative verification) and the gate decides how much
// to trust what survived. The caller always receives a PipelineResult.
//
// # Thread Safety
//
// Safe for concurrent use; each request is independent.
type Pipeline struct {
	retriever Retriever
	generator Generator
	verifier  Verifier
	gate      *gate.Gate
	sink      audit.Sink
	metrics   *observability.PipelineMetrics
}

// New builds a pipeline from its stages.
func New(deps Deps) *Pipeline {
	if deps.Sink == nil {
		deps.Sink = audit.NoopSink{}
	}
	if deps.Gate == nil {
		deps.Gate = gate.New(0, 0)
	}
	return &Pipeline{
		retriever: deps.Retriever,
		generator: deps.Generator,
		verifier:  deps.Verifier,
		gate:      deps.Gate,
		sink:      deps.Sink,
		metrics:   deps.Metrics,
	}
}

// Answer runs the full verified-generation flow for one request.
//
// # Inputs
//
//   - ctx: Context for cancellation and tracing.
//   - req: validated request with defaults applied.
//
// # Outputs
//
//   - *datatypes.PipelineResult: always non-nil, float fields rounded to
//     3 decimals.
func (p *Pipeline) Answer(ctx context.Context, req *datatypes.AnswerRequest) *datatypes.PipelineResult {
	ctx, span := tracer.Start(ctx, "Pipeline.Answer")
	defer span.End()

	start := time.Now()
	lang := language.Detect(req.Question)
	span.SetAttributes(
		attribute.String("pipeline.request_id", req.RequestID),
		attribute.String("pipeline.language", lang),
	)

	retrievalStart := time.Now()
	evidence := p.retriever.Retrieve(ctx, req.Question, req.Collection, req.SourceTags, req.MaxDocuments)
	p.observeStage(observability.StageRetrieval, retrievalStart)

	grade := retrieval.Grade(evidence, 0)
	slog.Info("Evidence retrieved", "request_id", req.RequestID, "count", len(evidence), "grade", string(grade))

	if grade == retrieval.GradeNotRelevant {
		return p.fallback(ctx, req, lang, grade, start)
	}

	evidence = p.retriever.Rerank(ctx, req.Question, evidence)

	generationStart := time.Now()
	initial := p.generator.Generate(ctx, req.Question, evidence, lang)
	p.observeStage(observability.StageGeneration, generationStart)

	final := initial
	var outcomes []datatypes.VerificationOutcome
	verifierHallucination := false
	corrections := 0

	if req.VerificationEnabled() {
		verificationStart := time.Now()
		res := p.verifier.Verify(ctx, req.Question, initial, evidence, lang)
		p.observeStage(observability.StageVerification, verificationStart)

		final = res.FinalAnswer
		outcomes = res.Outcomes
		verifierHallucination = res.HallucinationDetected
		corrections = res.CorrectionsMade
	}

	eval := p.gate.Evaluate(final, evidence, outcomes, verifierHallucination)

	if !eval.QualityPass && eval.Escalate {
		slog.Warn("Answer escalated to human review",
			"request_id", req.RequestID, "confidence", eval.ConfidenceScore)
		final = generation.EscalationMessage(lang)
	}

	result := &datatypes.PipelineResult{
		Query:                 req.Question,
		FinalAnswer:           final,
		Evidence:              evidence,
		Verifications:         outcomes,
		ConfidenceScore:       eval.ConfidenceScore,
		HallucinationDetected: eval.HallucinationDetected,
		CorrectionsMade:       corrections,
		QualityPass:           eval.QualityPass,
		Escalate:              eval.Escalate,
		Language:              lang,
		ProcessingTimeMS:      float64(time.Since(start)) / float64(time.Millisecond),
	}
	if final != initial {
		result.InitialAnswer = initial
	}
	result.RoundScores()

	p.recordAudit(ctx, req, result, eval, grade)
	p.observeOutcome(result, lang)
	p.observeStage(observability.StageTotal, start)
	return result
}

// fallback short-circuits the pipeline when retrieval found nothing usable.
// The canned message replaces generation, confidence is zero, and the
// request escalates by threshold.
func (p *Pipeline) fallback(ctx context.Context, req *datatypes.AnswerRequest, lang string, grade retrieval.RelevanceGrade, start time.Time) *datatypes.PipelineResult {
	result := &datatypes.PipelineResult{
		Query:            req.Question,
		FinalAnswer:      generation.FallbackMessage(lang),
		Evidence:         []datatypes.EvidenceDocument{},
		ConfidenceScore:  0,
		QualityPass:      false,
		Escalate:         true,
		Language:         lang,
		ProcessingTimeMS: float64(time.Since(start)) / float64(time.Millisecond),
	}
	result.RoundScores()

	p.recordAudit(ctx, req, result, gate.Evaluation{}, grade)
	if p.metrics != nil {
		p.metrics.RequestsTotal.WithLabelValues(observability.OutcomeFallback, lang).Inc()
		p.metrics.ConfidenceScore.Observe(0)
	}
	p.observeStage(observability.StageTotal, start)
	return result
}

// recordAudit emits the metrics line and, for non-passing answers, a review
// snapshot. Audit failures are logged and never affect the response.
func (p *Pipeline) recordAudit(ctx context.Context, req *datatypes.AnswerRequest, result *datatypes.PipelineResult, eval gate.Evaluation, grade retrieval.RelevanceGrade) {
	rec := audit.MetricsRecord{
		Timestamp:                 time.Now().UTC(),
		RequestID:                 req.RequestID,
		Question:                  req.Question,
		SimilarityScore:           datatypes.Round3(eval.AvgEvidenceScore),
		VerifiedRatio:             datatypes.Round3(eval.VerifiedRatio),
		AvgVerificationConfidence: datatypes.Round3(eval.AvgVerificationConfidence),
		FinalConfidence:           result.ConfidenceScore,
		CitesOK:                   eval.CitesOK,
		HallucinationDetected:     result.HallucinationDetected,
		QualityPass:               result.QualityPass,
		Escalate:                  result.Escalate,
		CorrectionsMade:           result.CorrectionsMade,
		NumEvidence:               len(result.Evidence),
		NumVerifications:          len(result.Verifications),
		Language:                  result.Language,
		ProcessingTimeMS:          result.ProcessingTimeMS,
		Grade:                     string(grade),
	}
	if err := p.sink.RecordMetrics(ctx, rec); err != nil {
		slog.Error("Failed to record audit metrics", "request_id", req.RequestID, "error", err)
	}

	if result.QualityPass {
		return
	}
	snap := audit.Snapshot{
		ID:            strings.ReplaceAll(uuid.NewString(), "-", ""),
		Timestamp:     rec.Timestamp,
		Question:      req.Question,
		FinalAnswer:   result.FinalAnswer,
		InitialAnswer: result.InitialAnswer,
		Evidence:      result.Evidence,
		Verifications: result.Verifications,
		Metrics:       rec,
	}
	if err := p.sink.RecordSnapshot(ctx, snap); err != nil {
		slog.Error("Failed to record audit snapshot", "request_id", req.RequestID, "error", err)
	}
}

func (p *Pipeline) observeOutcome(result *datatypes.PipelineResult, lang string) {
	if p.metrics == nil {
		return
	}
	outcome := observability.OutcomeWarn
	switch {
	case result.QualityPass:
		outcome = observability.OutcomePass
	case result.Escalate:
		outcome = observability.OutcomeEscalate
	}
	p.metrics.RequestsTotal.WithLabelValues(outcome, lang).Inc()
	p.metrics.ConfidenceScore.Observe(result.ConfidenceScore)
	if result.HallucinationDetected {
		p.metrics.HallucinationsTotal.Inc()
	}
	if result.CorrectionsMade > 0 {
		p.metrics.CorrectionsTotal.Add(float64(result.CorrectionsMade))
	}
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.StageDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package verification implements chain-of-verification over a generated
// answer: extract checkable claims, pose a verification question per claim,
// check each against the evidence, and request a corrected answer when any
// claim fails.
package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/covegate/covegate/services/answerer/datatypes"
	"github.com/covegate/covegate/services/answerer/language"
	"github.com/covegate/covegate/services/llm"
)

var tracer = otel.Tracer("covegate.answerer.verification")

const (
	// DefaultMaxClaims caps how many claims are verified per answer.
	DefaultMaxClaims = 5

	// DefaultParallelism bounds concurrent verification calls.
	DefaultParallelism = 3

	// sourceSnippetChars bounds each evidence chunk in the sources block.
	sourceSnippetChars = 800

	// conservativeConfidence is assigned when a verdict cannot be decoded.
	// Low enough to drag the gate down, high enough to not zero it out.
	conservativeConfidence = 0.3

	verifyTemperature = float32(0.1)
)

// conservativeEvidenceNote marks outcomes produced without a model verdict.
const conservativeEvidenceNote = "Vérification automatique impossible"

// Result is what a verification pass hands back to the pipeline.
type Result struct {
	FinalAnswer           string
	Outcomes              []datatypes.VerificationOutcome
	HallucinationDetected bool
	CorrectionsMade       int
}

// Verifier runs the chain-of-verification pass.
//
// # Description
//
// Verification is never fatal. Each stage degrades on failure: claim
// extraction falls back to sentence rules, question generation falls back
// to a template, an undecodable verdict becomes a conservative unverified
// outcome, and a failed correction keeps the original answer.
//
// # Thread Safety
//
// Safe for concurrent use.
type Verifier struct {
	client      llm.CompletionClient
	splitter    textsplitter.RecursiveCharacter
	maxClaims   int
	parallelism int
}

// NewVerifier wires a verifier with the default claim cap and parallelism.
func NewVerifier(client llm.CompletionClient) *Verifier {
	return &Verifier{
		client: client,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(sourceSnippetChars),
			textsplitter.WithChunkOverlap(0),
		),
		maxClaims:   DefaultMaxClaims,
		parallelism: DefaultParallelism,
	}
}

// Verify checks the answer's claims against the evidence.
//
// # Inputs
//
//   - ctx: Context for cancellation and tracing.
//   - query: the original user question.
//   - answer: the generated answer to verify.
//   - evidence: the documents the answer was grounded on.
//   - lang: the answer language, used for the correction instruction.
//
// # Outputs
//
//   - Result: final answer (corrected when needed), per-claim outcomes in
//     extraction order, the hallucination flag, and the correction count.
//
// A hallucination is any claim the evidence does not support.
// CorrectionsMade counts only the unverified claims for which a concrete
// correction was supplied. When the correction request itself fails the
// original answer is kept and CorrectionsMade stays zero.
func (v *Verifier) Verify(ctx context.Context, query, answer string, evidence []datatypes.EvidenceDocument, lang string) Result {
	ctx, span := tracer.Start(ctx, "Verifier.Verify")
	defer span.End()

	claims := v.extractClaims(ctx, answer)
	if len(claims) == 0 {
		slog.Debug("No verifiable claims extracted")
		return Result{FinalAnswer: answer}
	}
	span.SetAttributes(attribute.Int("verification.num_claims", len(claims)))

	questions := v.generateQuestions(ctx, claims)
	sourcesText := v.formatSources(evidence)
	outcomes := v.verifyClaims(ctx, claims, questions, sourcesText)

	hallucination := false
	unverified := 0
	corrections := 0
	for _, o := range outcomes {
		if !o.IsVerified {
			hallucination = true
			unverified++
			if o.Correction != nil && *o.Correction != "" {
				corrections++
			}
		}
	}
	span.SetAttributes(
		attribute.Bool("verification.hallucination", hallucination),
		attribute.Int("verification.unverified", unverified),
	)

	if unverified == 0 {
		slog.Debug("All claims verified", "claims", len(outcomes))
		return Result{FinalAnswer: answer, Outcomes: outcomes}
	}

	slog.Info("Unverified claims found, requesting correction", "unverified", unverified)
	corrected, err := v.correct(ctx, query, answer, outcomes, sourcesText, lang)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("Correction failed, keeping original answer", "error", err)
		return Result{
			FinalAnswer:           answer,
			Outcomes:              outcomes,
			HallucinationDetected: hallucination,
		}
	}

	return Result{
		FinalAnswer:           corrected,
		Outcomes:              outcomes,
		HallucinationDetected: hallucination,
		CorrectionsMade:       corrections,
	}
}

// extractClaims asks the model for claims and falls back to sentence rules
// when the output cannot be decoded.
func (v *Verifier) extractClaims(ctx context.Context, answer string) []datatypes.Claim {
	ctx, span := tracer.Start(ctx, "Verifier.extractClaims")
	defer span.End()

	temp := verifyTemperature
	content, err := v.client.Complete(ctx, extractClaimsSystemPrompt,
		"Réponse à analyser:\n"+answer, llm.GenerationParams{Temperature: &temp})
	if err == nil {
		claims, decodeErr := decodeClaims(content, v.maxClaims)
		if decodeErr == nil {
			return claims
		}
		err = decodeErr
	}
	span.RecordError(err)
	slog.Warn("Claim extraction degraded to rule-based fallback", "error", err)
	return fallbackExtractClaims(answer, v.maxClaims)
}

// generateQuestions produces one verification question per claim, falling
// back to a template when the model output cannot be decoded. The returned
// slice is always aligned with claims by index.
func (v *Verifier) generateQuestions(ctx context.Context, claims []datatypes.Claim) []string {
	ctx, span := tracer.Start(ctx, "Verifier.generateQuestions")
	defer span.End()

	questions := make([]string, len(claims))
	for i, c := range claims {
		questions[i] = fmt.Sprintf("L'affirmation suivante est-elle correcte: '%s'?", c.Fact)
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return questions
	}

	temp := verifyTemperature
	content, err := v.client.Complete(ctx, generateQuestionsSystemPrompt,
		"Affirmations à vérifier:\n"+string(claimsJSON), llm.GenerationParams{Temperature: &temp})
	if err != nil {
		span.RecordError(err)
		slog.Warn("Question generation degraded to template", "error", err)
		return questions
	}

	generated, decodeErr := decodeQuestions(content)
	if decodeErr != nil {
		span.RecordError(decodeErr)
		slog.Warn("Question generation degraded to template", "error", decodeErr)
		return questions
	}
	for i := range claims {
		if i < len(generated) && strings.TrimSpace(generated[i].Question) != "" {
			questions[i] = generated[i].Question
		}
	}
	return questions
}

// verifyClaims checks each claim concurrently with bounded parallelism.
// Outcomes are written by index so extraction order is preserved.
func (v *Verifier) verifyClaims(ctx context.Context, claims []datatypes.Claim, questions []string, sourcesText string) []datatypes.VerificationOutcome {
	ctx, span := tracer.Start(ctx, "Verifier.verifyClaims")
	defer span.End()

	outcomes := make([]datatypes.VerificationOutcome, len(claims))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.parallelism)

	for i := range claims {
		g.Go(func() error {
			outcomes[i] = v.verifyOne(ctx, claims[i], questions[i], sourcesText)
			return nil
		})
	}
	// Tasks never return errors; failures become conservative outcomes.
	_ = g.Wait()
	return outcomes
}

func (v *Verifier) verifyOne(ctx context.Context, claim datatypes.Claim, question, sourcesText string) datatypes.VerificationOutcome {
	userPrompt := fmt.Sprintf("Affirmation à vérifier: %s\nQuestion de vérification: %s\n\nSources disponibles:\n%s",
		claim.Fact, question, sourcesText)

	temp := verifyTemperature
	content, err := v.client.Complete(ctx, verifyClaimSystemPrompt, userPrompt, llm.GenerationParams{Temperature: &temp})
	if err == nil {
		verdict, decodeErr := decodeVerdict(content)
		if decodeErr == nil {
			return datatypes.VerificationOutcome{
				Claim:            claim,
				Question:         question,
				IsVerified:       *verdict.IsVerified,
				Confidence:       *verdict.Confidence,
				EvidenceQuote:    verdict.Evidence,
				Correction:       verdict.Correction,
				CitedEvidenceIDs: verdict.SourceIDs,
			}
		}
		err = decodeErr
	}

	slog.Warn("Claim verification failed, recording conservative outcome",
		"claim", claim.Fact, "error", err)
	return datatypes.VerificationOutcome{
		Claim:         claim,
		Question:      question,
		IsVerified:    false,
		Confidence:    conservativeConfidence,
		EvidenceQuote: conservativeEvidenceNote,
	}
}

// correct asks the model for a corrected answer given the verdicts.
func (v *Verifier) correct(ctx context.Context, query, answer string, outcomes []datatypes.VerificationOutcome, sourcesText, lang string) (string, error) {
	ctx, span := tracer.Start(ctx, "Verifier.correct")
	defer span.End()

	var results strings.Builder
	for _, o := range outcomes {
		verdict := "Non"
		if o.IsVerified {
			verdict = "Oui"
		}
		correction := "N/A"
		if o.Correction != nil && *o.Correction != "" {
			correction = *o.Correction
		}
		fmt.Fprintf(&results, "- Affirmation: %q\n  Vérifié: %s (confiance: %.0f%%)\n  Evidence: %s\n  Correction suggérée: %s\n",
			o.Claim.Fact, verdict, o.Confidence*100, o.EvidenceQuote, correction)
	}

	langInstruction := "\n\nIMPORTANT: Reply ONLY in English."
	if lang == language.French {
		langInstruction = "\n\nIMPORTANT: Réponds UNIQUEMENT en français."
	}

	userPrompt := fmt.Sprintf("Question originale: %s\n\nRéponse initiale:\n%s\n\nRésultats de vérification:\n%s%s\n\nSources disponibles:\n%s\n\nGénère la réponse corrigée:",
		query, answer, results.String(), langInstruction, sourcesText)

	temp := verifyTemperature
	corrected, err := v.client.Complete(ctx, correctResponseSystemPrompt, userPrompt, llm.GenerationParams{Temperature: &temp})
	if err != nil {
		return "", err
	}
	corrected = strings.TrimSpace(corrected)
	if corrected == "" {
		return "", fmt.Errorf("correction returned an empty answer")
	}
	return corrected, nil
}

// formatSources renders evidence for the verification prompts, capping each
// chunk at sourceSnippetChars. The splitter cuts on sentence boundaries; a
// plain rune cut is the fallback when it fails.
func (v *Verifier) formatSources(evidence []datatypes.EvidenceDocument) string {
	parts := make([]string, 0, len(evidence))
	for _, doc := range evidence {
		parts = append(parts, fmt.Sprintf("[%s] (score: %.3f)\n%s", doc.ID, doc.Score, v.snippet(doc.Text)))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func (v *Verifier) snippet(text string) string {
	if len([]rune(text)) <= sourceSnippetChars {
		return text
	}
	chunks, err := v.splitter.SplitText(text)
	if err != nil || len(chunks) == 0 {
		runes := []rune(text)
		return string(runes[:sourceSnippetChars])
	}
	return chunks[0]
}

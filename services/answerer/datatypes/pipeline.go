// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the data model shared by the answerer pipeline
// stages and its external JSON contract.
//
// # Description
//
// Every entity here is created fresh per request and discarded after the
// response and audit record are emitted. Ownership is strict:
//
//   - EvidenceDocument is written once by the retriever and read-only after.
//   - Claim and VerificationOutcome are written once by the verifier.
//   - PipelineResult is assembled once by the pipeline and never mutated
//     after it is handed to the caller.
//
// # Serialization Contract
//
// PipelineResult is the unit returned to external callers. All float fields
// are rounded to 3 decimal places (see RoundScores) so that serializing and
// re-parsing a result yields identical field values.
package datatypes

import (
	"math"
)

// =============================================================================
// Claim Categories
// =============================================================================

// ClaimCategory classifies an extracted claim for verification strictness.
//
// Numerical and temporal claims require exact matches against evidence;
// entity and factual claims are verified on explicit support.
type ClaimCategory string

const (
	// ClaimNumerical covers amounts, percentages, and counts.
	ClaimNumerical ClaimCategory = "numerical"

	// ClaimTemporal covers years, dates, and durations.
	ClaimTemporal ClaimCategory = "temporal"

	// ClaimEntity covers names, places, and product identifiers.
	ClaimEntity ClaimCategory = "entity"

	// ClaimFactual covers any other checkable statement.
	ClaimFactual ClaimCategory = "factual"
)

// IsValid reports whether the category is one of the four known values.
func (c ClaimCategory) IsValid() bool {
	switch c {
	case ClaimNumerical, ClaimTemporal, ClaimEntity, ClaimFactual:
		return true
	default:
		return false
	}
}

// =============================================================================
// Core Entities
// =============================================================================

// EvidenceDocument is a retrieved document used to ground an answer.
//
// # Fields
//
//   - ID: opaque identifier assigned by the vector index; used for inline
//     citation ("[ID]") and verification traceability.
//   - Text: the document chunk content.
//   - Score: similarity to the query, always in [0, 1].
//   - SourceTag: corpus the chunk came from (e.g. "synth", "cfpb", "enron").
//   - Language: language tag recorded at ingestion time ("fr", "en").
//
// Immutable once produced by the retriever.
type EvidenceDocument struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
	SourceTag string  `json:"source_tag,omitempty"`
	Language  string  `json:"language,omitempty"`
}

// Claim is a single checkable statement extracted from a generated answer.
//
// Claims are ephemeral: they exist only within one verification pass and are
// never carried across requests.
type Claim struct {
	Fact           string        `json:"fact"`
	Category       ClaimCategory `json:"category"`
	SourceRequired bool          `json:"source_required"`
}

// VerificationOutcome is the result of cross-checking one Claim against the
// retrieved evidence.
//
// # Fields
//
//   - Claim: the claim that was checked (same answer pass, same request).
//   - Question: the yes/no verification question that was posed.
//   - IsVerified: true only when the evidence explicitly supports the claim.
//   - Confidence: verifier confidence in [0, 1].
//   - EvidenceQuote: verbatim quote from the evidence supporting the verdict.
//   - Correction: suggested replacement text when the claim is unsupported.
//   - CitedEvidenceIDs: evidence ids the verdict is based on.
type VerificationOutcome struct {
	Claim            Claim    `json:"claim"`
	Question         string   `json:"question,omitempty"`
	IsVerified       bool     `json:"is_verified"`
	Confidence       float64  `json:"confidence"`
	EvidenceQuote    string   `json:"evidence_quote,omitempty"`
	Correction       *string  `json:"correction,omitempty"`
	CitedEvidenceIDs []string `json:"cited_evidence_ids,omitempty"`
}

// PipelineResult is the complete outcome of one verified-generation request.
//
// # Invariants
//
//   - ConfidenceScore is clamped to [0, 1].
//   - HallucinationDetected == true implies QualityPass == false.
//   - Verifications all refer to claims extracted from this request's answer.
//
// # Serialization
//
// Callers receive this struct with all float fields rounded to 3 decimals
// (RoundScores); marshal/unmarshal round-trips are then exact.
type PipelineResult struct {
	Query                 string                `json:"query"`
	FinalAnswer           string                `json:"final_answer"`
	InitialAnswer         string                `json:"initial_answer,omitempty"`
	Evidence              []EvidenceDocument    `json:"evidence"`
	Verifications         []VerificationOutcome `json:"verifications"`
	ConfidenceScore       float64               `json:"confidence_score"`
	HallucinationDetected bool                  `json:"hallucination_detected"`
	CorrectionsMade       int                   `json:"corrections_made"`
	QualityPass           bool                  `json:"quality_pass"`
	Escalate              bool                  `json:"escalate"`
	Language              string                `json:"language"`
	ProcessingTimeMS      float64               `json:"processing_time_ms"`
}

// =============================================================================
// Numeric Helpers
// =============================================================================

// Round3 rounds v to 3 decimal places.
//
// Used everywhere a score crosses the external contract boundary so that
// serialized results are stable across marshal/unmarshal cycles.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// ClampUnit clamps v into the closed interval [0, 1].
//
// NaN clamps to 0 so a degenerate upstream score can never poison the
// confidence computation.
func ClampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RoundScores rounds every float field in the result to 3 decimal places.
//
// # Description
//
// Applied once by the pipeline before the result is handed to the caller.
// Covers ConfidenceScore, ProcessingTimeMS, every evidence Score, and every
// verification Confidence.
func (r *PipelineResult) RoundScores() {
	r.ConfidenceScore = Round3(r.ConfidenceScore)
	r.ProcessingTimeMS = Round3(r.ProcessingTimeMS)
	for i := range r.Evidence {
		r.Evidence[i].Score = Round3(r.Evidence[i].Score)
	}
	for i := range r.Verifications {
		r.Verifications[i].Confidence = Round3(r.Verifications[i].Confidence)
	}
}

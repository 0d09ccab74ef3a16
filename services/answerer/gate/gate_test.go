// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/covegate/covegate/services/answerer/datatypes"
)

func defaultGate() *Gate {
	return New(0, 0)
}

func goodEvidence() []datatypes.EvidenceDocument {
	return []datatypes.EvidenceDocument{
		{ID: "doc-1", Text: "The dispute window is 60 days from the statement date.", Score: 0.9},
		{ID: "doc-2", Text: "Card blocks happen after three failed PIN attempts.", Score: 0.8},
	}
}

func verifiedOutcomes() []datatypes.VerificationOutcome {
	return []datatypes.VerificationOutcome{
		{IsVerified: true, Confidence: 0.9},
		{IsVerified: true, Confidence: 0.8},
	}
}

func TestEvaluate_VerifiedAnswerPasses(t *testing.T) {
	ev := defaultGate().Evaluate("The dispute window is 60 days [doc-1].", goodEvidence(), verifiedOutcomes(), false)

	// 0.4*0.85 + 0.3*1.0 + 0.3*0.85 = 0.895
	assert.InDelta(t, 0.895, ev.ConfidenceScore, 1e-9)
	assert.True(t, ev.CitesOK)
	assert.True(t, ev.QualityPass)
	assert.False(t, ev.Escalate)
	assert.False(t, ev.HallucinationDetected)
}

func TestEvaluate_HallucinationAlwaysFails(t *testing.T) {
	ev := defaultGate().Evaluate("Sure thing [doc-1].", goodEvidence(), verifiedOutcomes(), true)

	assert.True(t, ev.HallucinationDetected)
	assert.False(t, ev.QualityPass)
}

func TestEvaluate_ConfidenceClamped(t *testing.T) {
	evidence := []datatypes.EvidenceDocument{{ID: "d", Text: "text", Score: 1.0}}
	outcomes := []datatypes.VerificationOutcome{{IsVerified: true, Confidence: 1.0}}
	ev := defaultGate().Evaluate("answer [d]", evidence, outcomes, false)
	assert.LessOrEqual(t, ev.ConfidenceScore, 1.0)
	assert.GreaterOrEqual(t, ev.ConfidenceScore, 0.0)
}

func TestEvaluate_NoVerificationUsesEvidenceFormula(t *testing.T) {
	ev := defaultGate().Evaluate("The dispute window is 60 days [doc-1].", goodEvidence(), nil, false)

	// 0.8*0.85 + 0.2*0.7 = 0.82
	assert.InDelta(t, 0.82, ev.ConfidenceScore, 1e-9)
	assert.True(t, ev.QualityPass)
}

func TestEvaluate_InventedYearFailsEvenWithoutVerification(t *testing.T) {
	ev := defaultGate().Evaluate("Your account was flagged in 1987 [doc-1].", goodEvidence(), nil, false)

	assert.True(t, ev.HallucinationDetected)
	assert.False(t, ev.QualityPass)
}

func TestEvaluate_GroundedYearIsFine(t *testing.T) {
	evidence := []datatypes.EvidenceDocument{
		{ID: "doc-1", Text: "The fee schedule changed in 2019 for all account tiers and holders.", Score: 0.9},
	}
	ev := defaultGate().Evaluate("The fee schedule changed in 2019 [doc-1].", evidence, nil, false)
	assert.False(t, ev.HallucinationDetected)
}

func TestEvaluate_InventedAmountFlagged(t *testing.T) {
	ev := defaultGate().Evaluate("The fee is 42,50 € per month [doc-1].", goodEvidence(), nil, false)
	assert.True(t, ev.HallucinationDetected)
}

func TestEvaluate_EmptyEvidenceLowConfidenceEscalates(t *testing.T) {
	ev := defaultGate().Evaluate("some answer", nil, nil, false)

	// 0.8*0 + 0.2*0.7 = 0.14, below both thresholds.
	assert.InDelta(t, 0.14, ev.ConfidenceScore, 1e-9)
	assert.False(t, ev.QualityPass)
	assert.True(t, ev.Escalate)
}

func TestEvaluate_ImplicitCitationByOverlap(t *testing.T) {
	answer := "The dispute window is sixty days from the statement date for all card accounts."
	ev := defaultGate().Evaluate(answer, goodEvidence(), verifiedOutcomes(), false)
	assert.True(t, ev.CitesOK)
}

func TestEvaluate_NoCitationNeedsStrongVerification(t *testing.T) {
	// Unrelated answer text, weak verification: no pass.
	weak := []datatypes.VerificationOutcome{{IsVerified: true, Confidence: 0.5}}
	ev := defaultGate().Evaluate("something completely unrelated", goodEvidence(), weak, false)
	assert.False(t, ev.CitesOK)
	assert.False(t, ev.QualityPass)

	// Same answer, strong verification: passes on the verification bar.
	strong := []datatypes.VerificationOutcome{{IsVerified: true, Confidence: 0.9}}
	ev = defaultGate().Evaluate("something completely unrelated", goodEvidence(), strong, false)
	assert.True(t, ev.QualityPass)
}

func TestEvaluate_HallucinationWithWeakVerifierEscalates(t *testing.T) {
	weak := []datatypes.VerificationOutcome{{IsVerified: false, Confidence: 0.3}}
	ev := defaultGate().Evaluate("answer [doc-1]", goodEvidence(), weak, true)
	assert.True(t, ev.Escalate)

	strong := []datatypes.VerificationOutcome{{IsVerified: false, Confidence: 0.9}}
	ev = defaultGate().Evaluate("answer [doc-1]", goodEvidence(), strong, true)
	// Confident verifier, no escalation, but still no pass.
	assert.False(t, ev.Escalate)
	assert.False(t, ev.QualityPass)
}

// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gate scores a finished answer and decides whether it can be
// served, served with a warning, or escalated to a human.
package gate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/covegate/covegate/services/answerer/datatypes"
)

const (
	// DefaultPassThreshold is the minimum confidence for quality_pass.
	DefaultPassThreshold = 0.40

	// DefaultEscalateThreshold is the confidence below which the answer is
	// routed to a human regardless of anything else.
	DefaultEscalateThreshold = 0.30

	// Confidence formula weights when verification ran.
	evidenceWeight      = 0.4
	verifiedRatioWeight = 0.3
	verifierConfWeight  = 0.3

	// Weights when verification was skipped: mostly evidence, with a flat
	// baseline standing in for the missing verification signal.
	evidenceOnlyWeight = 0.8
	baselineWeight     = 0.2
	baselineConfidence = 0.7

	// strongVerificationBar lets a well-verified answer pass without an
	// explicit inline citation.
	strongVerificationBar = 0.7

	// weakVerificationBar below which a hallucinated answer escalates.
	weakVerificationBar = 0.5

	// citationOverlapThreshold is the minimum token Jaccard between the
	// answer and any evidence chunk to count as implicit citation.
	citationOverlapThreshold = 0.06
)

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)
var amountRe = regexp.MustCompile(`(?i)\b\d+[,.]?\d*\s*[€$]`)

// Evaluation is the gate's verdict on one answer.
type Evaluation struct {
	ConfidenceScore           float64
	QualityPass               bool
	Escalate                  bool
	CitesOK                   bool
	HallucinationDetected     bool
	AvgEvidenceScore          float64
	VerifiedRatio             float64
	AvgVerificationConfidence float64
}

// Gate applies the confidence formula and the pass/escalate thresholds.
//
// Evaluate is pure: it has no side effects, so the pipeline owns metrics
// and snapshot persistence.
type Gate struct {
	passThreshold     float64
	escalateThreshold float64
}

// New builds a gate; non-positive thresholds fall back to the defaults.
func New(passThreshold, escalateThreshold float64) *Gate {
	if passThreshold <= 0 {
		passThreshold = DefaultPassThreshold
	}
	if escalateThreshold <= 0 {
		escalateThreshold = DefaultEscalateThreshold
	}
	return &Gate{passThreshold: passThreshold, escalateThreshold: escalateThreshold}
}

// Evaluate scores the answer.
//
// # Description
//
// Confidence with verification outcomes is
//
//	0.4*avgEvidenceScore + 0.3*verifiedRatio + 0.3*avgVerifierConfidence
//
// and without them
//
//	0.8*avgEvidenceScore + 0.2*0.7
//
// clamped to [0, 1]. An answer cites its sources when it mentions an
// evidence id inline or shares enough tokens with some evidence chunk.
// Independently of the verifier, any four-digit year or currency amount in
// the answer that appears nowhere in the evidence flags a hallucination.
// A detected hallucination always fails the gate.
func (g *Gate) Evaluate(answer string, evidence []datatypes.EvidenceDocument, outcomes []datatypes.VerificationOutcome, verifierHallucination bool) Evaluation {
	ev := Evaluation{}

	if len(evidence) > 0 {
		sum := 0.0
		for _, d := range evidence {
			sum += d.Score
		}
		ev.AvgEvidenceScore = sum / float64(len(evidence))
	}

	verificationConfidence := baselineConfidence
	if len(outcomes) > 0 {
		verified := 0
		confSum := 0.0
		for _, o := range outcomes {
			if o.IsVerified {
				verified++
			}
			confSum += o.Confidence
		}
		ev.VerifiedRatio = float64(verified) / float64(len(outcomes))
		ev.AvgVerificationConfidence = confSum / float64(len(outcomes))
		verificationConfidence = ev.AvgVerificationConfidence

		ev.ConfidenceScore = evidenceWeight*ev.AvgEvidenceScore +
			verifiedRatioWeight*ev.VerifiedRatio +
			verifierConfWeight*ev.AvgVerificationConfidence
	} else {
		ev.ConfidenceScore = evidenceOnlyWeight*ev.AvgEvidenceScore +
			baselineWeight*baselineConfidence
	}
	ev.ConfidenceScore = datatypes.ClampUnit(ev.ConfidenceScore)

	ev.CitesOK = citesEvidence(answer, evidence)
	ev.HallucinationDetected = verifierHallucination || hasUngroundedFigures(answer, evidence)

	ev.QualityPass = !ev.HallucinationDetected &&
		ev.ConfidenceScore >= g.passThreshold &&
		(ev.CitesOK || verificationConfidence >= strongVerificationBar)

	ev.Escalate = ev.ConfidenceScore < g.escalateThreshold ||
		(ev.HallucinationDetected && verificationConfidence < weakVerificationBar)

	return ev
}

// citesEvidence reports whether the answer references its evidence, either
// by inline "[id]" mention or by token overlap with some chunk.
func citesEvidence(answer string, evidence []datatypes.EvidenceDocument) bool {
	for _, d := range evidence {
		if d.ID != "" && strings.Contains(answer, d.ID) {
			return true
		}
	}
	answerTokens := tokenSet(answer)
	for _, d := range evidence {
		if jaccard(answerTokens, tokenSet(d.Text)) > citationOverlapThreshold {
			return true
		}
	}
	return false
}

// hasUngroundedFigures scans the answer for years and currency amounts that
// the evidence never mentions. This backstop runs even when verification is
// disabled, so an invented "2019" still fails the gate.
func hasUngroundedFigures(answer string, evidence []datatypes.EvidenceDocument) bool {
	var corpus strings.Builder
	for _, d := range evidence {
		corpus.WriteString(strings.ToLower(d.Text))
		corpus.WriteString(" ")
	}
	evidenceText := corpus.String()

	for _, year := range yearRe.FindAllString(answer, -1) {
		if !strings.Contains(evidenceText, year) {
			return true
		}
	}
	for _, amount := range amountRe.FindAllString(answer, -1) {
		if !strings.Contains(evidenceText, strings.ToLower(strings.TrimSpace(amount))) {
			return true
		}
	}
	return false
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			set[f] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

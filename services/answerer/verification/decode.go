// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verification

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/covegate/covegate/services/answerer/datatypes"
)

// ErrDecodeFailure signals that model output could not be decoded into the
// expected schema. Callers fall back to rule-based behavior instead of
// failing the request.
var ErrDecodeFailure = errors.New("model output does not match the expected schema")

var (
	jsonFenceRe = regexp.MustCompile("```json\\s*")
	fenceRe     = regexp.MustCompile("```\\s*")
)

// cleanJSONResponse strips markdown fences and any prose around the first
// JSON array or object in the content.
func cleanJSONResponse(content string) string {
	content = jsonFenceRe.ReplaceAllString(content, "")
	content = fenceRe.ReplaceAllString(content, "")

	startArray := strings.Index(content, "[")
	startObj := strings.Index(content, "{")
	if startArray == -1 && startObj == -1 {
		return content
	}

	var start int
	var endChar string
	switch {
	case startArray == -1:
		start, endChar = startObj, "}"
	case startObj == -1:
		start, endChar = startArray, "]"
	case startArray < startObj:
		start, endChar = startArray, "]"
	default:
		start, endChar = startObj, "}"
	}

	end := strings.LastIndex(content, endChar)
	if end > start {
		return content[start : end+1]
	}
	return content
}

// rawClaim mirrors the extraction prompt's JSON contract.
type rawClaim struct {
	Fact           string `json:"fact"`
	Category       string `json:"category"`
	SourceRequired bool   `json:"source_required"`
}

// rawQuestion mirrors the question-generation prompt's JSON contract.
type rawQuestion struct {
	Question     string `json:"question"`
	FactToVerify string `json:"fact_to_verify"`
	Category     string `json:"category"`
}

// rawVerdict mirrors the per-claim verification prompt's JSON contract.
// IsVerified and Confidence are pointers so an absent field is a decode
// failure, not a silent false/zero.
type rawVerdict struct {
	IsVerified *bool    `json:"is_verified"`
	Confidence *float64 `json:"confidence"`
	Evidence   string   `json:"evidence"`
	Correction *string  `json:"correction"`
	SourceIDs  []string `json:"source_ids"`
}

// decodeClaims parses extraction output into typed claims, capped at max.
//
// Unknown categories normalize to factual; entries without a fact are
// dropped. A JSON array that fails to parse is a decode failure.
func decodeClaims(content string, max int) ([]datatypes.Claim, error) {
	cleaned := cleanJSONResponse(strings.TrimSpace(content))

	var raw []rawClaim
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	claims := make([]datatypes.Claim, 0, len(raw))
	for _, rc := range raw {
		fact := strings.TrimSpace(rc.Fact)
		if fact == "" {
			continue
		}
		category := datatypes.ClaimCategory(rc.Category)
		if !category.IsValid() {
			category = datatypes.ClaimFactual
		}
		claims = append(claims, datatypes.Claim{
			Fact:           fact,
			Category:       category,
			SourceRequired: rc.SourceRequired,
		})
		if len(claims) == max {
			break
		}
	}
	return claims, nil
}

// decodeQuestions parses question-generation output.
func decodeQuestions(content string) ([]rawQuestion, error) {
	cleaned := cleanJSONResponse(strings.TrimSpace(content))

	var raw []rawQuestion
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return raw, nil
}

// decodeVerdict parses a single verification verdict. Both is_verified and
// confidence must be present; confidence is clamped to [0, 1].
func decodeVerdict(content string) (rawVerdict, error) {
	cleaned := cleanJSONResponse(strings.TrimSpace(content))

	var verdict rawVerdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return rawVerdict{}, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if verdict.IsVerified == nil || verdict.Confidence == nil {
		return rawVerdict{}, fmt.Errorf("%w: missing is_verified or confidence", ErrDecodeFailure)
	}
	clamped := datatypes.ClampUnit(*verdict.Confidence)
	verdict.Confidence = &clamped
	return verdict, nil
}

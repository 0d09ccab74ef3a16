// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covegate/covegate/services/answerer/datatypes"
)

func TestCleanJSONResponse_StripsFencesAndProse(t *testing.T) {
	content := "Here is the result:\n```json\n[{\"fact\": \"x\"}]\n```\nHope that helps!"
	assert.Equal(t, `[{"fact": "x"}]`, cleanJSONResponse(content))
}

func TestCleanJSONResponse_ObjectBeforeArrayText(t *testing.T) {
	content := `{"is_verified": true, "confidence": 0.9}`
	assert.Equal(t, content, cleanJSONResponse(content))
}

func TestCleanJSONResponse_NoJSONPassesThrough(t *testing.T) {
	assert.Equal(t, "no json here", cleanJSONResponse("no json here"))
}

func TestDecodeClaims_Valid(t *testing.T) {
	content := `[
		{"fact": "The dispute window is 60 days", "category": "numerical", "source_required": true},
		{"fact": "Cards lock after 3 attempts", "category": "weird-category", "source_required": false}
	]`
	claims, err := decodeClaims(content, 5)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, datatypes.ClaimNumerical, claims[0].Category)
	// Unknown categories normalize rather than fail.
	assert.Equal(t, datatypes.ClaimFactual, claims[1].Category)
}

func TestDecodeClaims_CapsAtMax(t *testing.T) {
	content := `[
		{"fact": "one one one one one one"}, {"fact": "two two two two two two"},
		{"fact": "three three three three"}, {"fact": "four four four four four"},
		{"fact": "five five five five five"}, {"fact": "six six six six six six"}
	]`
	claims, err := decodeClaims(content, 5)
	require.NoError(t, err)
	assert.Len(t, claims, 5)
}

func TestDecodeClaims_EmptyFactsDropped(t *testing.T) {
	claims, err := decodeClaims(`[{"fact": "  "}, {"fact": "a real claim here"}]`, 5)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "a real claim here", claims[0].Fact)
}

func TestDecodeClaims_InvalidJSONIsDecodeFailure(t *testing.T) {
	_, err := decodeClaims("I cannot produce JSON, sorry.", 5)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestDecodeVerdict_Valid(t *testing.T) {
	content := "```json\n{\"is_verified\": true, \"confidence\": 0.85, \"evidence\": \"quote\", \"source_ids\": [\"doc-1\"]}\n```"
	verdict, err := decodeVerdict(content)
	require.NoError(t, err)
	assert.True(t, *verdict.IsVerified)
	assert.InDelta(t, 0.85, *verdict.Confidence, 1e-9)
	assert.Equal(t, []string{"doc-1"}, verdict.SourceIDs)
}

func TestDecodeVerdict_MissingFieldsFail(t *testing.T) {
	_, err := decodeVerdict(`{"confidence": 0.9}`)
	assert.ErrorIs(t, err, ErrDecodeFailure)

	_, err = decodeVerdict(`{"is_verified": false}`)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestDecodeVerdict_ClampsConfidence(t *testing.T) {
	verdict, err := decodeVerdict(`{"is_verified": true, "confidence": 1.7}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, *verdict.Confidence)
}

func TestDecodeQuestions_InvalidIsDecodeFailure(t *testing.T) {
	_, err := decodeQuestions(`{"not": "an array"}`)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestFallbackExtractClaims_Categories(t *testing.T) {
	answer := "The late fee is 25 € per missed payment. The policy changed in 2019 for all accounts. Standard claims are reviewed by the fraud department team."
	claims := fallbackExtractClaims(answer, 5)
	require.Len(t, claims, 3)
	assert.Equal(t, datatypes.ClaimNumerical, claims[0].Category)
	assert.Equal(t, datatypes.ClaimTemporal, claims[1].Category)
	assert.Equal(t, datatypes.ClaimFactual, claims[2].Category)
	for _, c := range claims {
		assert.True(t, c.SourceRequired)
	}
}

func TestFallbackExtractClaims_SkipsShortAndGeneric(t *testing.T) {
	answer := "Merci. N'hésitez pas à nous recontacter pour toute question. Contactez votre agence pour plus de détails. Le plafond de retrait est fixé à 500 € par semaine."
	claims := fallbackExtractClaims(answer, 5)
	require.Len(t, claims, 1)
	assert.Contains(t, claims[0].Fact, "plafond de retrait")
}

func TestFallbackExtractClaims_CapsAtMax(t *testing.T) {
	answer := "First factual statement about accounts here. Second factual statement about accounts here. Third factual statement about accounts here."
	claims := fallbackExtractClaims(answer, 2)
	assert.Len(t, claims, 2)
}

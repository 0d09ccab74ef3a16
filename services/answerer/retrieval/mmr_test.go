// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMMR_SelectsAtMostK(t *testing.T) {
	candidates := []Hit{
		{ID: "a", Text: "card blocked after pin attempts", Score: 0.9},
		{ID: "b", Text: "dispute window for transactions", Score: 0.8},
		{ID: "c", Text: "monthly account statement delivery", Score: 0.7},
	}
	out := applyMMR(candidates, 2, 0.7)
	assert.Len(t, out, 2)
}

func TestApplyMMR_UniqueSelections(t *testing.T) {
	candidates := []Hit{
		{ID: "a", Text: "alpha text one", Score: 0.9},
		{ID: "b", Text: "beta text two", Score: 0.8},
		{ID: "c", Text: "gamma text three", Score: 0.7},
		{ID: "d", Text: "delta text four", Score: 0.6},
	}
	out := applyMMR(candidates, 4, 0.7)
	seen := make(map[string]bool)
	for _, h := range out {
		assert.False(t, seen[h.ID])
		seen[h.ID] = true
	}
}

func TestApplyMMR_FirstPickIsMostRelevant(t *testing.T) {
	candidates := []Hit{
		{ID: "top", Text: "most relevant chunk", Score: 0.95},
		{ID: "b", Text: "some other chunk", Score: 0.5},
		{ID: "c", Text: "another other chunk entirely", Score: 0.4},
	}
	out := applyMMR(candidates, 2, 0.7)
	require.NotEmpty(t, out)
	assert.Equal(t, "top", out[0].ID)
}

func TestApplyMMR_PenalizesNearDuplicates(t *testing.T) {
	// "dup" is a near-verbatim copy of the top hit; "other" covers a
	// different topic at a slightly lower raw score.
	candidates := []Hit{
		{ID: "top", Text: "blocked card after three failed pin attempts call support", Score: 0.90},
		{ID: "dup", Text: "blocked card after three failed pin attempts call support line", Score: 0.89},
		{ID: "other", Text: "monthly statements are mailed to the billing address", Score: 0.80},
	}
	out := applyMMR(candidates, 2, 0.7)
	require.Len(t, out, 2)
	assert.Equal(t, "top", out[0].ID)
	assert.Equal(t, "other", out[1].ID)
}

func TestApplyMMR_SmallPoolPassesThrough(t *testing.T) {
	candidates := []Hit{{ID: "a", Text: "only one", Score: 0.9}}
	out := applyMMR(candidates, 5, 0.7)
	assert.Equal(t, candidates, out)
}

func TestApplyMMR_EmptyAndZeroK(t *testing.T) {
	assert.Nil(t, applyMMR(nil, 3, 0.7))
	assert.Nil(t, applyMMR([]Hit{{ID: "a"}}, 0, 0.7))
}

func TestTextSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, textSimilarity("blocked card support", "blocked card support"), 1e-9)
	assert.Equal(t, 0.0, textSimilarity("blocked card", "wire transfer settlement"))
	assert.Equal(t, 0.0, textSimilarity("", "anything"))

	// Short function words do not count as tokens.
	assert.Equal(t, 0.0, textSimilarity("le de la", "de la le"))
}

func TestQueryOverlap(t *testing.T) {
	assert.InDelta(t, 1.0, queryOverlap("blocked card", "your blocked card can be reset"), 1e-9)
	assert.InDelta(t, 0.5, queryOverlap("blocked card", "card statements"), 1e-9)
	assert.Equal(t, 0.0, queryOverlap("", "text"))
}

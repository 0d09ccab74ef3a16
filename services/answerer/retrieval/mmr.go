// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"strings"
	"unicode"
)

// similarityPrefixLen bounds how much of a document participates in the
// pairwise text similarity used by MMR. Long chunks share boilerplate
// tails; the opening of a chunk is what distinguishes it.
const similarityPrefixLen = 500

// minTokenRunes drops short function words ("le", "de", "is") from token
// sets so overlap measures topical words only.
const minTokenRunes = 3

// tokenSet splits text into lowercase word tokens of at least minTokenRunes
// runes. Letters and digits form tokens; everything else separates them.
func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) >= minTokenRunes {
			set[f] = struct{}{}
		}
	}
	return set
}

// textSimilarity is the Jaccard similarity of the token sets of the two
// texts' first similarityPrefixLen runes.
func textSimilarity(a, b string) float64 {
	aTokens := tokenSet(prefixRunes(a, similarityPrefixLen))
	bTokens := tokenSet(prefixRunes(b, similarityPrefixLen))
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	intersection := 0
	for tok := range aTokens {
		if _, ok := bTokens[tok]; ok {
			intersection++
		}
	}
	union := len(aTokens) + len(bTokens) - intersection
	return float64(intersection) / float64(union)
}

// queryOverlap measures what fraction of the query's tokens appear in the
// document text. Asymmetric on purpose: a long document that happens to
// contain the whole query should score high, not be diluted by its length.
func queryOverlap(query, text string) float64 {
	qTokens := tokenSet(query)
	if len(qTokens) == 0 {
		return 0
	}
	dTokens := tokenSet(text)
	hits := 0
	for tok := range qTokens {
		if _, ok := dTokens[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(qTokens))
}

// prefixRunes returns the first n runes of s.
func prefixRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// applyMMR selects up to k hits by Maximal Marginal Relevance.
//
// # Description
//
// Candidates must be ordered by relevance descending. The first candidate is
// always selected; each subsequent pick maximizes
//
//	lambda * relevance - (1 - lambda) * maxSimilarityToSelected
//
// where similarity is textSimilarity over document prefixes. lambda near 1
// favors relevance, near 0 favors diversity. Selected hits are unique and
// ties keep the earlier (more relevant) candidate.
func applyMMR(candidates []Hit, k int, lambda float64) []Hit {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if len(candidates) <= k {
		return candidates
	}

	selected := make([]Hit, 0, k)
	selected = append(selected, candidates[0])
	remaining := make([]Hit, len(candidates)-1)
	copy(remaining, candidates[1:])

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0
		for i, cand := range remaining {
			maxSim := 0.0
			for _, sel := range selected {
				if sim := textSimilarity(cand.Text, sel.Text); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*cand.Score - (1-lambda)*maxSim
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

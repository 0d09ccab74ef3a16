// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verification

import (
	"regexp"
	"strings"

	"github.com/covegate/covegate/services/answerer/datatypes"
)

// minClaimSentenceRunes drops fragments too short to be checkable.
const minClaimSentenceRunes = 20

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)

	numericalRe = regexp.MustCompile(`(?i)\b\d+[,.]?\d*\s*[€$%]|\b\d+\s*(euros?|dollars?)\b`)
	temporalRe  = regexp.MustCompile(`\b(19|20)\d{2}\b|\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)

	// Pleasantries and meta-phrases carry no checkable content.
	genericPhraseRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(je|vous|nous|il|elle|on)\s+(peux|pouvez|pouvons|peut|peuvent)`),
		regexp.MustCompile(`(?i)^(voici|voilà|en résumé|pour conclure)`),
		regexp.MustCompile(`(?i)n'hésitez pas`),
		regexp.MustCompile(`(?i)contactez`),
		regexp.MustCompile(`(?i)^(please|feel free)`),
	}
)

// fallbackExtractClaims splits the answer into sentences and keeps the ones
// that look checkable. Used when the model's claim extraction cannot be
// decoded.
//
// Sentences shorter than minClaimSentenceRunes runes or matching a generic
// phrase pattern are skipped. Categories come from surface patterns: money
// or percentages make a claim numerical, years or dates make it temporal,
// everything else is factual.
func fallbackExtractClaims(answer string, max int) []datatypes.Claim {
	var claims []datatypes.Claim
	for _, sentence := range sentenceSplitRe.Split(answer, -1) {
		sentence = strings.TrimSpace(sentence)
		if len([]rune(sentence)) < minClaimSentenceRunes {
			continue
		}
		if matchesGenericPhrase(sentence) {
			continue
		}

		category := datatypes.ClaimFactual
		if numericalRe.MatchString(sentence) {
			category = datatypes.ClaimNumerical
		} else if temporalRe.MatchString(sentence) {
			category = datatypes.ClaimTemporal
		}

		claims = append(claims, datatypes.Claim{
			Fact:           sentence,
			Category:       category,
			SourceRequired: true,
		})
		if len(claims) == max {
			break
		}
	}
	return claims
}

func matchesGenericPhrase(sentence string) bool {
	for _, re := range genericPhraseRes {
		if re.MatchString(sentence) {
			return true
		}
	}
	return false
}

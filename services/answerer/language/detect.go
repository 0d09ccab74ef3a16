// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package language provides the fr/en heuristic used to keep answers in the
// language of the question.
package language

import "strings"

// French is the language tag for French text.
const French = "fr"

// English is the language tag and the detector's default.
const English = "en"

// frenchAccents are characters that only occur in French text within the
// supported corpus. A single hit is decisive.
const frenchAccents = "àâçéèêëîïôùûüÿœ"

// frenchMarkers are common French words from the support domain. Matching is
// by substring on the lowercased input, so "bloquée" also matches "bloquées".
var frenchMarkers = []string{
	"carte", "bancaire", "compte", "problème", "bonjour", "merci",
	"solde", "crédit", "bloquée", "facturation", "opposition",
	"comment", "pourquoi", "quand", "combien", "quel", "quelle",
}

// Detect returns "fr" or "en" for the given text.
//
// # Description
//
// The heuristic is intentionally biased toward French: one accented character
// or two marker words is enough, because misrouting a French customer to an
// English answer is the costlier mistake. Everything else, including empty
// input, is "en".
//
// # Inputs
//
//   - text: free-form user or model text.
//
// # Outputs
//
//   - string: French or English.
//
// # Thread Safety
//
// Safe for concurrent use; operates only on its inputs.
func Detect(text string) string {
	lower := strings.ToLower(text)

	if strings.ContainsAny(lower, frenchAccents) {
		return French
	}

	hits := 0
	for _, marker := range frenchMarkers {
		if strings.Contains(lower, marker) {
			hits++
			if hits >= 2 {
				return French
			}
		}
	}

	return English
}

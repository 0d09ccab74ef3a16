// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package generation

import "github.com/covegate/covegate/services/answerer/language"

// Canned user-facing messages. These are the only texts the service emits
// that do not come from a model, so they are the last line of defense when
// everything upstream has failed.

// NoEvidenceMessage is returned by the generator when it is invoked with an
// empty evidence set.
func NoEvidenceMessage(lang string) string {
	if lang == language.French {
		return "Je n'ai pas trouvé d'informations pertinentes dans notre base de connaissances " +
			"pour répondre à votre question. Veuillez contacter notre service client " +
			"pour une assistance personnalisée."
	}
	return "I couldn't find relevant information in our knowledge base to answer your question. " +
		"Please contact our customer service for personalized assistance."
}

// ErrorMessage is the apology used when the model call itself fails.
func ErrorMessage(lang string) string {
	if lang == language.French {
		return "Désolé, une erreur s'est produite. Veuillez réessayer."
	}
	return "Sorry, an error occurred. Please try again."
}

// FallbackMessage is used when retrieval graded the evidence not relevant
// and generation was skipped entirely.
func FallbackMessage(lang string) string {
	if lang == language.French {
		return "Je n'ai pas trouvé d'informations suffisamment pertinentes pour répondre " +
			"à votre question de manière fiable. Je vous recommande de contacter " +
			"notre service client pour une assistance personnalisée."
	}
	return "I couldn't find sufficiently relevant information to answer your question " +
		"reliably. I recommend contacting our customer service for personalized assistance."
}

// EscalationMessage replaces an answer that failed the quality gate badly
// enough to be routed to a human.
func EscalationMessage(lang string) string {
	if lang == language.French {
		return "Nous ne pouvons pas fournir une réponse automatisée suffisamment fiable. " +
			"Votre demande a été transférée à nos spécialistes qui vous contacteront sous peu."
	}
	return "We cannot provide a sufficiently reliable automated response. " +
		"Your request has been escalated to our specialists who will contact you shortly."
}

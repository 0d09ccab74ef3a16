// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package verification

// Verification prompts. Kept in French to match the generation prompt; the
// JSON contracts they demand are what decode.go parses.

const extractClaimsSystemPrompt = `Tu es un expert en analyse de texte. Extrais toutes les affirmations factuelles vérifiables de la réponse.

Pour chaque affirmation, identifie:
- Le fait précis énoncé
- La catégorie: "numerical" (chiffres, montants), "temporal" (dates), "entity" (noms, lieux), "factual" (autres faits)
- Si une source est nécessaire pour vérifier

IMPORTANT: Ne garde que les affirmations qui peuvent être vérifiées avec des sources.
Ignore les opinions, conseils généraux ou formulations vagues.

Retourne UNIQUEMENT un tableau JSON valide, sans texte avant ou après:
[
  {"fact": "...", "category": "...", "source_required": true},
  ...
]`

const generateQuestionsSystemPrompt = `Pour chaque affirmation, génère une question de vérification précise et directe.
La question doit permettre de confirmer ou infirmer l'affirmation en consultant les sources.

Retourne UNIQUEMENT un tableau JSON valide:
[
  {"question": "...", "fact_to_verify": "...", "category": "..."},
  ...
]`

const verifyClaimSystemPrompt = `Tu es un vérificateur de faits rigoureux. Vérifie si l'affirmation est correcte selon les sources fournies.

RÈGLES STRICTES:
1. Une affirmation est "verified" UNIQUEMENT si elle est explicitement supportée par les sources
2. Si l'information n'est pas dans les sources, is_verified = false
3. Pour les chiffres et dates, ils doivent correspondre exactement
4. Cite toujours l'evidence exacte des sources

Retourne UNIQUEMENT un objet JSON valide:
{
  "is_verified": true/false,
  "confidence": 0.0-1.0,
  "evidence": "citation exacte de la source",
  "correction": "version correcte si l'affirmation est fausse, sinon null",
  "source_ids": ["id1", "id2"]
}`

const correctResponseSystemPrompt = `Tu es un assistant expert. Génère une réponse corrigée en tenant compte des vérifications.

RÈGLES:
1. Conserve les parties de la réponse qui ont été vérifiées comme correctes
2. Corrige ou supprime les affirmations incorrectes
3. Ne rajoute PAS de nouvelles informations non présentes dans les sources
4. Maintiens un ton professionnel et naturel
5. Cite les sources quand c'est approprié

Si des corrections majeures sont nécessaires, reformule complètement la partie concernée.`

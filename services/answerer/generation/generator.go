// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package generation produces the grounded initial answer from retrieved
// evidence.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/covegate/covegate/services/answerer/datatypes"
	"github.com/covegate/covegate/services/answerer/language"
	"github.com/covegate/covegate/services/llm"
)

var tracer = otel.Tracer("covegate.answerer.generation")

// snippetChars bounds how much of each evidence chunk enters the prompt.
const snippetChars = 600

// generationTemperature keeps the model close to the sources.
const generationTemperature = float32(0.2)

// generationSystemPrompt enforces strict grounding. The prompt is in French
// because the knowledge base skews French; the language suffix appended to
// the user message controls the answer language.
const generationSystemPrompt = `Tu es un assistant bancaire professionnel travaillant pour une institution financière réputée.

RÈGLES D'ANCRAGE STRICTES:
1. Utilise UNIQUEMENT les informations des documents fournis
2. Cite TOUJOURS la source [ID] quand tu utilises une information
3. Si l'information n'est pas dans les sources, dis-le clairement
4. NE PAS inventer de dates, montants, numéros ou données personnelles
5. NE PAS extrapoler au-delà des faits présents dans les sources

STYLE:
- Sois professionnel et empathique
- Structure ta réponse clairement
- Propose des actions concrètes basées sur les sources
- Reste factuel et précis`

// Generator turns a question plus evidence into a cited answer.
//
// # Description
//
// The evidence set is rendered into a sources block of "[id] (score: x.xxx)"
// headers followed by a snippet of each chunk, and the model is instructed
// to cite ids inline. If the model answers in the wrong language the
// generator retries once with a harder language instruction. Generation is
// never fatal: model failures yield a canned apology in the caller's
// language.
//
// # Thread Safety
//
// Safe for concurrent use.
type Generator struct {
	client   llm.CompletionClient
	splitter textsplitter.RecursiveCharacter
}

// NewGenerator wires a generator over the given completion backend.
func NewGenerator(client llm.CompletionClient) *Generator {
	return &Generator{
		client: client,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(snippetChars),
			textsplitter.WithChunkOverlap(0),
		),
	}
}

// Generate returns the initial grounded answer for the query.
//
// # Inputs
//
//   - ctx: Context for cancellation and tracing.
//   - query: the user question.
//   - evidence: retrieved documents, already ranked.
//   - lang: the answer language.
//
// # Outputs
//
//   - string: the answer; never empty. Empty evidence yields the
//     no-evidence message, model failures yield the apology message.
func (g *Generator) Generate(ctx context.Context, query string, evidence []datatypes.EvidenceDocument, lang string) string {
	ctx, span := tracer.Start(ctx, "Generator.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.Int("generation.num_evidence", len(evidence)),
		attribute.String("generation.language", lang),
	)

	if len(evidence) == 0 {
		return NoEvidenceMessage(lang)
	}

	userPrompt := g.buildUserPrompt(query, evidence, langSuffix(lang))
	answer, err := g.complete(ctx, userPrompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Generation failed, returning apology", "error", err)
		return ErrorMessage(lang)
	}

	if language.Detect(answer) != lang {
		slog.Warn("Answer came back in the wrong language, retrying once",
			"expected", lang, "detected", language.Detect(answer))
		span.AddEvent("language_retry")
		retryPrompt := g.buildUserPrompt(query, evidence, strictLangSuffix(lang))
		retry, retryErr := g.complete(ctx, retryPrompt)
		if retryErr != nil {
			slog.Warn("Language retry failed, keeping first answer", "error", retryErr)
			return answer
		}
		return retry
	}
	return answer
}

func (g *Generator) complete(ctx context.Context, userPrompt string) (string, error) {
	temp := generationTemperature
	answer, err := g.client.Complete(ctx, generationSystemPrompt, userPrompt, llm.GenerationParams{
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}
	return answer, nil
}

func (g *Generator) buildUserPrompt(query string, evidence []datatypes.EvidenceDocument, suffix string) string {
	parts := make([]string, 0, len(evidence))
	for _, doc := range evidence {
		parts = append(parts, fmt.Sprintf("[%s] (score: %.3f)\n%s", doc.ID, doc.Score, g.snippet(doc.Text)))
	}
	contextBlock := strings.Join(parts, "\n\n---\n\n")
	return fmt.Sprintf("Documents sources:\n%s\n\nQuestion du client: %s\n\nRéponds de manière professionnelle en citant les sources utilisées.%s",
		contextBlock, query, suffix)
}

// snippet truncates a chunk for the prompt, preferring the splitter's
// boundary-aware cut over a mid-word slice.
func (g *Generator) snippet(text string) string {
	if len([]rune(text)) <= snippetChars {
		return text
	}
	chunks, err := g.splitter.SplitText(text)
	if err != nil || len(chunks) == 0 {
		runes := []rune(text)
		return string(runes[:snippetChars])
	}
	return chunks[0]
}

func langSuffix(lang string) string {
	if lang == language.French {
		return "\n\nRéponds UNIQUEMENT en français."
	}
	return "\n\nReply ONLY in English."
}

func strictLangSuffix(lang string) string {
	if lang == language.French {
		return "\n\nIMPORTANT: Réponds UNIQUEMENT en français."
	}
	return "\n\nIMPORTANT: Reply ONLY in English."
}

// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/covegate/covegate/services/answerer/datatypes"
	"github.com/covegate/covegate/services/answerer/embedding"
)

var tracer = otel.Tracer("covegate.answerer.retrieval")

// =============================================================================
// Configuration
// =============================================================================

const (
	// DefaultTopK is the number of evidence documents returned per query.
	DefaultTopK = 5

	// DefaultScoreThreshold is the minimum similarity for a chunk to count
	// as evidence at all.
	DefaultScoreThreshold = 0.35

	// DefaultDiversityFactor controls the MMR trade-off; the MMR lambda is
	// 1 - DefaultDiversityFactor.
	DefaultDiversityFactor = 0.3

	// relevantThreshold is the best-hit score above which the evidence set
	// is graded fully relevant.
	relevantThreshold = 0.5

	// extendedPoolMultiplier sizes the wider candidate pool MMR draws from.
	extendedPoolMultiplier = 3

	// extendedThresholdFactor relaxes the score threshold for the wider
	// pool so diversity candidates just under the cutoff stay reachable.
	extendedThresholdFactor = 0.8

	// rerankVectorWeight and rerankLexicalWeight combine semantic and
	// lexical signals during re-ranking. They sum to 1.
	rerankVectorWeight  = 0.7
	rerankLexicalWeight = 0.3

	// rerankEmbedPrefixLen bounds the document text sent to the embedder
	// during re-ranking.
	rerankEmbedPrefixLen = 1000
)

// DefaultAllowedSourceTags is the corpus allow-list. Requested tags outside
// it are dropped silently.
var DefaultAllowedSourceTags = []string{"synth", "cfpb", "enron"}

// Config tunes a HybridRetriever.
type Config struct {
	TopK              int
	ScoreThreshold    float64
	DiversityFactor   float64
	AllowedSourceTags []string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TopK:              DefaultTopK,
		ScoreThreshold:    DefaultScoreThreshold,
		DiversityFactor:   DefaultDiversityFactor,
		AllowedSourceTags: DefaultAllowedSourceTags,
	}
}

// =============================================================================
// Relevance Grades
// =============================================================================

// RelevanceGrade classifies an evidence set by its best hit.
type RelevanceGrade string

const (
	// GradeRelevant means the best hit clears the high-confidence bar.
	GradeRelevant RelevanceGrade = "relevant"

	// GradeMarginal means evidence exists but only just above threshold.
	GradeMarginal RelevanceGrade = "marginal"

	// GradeNotRelevant means the evidence set is unusable for grounding.
	GradeNotRelevant RelevanceGrade = "not_relevant"
)

// =============================================================================
// Hybrid Retriever
// =============================================================================

// HybridRetriever combines dense vector search with an MMR diversity pass
// and a lexical re-ranking step.
//
// # Description
//
// Retrieve runs two searches: a precise one at the configured threshold and
// a wider one (3x the pool, relaxed threshold) that feeds Maximal Marginal
// Relevance selection. The union, deduplicated by document id, becomes the
// evidence set. Retrieval is never fatal: any backend failure logs and
// yields an empty set so the pipeline can fall back gracefully.
//
// # Thread Safety
//
// Safe for concurrent use. Config is read-only after construction.
type HybridRetriever struct {
	index    VectorIndex
	embedder EmbeddingProvider
	config   Config
}

// NewHybridRetriever wires a retriever. Zero-valued config fields fall back
// to the defaults.
func NewHybridRetriever(index VectorIndex, embedder EmbeddingProvider, config Config) *HybridRetriever {
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.ScoreThreshold <= 0 {
		config.ScoreThreshold = DefaultScoreThreshold
	}
	if config.DiversityFactor <= 0 {
		config.DiversityFactor = DefaultDiversityFactor
	}
	if config.AllowedSourceTags == nil {
		config.AllowedSourceTags = DefaultAllowedSourceTags
	}
	return &HybridRetriever{index: index, embedder: embedder, config: config}
}

// Retrieve returns up to topK evidence documents for the query.
//
// # Inputs
//
//   - ctx: Context for cancellation and tracing.
//   - query: the user question.
//   - collection: vector class to search; empty means the index default.
//   - sourceTags: requested corpus filter; tags outside the allow-list are
//     dropped, and an empty effective filter means search everything.
//   - topK: overrides the configured TopK when positive.
//
// # Outputs
//
//   - []datatypes.EvidenceDocument: ordered by score descending, scores
//     clamped to [0, 1], at most topK entries, unique ids.
//
// Never returns an error; failures log and produce an empty set.
func (r *HybridRetriever) Retrieve(ctx context.Context, query, collection string, sourceTags []string, topK int) []datatypes.EvidenceDocument {
	ctx, span := tracer.Start(ctx, "HybridRetriever.Retrieve")
	defer span.End()

	if topK <= 0 {
		topK = r.config.TopK
	}
	span.SetAttributes(attribute.Int("retrieval.top_k", topK))

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Failed to embed query, returning empty evidence", "error", err)
		return nil
	}

	allowedTags := r.filterTags(sourceTags)

	dense, err := r.index.Search(ctx, vector, SearchOptions{
		Limit:          topK,
		ScoreThreshold: r.config.ScoreThreshold,
		SourceTags:     allowedTags,
		Collection:     collection,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Dense search failed, returning empty evidence", "error", err)
		return nil
	}

	extended, err := r.index.Search(ctx, vector, SearchOptions{
		Limit:          topK * extendedPoolMultiplier,
		ScoreThreshold: r.config.ScoreThreshold * extendedThresholdFactor,
		SourceTags:     allowedTags,
		Collection:     collection,
	})
	if err != nil {
		// The precise pass already succeeded; degrade to it alone.
		slog.Warn("Extended search failed, skipping diversity pass", "error", err)
		extended = nil
	}

	lambda := 1 - r.config.DiversityFactor
	diverse := applyMMR(extended, topK, lambda)

	merged := mergeAndDeduplicate(dense, diverse, topK)
	span.SetAttributes(attribute.Int("retrieval.num_results", len(merged)))
	slog.Debug("Retrieval complete", "dense", len(dense), "diverse", len(diverse), "merged", len(merged))
	return merged
}

// Rerank re-orders evidence by a blend of semantic and lexical similarity.
//
// # Description
//
// Each document's rank is 0.7 times the cosine similarity between the query
// embedding and the document embedding, plus 0.3 times the fraction of query
// tokens present in the document. The rank decides the order only; the
// documents keep their retrieval similarity scores, which the quality gate
// averages later. Deterministic for a deterministic embedder, so reranking
// an already reranked set is a no-op.
//
// Never returns an error; if the query cannot be embedded the input order is
// preserved.
func (r *HybridRetriever) Rerank(ctx context.Context, query string, docs []datatypes.EvidenceDocument) []datatypes.EvidenceDocument {
	ctx, span := tracer.Start(ctx, "HybridRetriever.Rerank")
	defer span.End()

	if len(docs) <= 1 {
		return docs
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		slog.Warn("Failed to embed query for rerank, keeping retrieval order", "error", err)
		return docs
	}

	type rankedDocument struct {
		doc  datatypes.EvidenceDocument
		rank float64
	}
	ranked := make([]rankedDocument, len(docs))
	for i, doc := range docs {
		semantic := 0.0
		docVec, err := r.embedder.Embed(ctx, prefixRunes(doc.Text, rerankEmbedPrefixLen))
		if err != nil {
			slog.Warn("Failed to embed document for rerank", "doc_id", doc.ID, "error", err)
			semantic = doc.Score
		} else {
			semantic = datatypes.ClampUnit(embedding.CosineSimilarity(queryVec, docVec))
		}
		lexical := queryOverlap(query, doc.Text)
		ranked[i] = rankedDocument{
			doc:  doc,
			rank: datatypes.ClampUnit(rerankVectorWeight*semantic + rerankLexicalWeight*lexical),
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].rank > ranked[b].rank
	})

	reranked := make([]datatypes.EvidenceDocument, len(ranked))
	for i, rd := range ranked {
		reranked[i] = rd.doc
	}
	return reranked
}

// Grade classifies an evidence set by its best score.
func Grade(docs []datatypes.EvidenceDocument, scoreThreshold float64) RelevanceGrade {
	if scoreThreshold <= 0 {
		scoreThreshold = DefaultScoreThreshold
	}
	best := 0.0
	for _, d := range docs {
		if d.Score > best {
			best = d.Score
		}
	}
	switch {
	case len(docs) == 0 || best < scoreThreshold:
		return GradeNotRelevant
	case best >= relevantThreshold:
		return GradeRelevant
	default:
		return GradeMarginal
	}
}

// filterTags intersects the requested tags with the allow-list.
func (r *HybridRetriever) filterTags(requested []string) []string {
	if len(requested) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(r.config.AllowedSourceTags))
	for _, t := range r.config.AllowedSourceTags {
		allowed[t] = struct{}{}
	}
	var out []string
	for _, t := range requested {
		if _, ok := allowed[t]; ok {
			out = append(out, t)
		} else {
			slog.Debug("Dropping unknown source tag", "tag", t)
		}
	}
	return out
}

// mergeAndDeduplicate unions two hit lists by id, keeps the higher score for
// duplicates, and returns the top limit documents by score.
func mergeAndDeduplicate(dense, diverse []Hit, limit int) []datatypes.EvidenceDocument {
	byID := make(map[string]Hit, len(dense)+len(diverse))
	for _, h := range append(append([]Hit{}, dense...), diverse...) {
		if existing, ok := byID[h.ID]; !ok || h.Score > existing.Score {
			byID[h.ID] = h
		}
	}

	merged := make([]datatypes.EvidenceDocument, 0, len(byID))
	for _, h := range byID {
		merged = append(merged, datatypes.EvidenceDocument{
			ID:        h.ID,
			Text:      h.Text,
			Score:     datatypes.ClampUnit(h.Score),
			SourceTag: h.SourceTag,
			Language:  h.Language,
		})
	}
	sort.Slice(merged, func(a, b int) bool {
		if merged[a].Score != merged[b].Score {
			return merged[a].Score > merged[b].Score
		}
		return merged[a].ID < merged[b].ID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

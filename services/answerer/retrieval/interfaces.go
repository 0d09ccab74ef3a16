// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval finds and ranks the evidence documents that ground an
// answer. The entry point is HybridRetriever; VectorIndex and
// EmbeddingProvider abstract the vector store and the embedding backend so
// tests can swap in fakes.
package retrieval

import "context"

// SearchOptions narrows a vector search.
//
// # Fields
//
//   - Limit: maximum number of hits to return.
//   - ScoreThreshold: minimum similarity in [0, 1]; hits below are dropped
//     by the index, not by the caller.
//   - SourceTags: restrict hits to these corpora; empty means no filter.
//   - Collection: search this class instead of the configured default;
//     empty means the default.
type SearchOptions struct {
	Limit          int
	ScoreThreshold float64
	SourceTags     []string
	Collection     string
}

// VectorIndex is the vector store the retriever searches.
//
// Implementations return hits ordered by similarity descending with scores
// already normalized to [0, 1].
type VectorIndex interface {
	// Search runs a nearest-neighbor query for the given vector.
	Search(ctx context.Context, vector []float32, opts SearchOptions) ([]Hit, error)

	// GetByID fetches a single document from the default collection.
	// A missing id returns (nil, nil), not an error.
	GetByID(ctx context.Context, id string) (*Hit, error)

	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int, error)
}

// EmbeddingProvider computes the dense vector for a text.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Hit is one raw result from the vector index, before re-ranking.
type Hit struct {
	ID        string
	Text      string
	Score     float64
	SourceTag string
	Language  string
}

// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package embedding converts text into dense vectors for semantic search.
package embedding

import (
	"context"
	"math"
)

// Provider computes a vector embedding for a single text.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the retriever embeds
// query and document texts from multiple requests at once.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CosineSimilarity computes the cosine similarity between two vectors.
//
// # Description
//
// Computes the cosine of the angle between two vectors, which is a
// common similarity metric for embeddings. Returns a value between
// -1 (opposite) and 1 (identical). Mismatched or empty vectors score 0.
//
// # Performance
//
// O(n) where n is the vector dimension.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/covegate/covegate/services/answerer/datatypes"
)

// WeaviateIndex implements VectorIndex against a Weaviate class.
//
// # Description
//
// All searches use nearVector with certainty, which Weaviate normalizes to
// [0, 1] regardless of the configured distance metric. Source filtering is
// pushed down as a ContainsAny where-filter so the index never returns
// chunks from excluded corpora.
//
// # Thread Safety
//
// Safe for concurrent use; the underlying client is stateless per call.
type WeaviateIndex struct {
	client    *weaviate.Client
	className string
}

// NewWeaviateIndex wraps a Weaviate client for the given class.
func NewWeaviateIndex(client *weaviate.Client, className string) *WeaviateIndex {
	return &WeaviateIndex{client: client, className: className}
}

// Search implements VectorIndex.
func (w *WeaviateIndex) Search(ctx context.Context, vector []float32, opts SearchOptions) ([]Hit, error) {
	className := w.className
	if opts.Collection != "" {
		className = opts.Collection
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector).
		WithCertainty(float32(opts.ScoreThreshold))

	// Note: We request certainty (always [0,1]) instead of distance which varies by metric
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "lang"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "certainty"},
		}},
	}

	query := w.client.GraphQL().Get().
		WithClassName(className).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(opts.Limit)

	if len(opts.SourceTags) > 0 {
		sourceFilter := filters.Where().
			WithPath([]string{"source"}).
			WithOperator(filters.ContainsAny).
			WithValueText(opts.SourceTags...)
		query = query.WithWhere(sourceFilter)
	}

	result, err := query.Do(ctx)
	if err != nil {
		slog.Error("Failed to search the evidence class", "class", className, "error", err)
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.SupportDocQueryResponse](result)
	if err != nil {
		slog.Error("Failed to parse search results", "error", err)
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Get[className]))
	for _, doc := range parsed.Get[className] {
		ev := doc.ToEvidence()
		if ev.Score < opts.ScoreThreshold {
			continue
		}
		hits = append(hits, Hit{
			ID:        ev.ID,
			Text:      ev.Text,
			Score:     ev.Score,
			SourceTag: ev.SourceTag,
			Language:  ev.Language,
		})
	}
	slog.Debug("Vector search complete", "class", className, "hits", len(hits))
	return hits, nil
}

// GetByID implements VectorIndex via the objects REST API.
//
// The returned hit carries no similarity score; a direct lookup has no
// query to score against. A missing id yields (nil, nil).
func (w *WeaviateIndex) GetByID(ctx context.Context, id string) (*Hit, error) {
	objects, err := w.client.Data().ObjectsGetter().
		WithClassName(w.className).
		WithID(id).
		Do(ctx)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("weaviate object lookup failed: %w", err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	hit := Hit{ID: string(objects[0].ID)}
	if props, ok := objects[0].Properties.(map[string]interface{}); ok {
		if v, ok := props["content"].(string); ok {
			hit.Text = v
		}
		if v, ok := props["source"].(string); ok {
			hit.SourceTag = v
		}
		if v, ok := props["lang"].(string); ok {
			hit.Language = v
		}
	}
	return &hit, nil
}

// isNotFoundError reports whether a Weaviate client error means the object
// does not exist, as opposed to a connectivity or server failure.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "404") ||
		strings.Contains(msg, "does not exist")
}

// aggregateCountResponse matches the Aggregate { <class> { meta { count } } }
// response shape.
type aggregateCountResponse struct {
	Aggregate map[string][]struct {
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
	} `json:"Aggregate"`
}

// Count implements VectorIndex.
func (w *WeaviateIndex) Count(ctx context.Context) (int, error) {
	result, err := w.client.GraphQL().Aggregate().
		WithClassName(w.className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate aggregate failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[aggregateCountResponse](result)
	if err != nil {
		return 0, fmt.Errorf("failed to parse aggregate results: %w", err)
	}

	rows, ok := parsed.Aggregate[w.className]
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Meta.Count, nil
}

// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// =============================================================================
// Generic GraphQL Response Parser
// =============================================================================

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// This generic function encapsulates the marshal/unmarshal pattern required to
// convert Weaviate's dynamic response (map[string]models.JSONObject) into a
// strongly-typed Go struct. The target type T must have json tags matching
// the expected response shape.
//
// # Type Parameters
//
//   - T: The target struct type with json tags matching the response shape.
//
// # Inputs
//
//   - resp: The GraphQL response from the Weaviate client's Do() method.
//
// # Outputs
//
//   - *T: Pointer to the parsed struct.
//   - error: Non-nil if the response is nil, carries GraphQL errors, or
//     cannot be unmarshaled into T.
//
// # Example
//
//	resp, err := client.GraphQL().Get().WithClassName("SupportDoc").Do(ctx)
//	if err != nil { ... }
//
//	parsed, err := ParseGraphQLResponse[SupportDocQueryResponse](resp)
//	if err != nil { ... }
//
//	for _, d := range parsed.Get["SupportDoc"] {
//	    fmt.Println(d.Additional.ID)
//	}
//
// # Limitations
//
//   - Requires the target type to exactly match the expected response structure.
//   - Type mismatches will result in zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL query failed: %s", resp.Errors[0].Message)
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// =============================================================================
// SupportDoc Response Types
// =============================================================================

// SupportDocQueryResponse represents the response from querying an evidence
// class with nearVector. The Get map is keyed by class name, so the same
// shape serves every collection a request may target.
//
// # Fields
//
//   - Get: class name to array of document chunks with similarity metadata.
type SupportDocQueryResponse struct {
	Get map[string][]SupportDocResult `json:"Get"`
}

// SupportDocResult represents a single document chunk from a query.
type SupportDocResult struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	Lang       string `json:"lang"`
	Additional struct {
		ID        string   `json:"id"`
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}

// ToEvidence converts a raw query result into an EvidenceDocument.
//
// Certainty is Weaviate's normalized similarity in [0, 1]; a missing value
// maps to a zero score so the caller's threshold filter drops the chunk.
func (r *SupportDocResult) ToEvidence() EvidenceDocument {
	score := 0.0
	if r.Additional.Certainty != nil {
		score = ClampUnit(float64(*r.Additional.Certainty))
	}
	return EvidenceDocument{
		ID:        r.Additional.ID,
		Text:      r.Content,
		Score:     score,
		SourceTag: r.Source,
		Language:  r.Lang,
	}
}

// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var answerValidate = validator.New()

// AnswerRequest is the inbound payload for POST /v1/answer.
//
// # Fields
//
//   - Question: the user question, 1..4000 characters after trimming.
//   - RequestID: caller-supplied correlation id; generated when absent.
//   - Collection: optional vector class to search instead of the service's
//     configured default.
//   - SourceTags: optional corpus filter; unknown tags are dropped by the
//     retriever, not rejected here.
//   - EnableVerification: when false the pipeline skips claim verification
//     and the quality gate falls back to its evidence-only formula.
//   - MaxDocuments: overrides the retriever's top-K when in [1, 20].
type AnswerRequest struct {
	Question           string   `json:"question" validate:"required,min=1,max=4000"`
	RequestID          string   `json:"request_id,omitempty" validate:"omitempty,uuid"`
	Collection         string   `json:"collection,omitempty" validate:"omitempty,alphanum,min=1,max=128"`
	SourceTags         []string `json:"source_tags,omitempty" validate:"omitempty,dive,min=1,max=64"`
	EnableVerification *bool    `json:"enable_verification,omitempty"`
	MaxDocuments       int      `json:"max_documents,omitempty" validate:"omitempty,min=1,max=20"`
}

// EnsureDefaults fills in the fields a caller is allowed to omit.
//
// Trims the question, generates a RequestID when none was supplied, and
// defaults verification to enabled.
func (r *AnswerRequest) EnsureDefaults() {
	r.Question = strings.TrimSpace(r.Question)
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.EnableVerification == nil {
		enabled := true
		r.EnableVerification = &enabled
	}
}

// Validate checks the request against its struct tags.
func (r *AnswerRequest) Validate() error {
	if err := answerValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid answer request: %w", err)
	}
	return nil
}

// VerificationEnabled reports the effective verification setting.
func (r *AnswerRequest) VerificationEnabled() bool {
	return r.EnableVerification == nil || *r.EnableVerification
}

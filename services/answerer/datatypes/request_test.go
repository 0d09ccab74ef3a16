// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// Tests for the answer request payload

package datatypes

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaults_FillsOmittedFields(t *testing.T) {
	req := AnswerRequest{Question: "  Comment bloquer ma carte ?  "}
	req.EnsureDefaults()

	assert.Equal(t, "Comment bloquer ma carte ?", req.Question)
	require.NotEmpty(t, req.RequestID)
	_, err := uuid.Parse(req.RequestID)
	assert.NoError(t, err)
	require.NotNil(t, req.EnableVerification)
	assert.True(t, *req.EnableVerification)
}

func TestEnsureDefaults_KeepsCallerValues(t *testing.T) {
	disabled := false
	id := uuid.NewString()
	req := AnswerRequest{
		Question:           "q",
		RequestID:          id,
		EnableVerification: &disabled,
	}
	req.EnsureDefaults()

	assert.Equal(t, id, req.RequestID)
	assert.False(t, *req.EnableVerification)
}

func TestValidate_RejectsEmptyQuestion(t *testing.T) {
	req := AnswerRequest{Question: "   "}
	req.EnsureDefaults()
	assert.Error(t, req.Validate())
}

func TestValidate_RejectsOverlongQuestion(t *testing.T) {
	req := AnswerRequest{Question: strings.Repeat("a", 4001)}
	req.EnsureDefaults()
	assert.Error(t, req.Validate())
}

func TestValidate_RejectsBadRequestID(t *testing.T) {
	req := AnswerRequest{Question: "q", RequestID: "not-a-uuid"}
	req.EnsureDefaults()
	assert.Error(t, req.Validate())
}

func TestValidate_RejectsMaxDocumentsOutOfRange(t *testing.T) {
	req := AnswerRequest{Question: "q", MaxDocuments: 21}
	req.EnsureDefaults()
	assert.Error(t, req.Validate())

	req = AnswerRequest{Question: "q", MaxDocuments: 20}
	req.EnsureDefaults()
	assert.NoError(t, req.Validate())
}

func TestVerificationEnabled(t *testing.T) {
	var req AnswerRequest
	assert.True(t, req.VerificationEnabled())

	disabled := false
	req.EnableVerification = &disabled
	assert.False(t, req.VerificationEnabled())
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 0.333, Round3(1.0/3.0))
	assert.Equal(t, 0.667, Round3(2.0/3.0))
	assert.Equal(t, 0.0, Round3(0))
	assert.Equal(t, 1.0, Round3(0.9996))
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, ClampUnit(-0.5))
	assert.Equal(t, 1.0, ClampUnit(1.5))
	assert.Equal(t, 0.42, ClampUnit(0.42))
}

func TestClaimCategory_IsValid(t *testing.T) {
	assert.True(t, ClaimNumerical.IsValid())
	assert.True(t, ClaimFactual.IsValid())
	assert.False(t, ClaimCategory("rumor").IsValid())
}

// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// Tests for the answerer HTTP handlers

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covegate/covegate/services/answerer/datatypes"
	"github.com/covegate/covegate/services/answerer/pipeline"
	"github.com/covegate/covegate/services/answerer/retrieval"
	"github.com/covegate/covegate/services/answerer/verification"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Test doubles
// =============================================================================

type stubRetriever struct {
	docs          []datatypes.EvidenceDocument
	gotCollection string
}

func (s *stubRetriever) Retrieve(_ context.Context, _, collection string, _ []string, _ int) []datatypes.EvidenceDocument {
	s.gotCollection = collection
	return s.docs
}

func (s *stubRetriever) Rerank(_ context.Context, _ string, docs []datatypes.EvidenceDocument) []datatypes.EvidenceDocument {
	return docs
}

type stubGenerator struct {
	answer string
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ []datatypes.EvidenceDocument, _ string) string {
	return s.answer
}

type stubVerifier struct{}

func (s *stubVerifier) Verify(_ context.Context, _, answer string, _ []datatypes.EvidenceDocument, _ string) verification.Result {
	return verification.Result{FinalAnswer: answer}
}

type stubIndex struct {
	count int
	hit   *retrieval.Hit
	err   error
}

func (s *stubIndex) Search(_ context.Context, _ []float32, _ retrieval.SearchOptions) ([]retrieval.Hit, error) {
	return nil, nil
}

func (s *stubIndex) GetByID(_ context.Context, _ string) (*retrieval.Hit, error) {
	return s.hit, s.err
}

func (s *stubIndex) Count(_ context.Context) (int, error) {
	return s.count, s.err
}

func testRouter() *gin.Engine {
	p := pipeline.New(pipeline.Deps{
		Retriever: &stubRetriever{docs: []datatypes.EvidenceDocument{
			{ID: "doc-1", Text: "Les virements SEPA sont exécutés sous un jour ouvré.", Score: 0.9, Language: "fr"},
		}},
		Generator: &stubGenerator{answer: "Les virements SEPA sont exécutés sous un jour ouvré. [doc-1]"},
		Verifier:  &stubVerifier{},
	})
	router := gin.New()
	router.POST("/v1/answer", HandleAnswer(p))
	return router
}

func postAnswer(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest("POST", "/v1/answer", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck_ReturnsOK(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
}

// =============================================================================
// Answer Tests
// =============================================================================

func TestHandleAnswer_ReturnsPipelineResult(t *testing.T) {
	router := testRouter()
	w := postAnswer(t, router, `{"question": "Quel est le délai d'un virement SEPA ?"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var result datatypes.PipelineResult
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "Quel est le délai d'un virement SEPA ?", result.Query)
	assert.Contains(t, result.FinalAnswer, "virements SEPA")
	assert.Equal(t, "fr", result.Language)
	require.Len(t, result.Evidence, 1)
	assert.Equal(t, "doc-1", result.Evidence[0].ID)
}

func TestHandleAnswer_InvalidJSON(t *testing.T) {
	router := testRouter()
	w := postAnswer(t, router, `{"question": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "invalid request body", response["error"])
}

func TestHandleAnswer_MissingQuestion(t *testing.T) {
	router := testRouter()
	w := postAnswer(t, router, `{"question": "   "}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.NotEmpty(t, response["error"])
}

func TestHandleAnswer_DefaultsApplied(t *testing.T) {
	// No request id and no verification flag; EnsureDefaults fills both.
	router := testRouter()
	w := postAnswer(t, router, `{"question": "Comment contester un prélèvement ?"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var result datatypes.PipelineResult
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.NotEmpty(t, result.FinalAnswer)
}

func TestHandleAnswer_CollectionReachesRetriever(t *testing.T) {
	retriever := &stubRetriever{docs: []datatypes.EvidenceDocument{
		{ID: "doc-1", Text: "Les archives sont conservées dix ans.", Score: 0.8, Language: "fr"},
	}}
	p := pipeline.New(pipeline.Deps{
		Retriever: retriever,
		Generator: &stubGenerator{answer: "Les archives sont conservées dix ans. [doc-1]"},
		Verifier:  &stubVerifier{},
	})
	router := gin.New()
	router.POST("/v1/answer", HandleAnswer(p))

	w := postAnswer(t, router, `{"question": "Combien de temps les archives sont-elles conservées ?", "collection": "ArchiveDoc"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ArchiveDoc", retriever.gotCollection)
}

func TestHandleAnswer_RejectsMalformedCollection(t *testing.T) {
	router := testRouter()
	w := postAnswer(t, router, `{"question": "Question ?", "collection": "Archive Doc; drop"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =============================================================================
// GetDocument Tests
// =============================================================================

func getDocument(t *testing.T, index *stubIndex, id string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.GET("/v1/documents/:id", GetDocument(index))

	w := httptest.NewRecorder()
	req, err := http.NewRequest("GET", "/v1/documents/"+id, nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)
	return w
}

func TestGetDocument_Found(t *testing.T) {
	w := getDocument(t, &stubIndex{hit: &retrieval.Hit{
		ID:        "a5b1c9d2-0000-0000-0000-000000000001",
		Text:      "Les virements SEPA sont exécutés sous un jour ouvré.",
		SourceTag: "synth",
		Language:  "fr",
	}}, "a5b1c9d2-0000-0000-0000-000000000001")

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "a5b1c9d2-0000-0000-0000-000000000001", response["id"])
	assert.Contains(t, response["content"], "virements SEPA")
	assert.Equal(t, "synth", response["source"])
	assert.Equal(t, "fr", response["lang"])
}

func TestGetDocument_NotFound(t *testing.T) {
	w := getDocument(t, &stubIndex{}, "no-such-id")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDocument_IndexDown(t *testing.T) {
	w := getDocument(t, &stubIndex{err: errors.New("connection refused")}, "any")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// =============================================================================
// ReadyCheck Tests
// =============================================================================

func TestReadyCheck_IndexReachable(t *testing.T) {
	router := gin.New()
	router.GET("/ready", ReadyCheck(&stubIndex{count: 42}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ready", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ready", response["status"])
	assert.Equal(t, float64(42), response["documents"])
}

func TestReadyCheck_IndexDown(t *testing.T) {
	router := gin.New()
	router.GET("/ready", ReadyCheck(&stubIndex{err: errors.New("connection refused")}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ready", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "unavailable", response["status"])
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"
	"fitsearch/internal/repository"
	"fitsearch/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := repository.LoadMemoryRepository("../repository/testdata/installations.yaml")
	require.NoError(t, err)

	sessions := service.NewSessionStore(service.SessionConfig{TTL: time.Hour})
	engine := service.NewQueryEngine(geo.MustDefault(), sessions, service.EngineConfig{})
	svc := service.NewSearchService(engine, repo, service.NewRanker(0.4, 0.35, 0.25), nil, service.SearchConfig{
		DefaultTopK: 20,
		MaxTopK:     100,
	})

	router := gin.New()
	RegisterRoutes(router, Handlers{
		Query:     NewQueryHandler(engine),
		Search:    NewSearchHandler(svc, 20, 100),
		Embedding: NewEmbeddingHandler(svc, 2),
		Feedback:  NewFeedbackHandler(svc),
	})
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestQueryResolve(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/query", model.QueryRequest{Query: "wind sites over 100kw in berkshire"})
	require.Equal(t, http.StatusOK, w.Code)

	var res model.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, model.IntentNewSearch, res.Intent.Kind)
	require.NotNil(t, res.Filter)
	assert.Equal(t, "Berkshire", res.Filter.Location.RegionName)
	assert.Equal(t, []string{"RG", "SL"}, res.Filter.Location.PostcodePrefixes)
}

func TestQueryClarifications(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"unknown technology", "geothermal sites in cornwall", service.CodeUnknownTech},
		{"inverted range", "wind over 500kw under 100kw", service.CodeInvalidRange},
		{"two places", "wind in york and leeds", service.CodeAmbiguous},
		{"empty", "", service.CodeEmptyQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/v1/query", model.QueryRequest{Query: tt.query})
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)

			var body ClarificationResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotNil(t, body.Clarification)
			assert.Equal(t, tt.code, body.Clarification.Code)
			assert.NotEmpty(t, body.Clarification.Message)
			require.NotNil(t, body.Resolution)
			assert.NotEmpty(t, body.Resolution.Intent.Kind)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), service.CodeSessionNotFound)

	w = doJSON(router, http.MethodPost, "/api/v1/query", model.QueryRequest{SessionID: "s1", Query: "hydro in cornwall"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/sessions/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sess model.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, 1, sess.TurnCount)
	assert.Equal(t, model.TechHydro, *sess.LastFilter.Technology)

	w = doJSON(router, http.MethodDelete, "/api/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(router, http.MethodDelete, "/api/v1/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedback(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/search", model.SearchRequest{SessionID: "fb", Query: "wind sites in cornwall"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	tests := []struct {
		name string
		req  model.FeedbackRequest
		code int
		body string
	}{
		{"invalid action", model.FeedbackRequest{SearchID: resp.SearchID, InstallationID: "100401", Action: "like"}, http.StatusBadRequest, "view_details"},
		{"no session", model.FeedbackRequest{SearchID: "any", InstallationID: "100401", Action: model.FeedbackClick}, http.StatusOK, "100401"},
		{"latest search of the session", model.FeedbackRequest{SessionID: "fb", SearchID: resp.SearchID, InstallationID: "100401", Action: model.FeedbackContact}, http.StatusOK, "100401"},
		{"stale search", model.FeedbackRequest{SessionID: "fb", SearchID: "other", InstallationID: "100401", Action: model.FeedbackClick}, http.StatusNotFound, service.CodeUnknownSearch},
		{"unknown session", model.FeedbackRequest{SessionID: "nope", SearchID: resp.SearchID, InstallationID: "100401", Action: model.FeedbackClick}, http.StatusNotFound, service.CodeSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/v1/feedback", tt.req)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestEmbeddingBatch(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/embeddings/batch", model.EmbeddingBatchRequest{Embeddings: []model.EmbeddingItem{
		{InstallationID: "100101", Embedding: []float32{0.1, 0.2}},
	}})
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.EmbeddingBatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Success)

	w = doJSON(router, http.MethodPost, "/api/v1/embeddings/batch", model.EmbeddingBatchRequest{Embeddings: []model.EmbeddingItem{
		{InstallationID: "100101", Embedding: []float32{0.1, 0.2}},
		{InstallationID: "999999", Embedding: []float32{0.3, 0.4}},
	}})
	require.Equal(t, http.StatusPartialContent, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Failed)

	w = doJSON(router, http.MethodPost, "/api/v1/embeddings/batch", model.EmbeddingBatchRequest{Embeddings: []model.EmbeddingItem{
		{InstallationID: "100101", Embedding: []float32{0.1, 0.2, 0.3}},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// text without a configured embedder
	w = doJSON(router, http.MethodPost, "/api/v1/embeddings/batch", model.EmbeddingBatchRequest{Embeddings: []model.EmbeddingItem{
		{InstallationID: "100101", Text: "farm turbine"},
	}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestNoRoute(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(router, http.MethodGet, "/api/v2/anything", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "API endpoint not found")
}

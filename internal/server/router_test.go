package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/cardsmith/internal/api/handlers"
	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/preprocess"
	"github.com/cloo-solutions/cardsmith/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) SubmitText(ctx context.Context, input service.SubmitTextInput) (*service.SubmitOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitOutput), args.Error(1)
}

func (m *MockDocumentService) SubmitUpload(ctx context.Context, input service.SubmitUploadInput) (*service.SubmitOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitOutput), args.Error(1)
}

func (m *MockDocumentService) GetDocument(ctx context.Context, id string) (*service.DocumentView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentView), args.Error(1)
}

func (m *MockDocumentService) GetResult(ctx context.Context, id string) (*domain.DocumentResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentResult), args.Error(1)
}

type stubHealth struct{ err error }

func (s stubHealth) Ping(context.Context) error { return s.err }

func newTestRouter(t *testing.T, docs *MockDocumentService, health HealthChecker) http.Handler {
	t.Helper()
	pipeline, err := preprocess.NewPipeline(preprocess.DefaultConfig(), preprocess.DefaultKeywordLibrary(), preprocess.DefaultCostTable())
	require.NoError(t, err)

	cfg := RouterConfig{
		PreprocessHandler: handlers.NewPreprocessHandler(service.NewPreprocessService(pipeline)),
		Health:            health,
	}
	if docs != nil {
		cfg.DocumentHandler = handlers.NewDocumentHandler(docs)
	}
	return NewRouter(cfg)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["data"]["status"])
}

func TestRouter_HealthDatabaseDown(t *testing.T) {
	router := newTestRouter(t, nil, stubHealth{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_PreprocessEndToEnd(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	body := `{"text":"Photosynthesis is defined as the process by which plants convert light energy into chemical energy.\nPage 3\nThe cell membrane controls what enters and leaves the cell.","subject":"science"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/preprocess", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data domain.PreprocessingResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Chunks)
	assert.Equal(t, "standard", resp.Data.Provider)
	assert.NotContains(t, resp.Data.FilteredContent, "Page 3")
	assert.Greater(t, resp.Data.TotalTokens, 0)
}

func TestRouter_EstimateUnknownProvider(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/estimate", strings.NewReader(`{"text":"abcd","provider":"luxury"}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRouter_BatchesEmpty(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/preprocess/batches", strings.NewReader(`{"chunks":[]}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"batches":[]`)
}

func TestRouter_DocumentRoutesAbsentWithoutHandler(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_DocumentRoutes(t *testing.T) {
	docs := new(MockDocumentService)
	router := newTestRouter(t, docs, nil)

	now := time.Now().UTC()
	doc := domain.NewDocument("doc-1", domain.SubjectGeneral, "", "text/plain", "", "text", now)
	docs.On("GetDocument", mock.Anything, "doc-1").Return(&service.DocumentView{Document: doc}, nil)
	docs.On("GetResult", mock.Anything, "doc-1").Return(nil, domain.ErrResultNotReady)
	docs.On("SubmitText", mock.Anything, mock.Anything).Return(&service.SubmitOutput{
		Document: doc,
		Job:      domain.NewPreprocessJob("job-1", "doc-1", now),
	}, nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/documents/doc-1", "", http.StatusOK},
		{http.MethodGet, "/documents/doc-1/result", "", http.StatusConflict},
		{http.MethodPost, "/documents", `{"text":"text"}`, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRouter_RejectsOversizeJSON(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	body := `{"text":"` + strings.Repeat("a", 11<<20) + `"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/preprocess", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func postJSON(url, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func testChunk(text string) domain.ContentChunk {
	return domain.NewContentChunk(text, "section_0", 1.0, 0.4)
}

func TestPreprocessHandler_Preprocess_Success(t *testing.T) {
	mockSvc := new(MockPreprocessService)
	handler := NewPreprocessHandler(mockSvc)

	result := &domain.PreprocessingResult{
		Chunks:          []domain.ContentChunk{testChunk("Photosynthesis is defined as a process.")},
		TotalTokens:     10,
		EstimatedCost:   0.00002,
		Provider:        "standard",
		FilteredContent: "Photosynthesis is defined as a process.",
	}
	mockSvc.On("Preprocess", mock.Anything, service.PreprocessInput{
		Text:    "Photosynthesis is defined as a process.",
		Subject: domain.SubjectScience,
	}).Return(result, nil)

	w := httptest.NewRecorder()
	handler.Preprocess(w, postJSON("/preprocess", `{"text":"Photosynthesis is defined as a process.","subject":"Science"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)

	var got domain.PreprocessingResult
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, *result, got)
	mockSvc.AssertExpectations(t)
}

func TestPreprocessHandler_Preprocess_EmptyResultHasChunkArray(t *testing.T) {
	mockSvc := new(MockPreprocessService)
	handler := NewPreprocessHandler(mockSvc)

	mockSvc.On("Preprocess", mock.Anything, mock.Anything).Return(&domain.PreprocessingResult{Provider: "standard"}, nil)

	w := httptest.NewRecorder()
	handler.Preprocess(w, postJSON("/preprocess", `{"text":"","subject":"unknown"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"chunks":[]`)
	mockSvc.AssertCalled(t, "Preprocess", mock.Anything, service.PreprocessInput{Subject: domain.SubjectGeneral})
}

func TestPreprocessHandler_Preprocess_InvalidBody(t *testing.T) {
	handler := NewPreprocessHandler(new(MockPreprocessService))

	w := httptest.NewRecorder()
	handler.Preprocess(w, postJSON("/preprocess", `{not json`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decodeEnvelope(t, w).Error)
}

func TestPreprocessHandler_Batches_Success(t *testing.T) {
	mockSvc := new(MockPreprocessService)
	handler := NewPreprocessHandler(mockSvc)

	chunk := testChunk("An atom is defined as the smallest unit.")
	batches := []domain.Batch{{Index: 0, Chunks: []domain.ContentChunk{chunk}, Tokens: 11}}
	mockSvc.On("Batches", mock.Anything, service.BatchesInput{
		Chunks:       []domain.ContentChunk{chunk},
		MaxBatchSize: 2,
	}).Return(batches, nil)

	body, err := json.Marshal(BatchesRequest{Chunks: []domain.ContentChunk{chunk}, MaxBatchSize: 2})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.Batches(w, postJSON("/preprocess/batches", string(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	var got BatchesResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	assert.Equal(t, batches, got.Batches)
}

func TestPreprocessHandler_Batches_NegativeSize(t *testing.T) {
	handler := NewPreprocessHandler(new(MockPreprocessService))

	w := httptest.NewRecorder()
	handler.Batches(w, postJSON("/preprocess/batches", `{"chunks":[],"max_batch_size":-1}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreprocessHandler_Batches_InvalidChunk(t *testing.T) {
	mockSvc := new(MockPreprocessService)
	handler := NewPreprocessHandler(mockSvc)

	mockSvc.On("Batches", mock.Anything, mock.Anything).Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid content chunk"))

	w := httptest.NewRecorder()
	handler.Batches(w, postJSON("/preprocess/batches", `{"chunks":[{"text":""}]}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.ErrCodeValidation, decodeEnvelope(t, w).Code)
}

func TestPreprocessHandler_Estimate_Success(t *testing.T) {
	mockSvc := new(MockPreprocessService)
	handler := NewPreprocessHandler(mockSvc)

	out := &service.EstimateOutput{Provider: "premium", TotalTokens: 2000, EstimatedCost: 0.008}
	mockSvc.On("Estimate", mock.Anything, service.EstimateInput{Text: "some text", Provider: "premium"}).Return(out, nil)

	w := httptest.NewRecorder()
	handler.Estimate(w, postJSON("/estimate", `{"text":"some text","provider":"premium"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	var got service.EstimateOutput
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &got))
	assert.Equal(t, *out, got)
}

func TestPreprocessHandler_Estimate_UnknownProvider(t *testing.T) {
	mockSvc := new(MockPreprocessService)
	handler := NewPreprocessHandler(mockSvc)

	mockSvc.On("Estimate", mock.Anything, mock.Anything).Return(nil, domain.ErrUnknownProvider)

	w := httptest.NewRecorder()
	handler.Estimate(w, postJSON("/estimate", `{"text":"some text","provider":"luxury"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, domain.ErrCodeConfiguration, decodeEnvelope(t, w).Code)
}

func TestPreprocessHandler_Estimate_RequiresInput(t *testing.T) {
	mockSvc := new(MockPreprocessService)
	handler := NewPreprocessHandler(mockSvc)

	w := httptest.NewRecorder()
	handler.Estimate(w, postJSON("/estimate", `{"text":"   "}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Estimate", mock.Anything, mock.Anything)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cloo-solutions/cardsmith/internal/api"
	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/service"
)

type PreprocessService interface {
	Preprocess(ctx context.Context, input service.PreprocessInput) (*domain.PreprocessingResult, error)
	Batches(ctx context.Context, input service.BatchesInput) ([]domain.Batch, error)
	Estimate(ctx context.Context, input service.EstimateInput) (*service.EstimateOutput, error)
}

// PreprocessHandler serves the synchronous pipeline endpoints.
type PreprocessHandler struct {
	svc PreprocessService
}

func NewPreprocessHandler(svc PreprocessService) *PreprocessHandler {
	return &PreprocessHandler{svc: svc}
}

type PreprocessRequest struct {
	Text    string `json:"text"`
	Subject string `json:"subject"`
}

type BatchesRequest struct {
	Chunks       []domain.ContentChunk `json:"chunks"`
	MaxBatchSize int                   `json:"max_batch_size"`
}

type BatchesResponse struct {
	Batches []domain.Batch `json:"batches"`
}

type EstimateRequest struct {
	Text     string                `json:"text"`
	Chunks   []domain.ContentChunk `json:"chunks"`
	Provider string                `json:"provider"`
}

// Preprocess handles POST /preprocess. Text without relevant content is not
// an error; it returns an empty chunk list.
func (h *PreprocessHandler) Preprocess(w http.ResponseWriter, r *http.Request) {
	var req PreprocessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Preprocess(r.Context(), service.PreprocessInput{
		Text:    req.Text,
		Subject: domain.ParseSubject(req.Subject),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if result.Chunks == nil {
		result.Chunks = []domain.ContentChunk{}
	}
	api.Success(w, http.StatusOK, result)
}

// Batches handles POST /preprocess/batches.
func (h *PreprocessHandler) Batches(w http.ResponseWriter, r *http.Request) {
	var req BatchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxBatchSize < 0 {
		api.Error(w, http.StatusBadRequest, "max_batch_size cannot be negative")
		return
	}

	batches, err := h.svc.Batches(r.Context(), service.BatchesInput{
		Chunks:       req.Chunks,
		MaxBatchSize: req.MaxBatchSize,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if batches == nil {
		batches = []domain.Batch{}
	}
	api.Success(w, http.StatusOK, BatchesResponse{Batches: batches})
}

// Estimate handles POST /estimate.
func (h *PreprocessHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Chunks) == 0 {
		api.Error(w, http.StatusBadRequest, "text or chunks is required")
		return
	}

	out, err := h.svc.Estimate(r.Context(), service.EstimateInput{
		Chunks:   req.Chunks,
		Text:     req.Text,
		Provider: req.Provider,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, out)
}

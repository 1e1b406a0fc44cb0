package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cloo-solutions/cardsmith/internal/api"
	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/service"
	"github.com/cloo-solutions/cardsmith/internal/storage"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 8 << 20

type DocumentService interface {
	SubmitText(ctx context.Context, input service.SubmitTextInput) (*service.SubmitOutput, error)
	SubmitUpload(ctx context.Context, input service.SubmitUploadInput) (*service.SubmitOutput, error)
	GetDocument(ctx context.Context, id string) (*service.DocumentView, error)
	GetResult(ctx context.Context, id string) (*domain.DocumentResult, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type SubmitTextRequest struct {
	Text     string `json:"text"`
	Subject  string `json:"subject"`
	Filename string `json:"filename"`
}

type JobResponse struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Retries     int32   `json:"retries"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

type DocumentResponse struct {
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	Filename    string       `json:"filename,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	Status      string       `json:"status"`
	Error       string       `json:"error,omitempty"`
	SourceURL   string       `json:"source_url,omitempty"`
	Job         *JobResponse `json:"job,omitempty"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
}

type DocumentResultResponse struct {
	DocumentID string `json:"document_id"`
	domain.PreprocessingResult
	Batches   []domain.Batch `json:"batches"`
	CreatedAt string         `json:"created_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func jobToResponse(j *domain.PreprocessJob) *JobResponse {
	if j == nil {
		return nil
	}
	resp := &JobResponse{
		ID:        j.ID,
		Status:    string(j.Status),
		Retries:   j.Retries,
		Error:     j.Error,
		CreatedAt: formatTime(j.CreatedAt),
	}
	if j.ProcessedAt != nil {
		processed := formatTime(*j.ProcessedAt)
		resp.ProcessedAt = &processed
	}
	return resp
}

func documentToResponse(d *domain.Document, job *domain.PreprocessJob, sourceURL string) *DocumentResponse {
	return &DocumentResponse{
		ID:          d.ID,
		Subject:     string(d.Subject),
		Filename:    d.Filename,
		ContentType: d.ContentType,
		Status:      string(d.Status),
		Error:       d.Error,
		SourceURL:   sourceURL,
		Job:         jobToResponse(job),
		CreatedAt:   formatTime(d.CreatedAt),
		UpdatedAt:   formatTime(d.UpdatedAt),
	}
}

func resultToResponse(r *domain.DocumentResult) *DocumentResultResponse {
	resp := &DocumentResultResponse{
		DocumentID:          r.DocumentID,
		PreprocessingResult: r.Result,
		Batches:             r.Batches,
		CreatedAt:           formatTime(r.CreatedAt),
	}
	if resp.Chunks == nil {
		resp.Chunks = []domain.ContentChunk{}
	}
	if resp.Batches == nil {
		resp.Batches = []domain.Batch{}
	}
	return resp
}

// Submit handles POST /documents with inline text.
func (h *DocumentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.svc.SubmitText(r.Context(), service.SubmitTextInput{
		Text:     req.Text,
		Subject:  req.Subject,
		Filename: req.Filename,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(out.Document, out.Job, ""))
}

// Upload handles POST /documents/upload with a multipart "file" part and an
// optional "subject" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxObjectSize+1))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(data)) > storage.MaxObjectSize {
		api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	out, err := h.svc.SubmitUpload(r.Context(), service.SubmitUploadInput{
		Filename: header.Filename,
		Data:     data,
		Subject:  r.FormValue("subject"),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(out.Document, out.Job, ""))
}

// Get handles GET /documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	view, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(view.Document, view.Job, view.SourceURL))
}

// Result handles GET /documents/{id}/result.
func (h *DocumentHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	result, err := h.svc.GetResult(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, resultToResponse(result))
}

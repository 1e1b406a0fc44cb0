package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/extract"
	"github.com/cloo-solutions/cardsmith/internal/preprocess"
	"github.com/cloo-solutions/cardsmith/internal/storage"
	"github.com/cloo-solutions/cardsmith/internal/telemetry"
)

type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error
}

type PreprocessJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.PreprocessJob) error
	GetLatestByDocumentID(ctx context.Context, documentID string) (*domain.PreprocessJob, error)
}

type ResultRepositoryInterface interface {
	Save(ctx context.Context, r *domain.DocumentResult) error
	GetByDocumentID(ctx context.Context, documentID string) (*domain.DocumentResult, error)
}

type StorageClientInterface interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(filename string, data []byte) (string, error)
}

// DocumentService accepts documents for asynchronous preprocessing and
// serves their status and results.
type DocumentService struct {
	documents DocumentRepositoryInterface
	jobs      PreprocessJobRepositoryInterface
	results   ResultRepositoryInterface
	pipeline  *preprocess.Pipeline
	extractor TextExtractor
	storage   StorageClientInterface
	uuidGen   UUIDGenerator
	txRunner  TxRunner
}

func NewDocumentService(
	documents DocumentRepositoryInterface,
	jobs PreprocessJobRepositoryInterface,
	results ResultRepositoryInterface,
	pipeline *preprocess.Pipeline,
	extractor TextExtractor,
) *DocumentService {
	return &DocumentService{
		documents: documents,
		jobs:      jobs,
		results:   results,
		pipeline:  pipeline,
		extractor: extractor,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// WithStorage enables file uploads backed by client.
func (s *DocumentService) WithStorage(client StorageClientInterface) *DocumentService {
	s.storage = client
	return s
}

// WithTxRunner makes multi-row writes atomic.
func (s *DocumentService) WithTxRunner(txRunner TxRunner) *DocumentService {
	s.txRunner = txRunner
	return s
}

// WithUUIDGenerator replaces the ID source.
func (s *DocumentService) WithUUIDGenerator(gen UUIDGenerator) *DocumentService {
	s.uuidGen = gen
	return s
}

type SubmitTextInput struct {
	Text     string
	Subject  string
	Filename string
}

type SubmitUploadInput struct {
	Filename string
	Data     []byte
	Subject  string
}

type SubmitOutput struct {
	Document *domain.Document
	Job      *domain.PreprocessJob
}

// DocumentView is a document with its latest job and, for uploads, a
// temporary download link to the source file.
type DocumentView struct {
	Document  *domain.Document
	Job       *domain.PreprocessJob
	SourceURL string
}

// SubmitText stores pasted text and queues it for preprocessing.
func (s *DocumentService) SubmitText(ctx context.Context, input SubmitTextInput) (*SubmitOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.SubmitText", telemetry.SpanAttributes{
		Subject:   input.Subject,
		Operation: "submit_text",
	})
	defer span.End()

	if strings.TrimSpace(input.Text) == "" {
		return nil, domain.ErrEmptyDocument
	}

	now := time.Now().UTC()
	doc := domain.NewDocument(s.uuidGen.NewString(), domain.ParseSubject(input.Subject),
		input.Filename, "text/plain", "", input.Text, now)

	out, err := s.createWithJob(ctx, doc, now)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return out, nil
}

// SubmitUpload stores the file in object storage and queues it for
// preprocessing. The stored object is removed again if the database write
// fails.
func (s *DocumentService) SubmitUpload(ctx context.Context, input SubmitUploadInput) (*SubmitOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.SubmitUpload", telemetry.SpanAttributes{
		Subject:   input.Subject,
		Operation: "submit_upload",
	})
	defer span.End()

	if s.storage == nil {
		return nil, domain.ErrStorageNotConfigured
	}
	if !extract.IsSupported(input.Filename) {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrUnsupportedFileType.Message, fmt.Errorf("%q", input.Filename))
	}
	if len(input.Data) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	now := time.Now().UTC()
	id := s.uuidGen.NewString()
	contentType := extract.ContentType(input.Filename)
	key := storage.SourceKey(id, input.Filename)

	if err := s.storage.PutObject(ctx, key, input.Data, contentType); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrStorageOperationFail.Message, err)
	}

	doc := domain.NewDocument(id, domain.ParseSubject(input.Subject), input.Filename, contentType, key, "", now)
	out, err := s.createWithJob(ctx, doc, now)
	if err != nil {
		span.SetError(err)
		if delErr := s.storage.DeleteObject(ctx, key); delErr != nil {
			log.Printf("failed to remove orphaned upload %s: %v", key, delErr)
		}
		return nil, err
	}
	return out, nil
}

func (s *DocumentService) createWithJob(ctx context.Context, doc *domain.Document, now time.Time) (*SubmitOutput, error) {
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}
	job := domain.NewPreprocessJob(s.uuidGen.NewString(), doc.ID, now)

	if s.txRunner != nil {
		err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Documents().Create(ctx, doc); err != nil {
				return fmt.Errorf("failed to create document: %w", err)
			}
			if err := repos.PreprocessJobs().Create(ctx, job); err != nil {
				return fmt.Errorf("failed to create preprocess job: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &SubmitOutput{Document: doc, Job: job}, nil
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create preprocess job: %w", err)
	}
	return &SubmitOutput{Document: doc, Job: job}, nil
}

// GetDocument returns the document, its latest job and a source link for
// uploads.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*DocumentView, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.GetDocument", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "get",
	})
	defer span.End()

	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &DocumentView{Document: doc}

	job, err := s.jobs.GetLatestByDocumentID(ctx, id)
	switch {
	case err == nil:
		view.Job = job
	case !errors.Is(err, domain.ErrJobNotFound):
		return nil, fmt.Errorf("failed to load preprocess job: %w", err)
	}

	if doc.IsUpload() && s.storage != nil {
		url, err := s.storage.GenerateDownloadURL(ctx, doc.StorageKey)
		if err != nil {
			log.Printf("failed to presign source for document %s: %v", id, err)
		} else {
			view.SourceURL = url
		}
	}

	return view, nil
}

// GetResult returns the stored preprocessing result of a completed document.
func (s *DocumentService) GetResult(ctx context.Context, id string) (*domain.DocumentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.GetResult", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "get_result",
	})
	defer span.End()

	doc, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentStatusCompleted {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInvalidOperation, domain.ErrResultNotReady.Message,
			fmt.Errorf("document status is %s", doc.Status))
	}

	return s.results.GetByDocumentID(ctx, id)
}

// ProcessDocument runs the pipeline over a stored document, saves the result
// and marks the document completed. A document without relevant content
// completes with an empty result.
func (s *DocumentService) ProcessDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.ProcessDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "process",
	})
	defer span.End()

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to mark document processing: %w", err)
	}

	text, err := s.documentText(ctx, doc)
	if err != nil {
		span.SetError(err)
		return err
	}

	result := s.pipeline.Preprocess(text, doc.Subject)
	docResult := &domain.DocumentResult{
		DocumentID: doc.ID,
		Result:     *result,
		Batches:    s.pipeline.Batches(result.Chunks),
		CreatedAt:  time.Now().UTC(),
	}
	if err := domain.ValidateDocumentResult(docResult); err != nil {
		span.SetError(err)
		return fmt.Errorf("invalid preprocessing result: %w", err)
	}
	span.SetData("chunks", len(result.Chunks))

	if s.txRunner != nil {
		return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			return saveAndComplete(ctx, repos.Results(), repos.Documents(), docResult)
		})
	}
	return saveAndComplete(ctx, s.results, s.documents, docResult)
}

// FailDocument marks a document failed with reason.
func (s *DocumentService) FailDocument(ctx context.Context, documentID, reason string) error {
	return s.documents.UpdateStatus(ctx, documentID, domain.DocumentStatusFailed, reason)
}

func (s *DocumentService) documentText(ctx context.Context, doc *domain.Document) (string, error) {
	if !doc.IsUpload() {
		return doc.Text, nil
	}
	if s.storage == nil {
		return "", domain.ErrStorageNotConfigured
	}

	data, err := s.storage.GetObject(ctx, doc.StorageKey)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrStorageOperationFail.Message, err)
	}

	text, err := s.extractor.Extract(doc.Filename, data)
	if err != nil {
		return "", err
	}
	return text, nil
}

func saveAndComplete(ctx context.Context, results ResultRepositoryInterface, documents DocumentRepositoryInterface, r *domain.DocumentResult) error {
	if err := results.Save(ctx, r); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	if err := documents.UpdateStatus(ctx, r.DocumentID, domain.DocumentStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}
	return nil
}

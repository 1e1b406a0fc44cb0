package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for a preprocess job
	MaxRetries = 3

	// DefaultClaimBatch is how many jobs one pass claims.
	DefaultClaimBatch = 10
)

// PreprocessJobRepository defines the job persistence the worker needs
type PreprocessJobRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.PreprocessJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// DocumentProcessor runs preprocessing for one document.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, documentID string) error
	FailDocument(ctx context.Context, documentID, reason string) error
}

// PreprocessWorker claims pending preprocess jobs and runs them.
type PreprocessWorker struct {
	repo       PreprocessJobRepository
	processor  DocumentProcessor
	claimBatch int
}

// NewPreprocessWorker creates a new PreprocessWorker instance
func NewPreprocessWorker(repo PreprocessJobRepository, processor DocumentProcessor) *PreprocessWorker {
	return &PreprocessWorker{
		repo:       repo,
		processor:  processor,
		claimBatch: DefaultClaimBatch,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *PreprocessWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, w.claimBatch)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending preprocess jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *PreprocessWorker) processJob(ctx context.Context, job *domain.PreprocessJob) error {
	ctx, span := telemetry.StartTransaction(ctx, "PreprocessWorker.processJob", "queue.process")
	defer span.End()
	telemetry.AddBreadcrumb(ctx, "preprocess", fmt.Sprintf("job %s document %s", job.ID, job.DocumentID))

	log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)
	if err := w.processor.ProcessDocument(ctx, job.DocumentID); err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.JobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

// handleJobFailure retries transient failures and fails the job and its
// document once retries run out or the error cannot succeed on retry.
func (w *PreprocessWorker) handleJobFailure(ctx context.Context, job *domain.PreprocessJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if isPermanent(jobErr) {
		return w.fail(ctx, job, jobErr.Error())
	}

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		return w.fail(ctx, job, fmt.Sprintf("max retries exceeded: %v", jobErr))
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.JobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}

func (w *PreprocessWorker) fail(ctx context.Context, job *domain.PreprocessJob, reason string) error {
	telemetry.CaptureError(ctx, fmt.Errorf("preprocess job %s failed: %s", job.ID, reason))

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, reason); err != nil {
		return fmt.Errorf("failed to update job status to failed: %w", err)
	}
	if err := w.processor.FailDocument(ctx, job.DocumentID, reason); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	return nil
}

// isPermanent reports errors that retrying cannot fix: bad input, missing
// documents and configuration problems.
func isPermanent(err error) bool {
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		return false
	}
	switch domErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeNotFound, domain.ErrCodeConfiguration:
		return true
	}
	return false
}

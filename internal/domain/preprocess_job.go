package domain

import (
	"fmt"
	"time"
)

// JobStatus represents the status of a preprocess job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// PreprocessJob represents an async preprocessing run for one document
type PreprocessJob struct {
	ID          string
	DocumentID  string
	Status      JobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewPreprocessJob creates a pending PreprocessJob for documentID
func NewPreprocessJob(id, documentID string, createdAt time.Time) *PreprocessJob {
	return &PreprocessJob{
		ID:         id,
		DocumentID: documentID,
		Status:     JobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidatePreprocessJob validates a PreprocessJob instance
func ValidatePreprocessJob(j *PreprocessJob) error {
	if j == nil {
		return fmt.Errorf("preprocess job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("preprocess job ID is required")
	}

	if j.DocumentID == "" {
		return fmt.Errorf("preprocess job DocumentID is required")
	}

	if !isValidJobStatus(j.Status) {
		return fmt.Errorf("preprocess job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("preprocess job Retries cannot be negative")
	}

	return nil
}

// isValidJobStatus checks if a JobStatus is valid
func isValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusPending, JobStatusProcessing,
		JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

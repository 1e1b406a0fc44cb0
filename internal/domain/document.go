package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the processing state of a document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is a source submitted for preprocessing, either as inline text
// or as an uploaded file held in object storage.
type Document struct {
	ID          string
	Subject     Subject
	Filename    string
	ContentType string
	StorageKey  string // Set for uploaded files
	Text        string // Set for inline submissions
	Status      DocumentStatus
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDocument creates a new Document instance
func NewDocument(
	id string,
	subject Subject,
	filename, contentType, storageKey, text string,
	createdAt time.Time,
) *Document {
	return &Document{
		ID:          id,
		Subject:     subject,
		Filename:    filename,
		ContentType: contentType,
		StorageKey:  storageKey,
		Text:        text,
		Status:      DocumentStatusPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// IsUpload reports whether the document text lives in object storage.
func (d *Document) IsUpload() bool {
	return d.StorageKey != ""
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if !IsValidSubject(d.Subject) {
		return fmt.Errorf("document Subject is invalid: %s", d.Subject)
	}

	if d.StorageKey == "" && d.Text == "" {
		return fmt.Errorf("document must have either StorageKey or Text")
	}

	if d.StorageKey != "" && d.Text != "" {
		return fmt.Errorf("document cannot have both StorageKey and Text")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	if d.CreatedAt.IsZero() {
		return fmt.Errorf("document CreatedAt is required")
	}

	return nil
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing,
		DocumentStatusCompleted, DocumentStatusFailed:
		return true
	}
	return false
}

package domain

import (
	"fmt"
	"time"
)

// DocumentResult is the stored preprocessing output of a document, together
// with the batches it was packed into.
type DocumentResult struct {
	DocumentID string
	Result     PreprocessingResult
	Batches    []Batch
	CreatedAt  time.Time
}

// HasContent reports whether preprocessing left any chunk to generate from.
func (r *DocumentResult) HasContent() bool {
	return len(r.Result.Chunks) > 0
}

// ValidateDocumentResult validates a DocumentResult and checks that its
// batches cover every chunk exactly once.
func ValidateDocumentResult(r *DocumentResult) error {
	if r == nil {
		return fmt.Errorf("document result cannot be nil")
	}

	if r.DocumentID == "" {
		return fmt.Errorf("document result DocumentID is required")
	}

	if err := ValidatePreprocessingResult(&r.Result); err != nil {
		return err
	}

	batched := 0
	for _, b := range r.Batches {
		if len(b.Chunks) == 0 {
			return fmt.Errorf("document result batch %d is empty", b.Index)
		}
		batched += len(b.Chunks)
	}
	if batched != len(r.Result.Chunks) {
		return fmt.Errorf("document result batches hold %d chunks, want %d", batched, len(r.Result.Chunks))
	}

	return nil
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocumentResult(t *testing.T) {
	chunk := NewContentChunk("A loop repeats a block of statements.", "Section 1", 0.5, 0.1)
	valid := func() *DocumentResult {
		return &DocumentResult{
			DocumentID: "doc-1",
			Result: PreprocessingResult{
				Chunks:      []ContentChunk{chunk},
				TotalTokens: 10,
				Provider:    "standard",
			},
			Batches:   []Batch{{Index: 0, Chunks: []ContentChunk{chunk}, Tokens: 10}},
			CreatedAt: time.Now(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *DocumentResult)
		wantErr bool
	}{
		{"valid", func(r *DocumentResult) {}, false},
		{"missing document id", func(r *DocumentResult) { r.DocumentID = "" }, true},
		{"batches miss a chunk", func(r *DocumentResult) { r.Batches = nil }, true},
		{"empty batch", func(r *DocumentResult) {
			r.Batches = append(r.Batches, Batch{Index: 1})
		}, true},
		{"empty result without batches", func(r *DocumentResult) {
			r.Result = PreprocessingResult{Chunks: []ContentChunk{}, Provider: "standard"}
			r.Batches = nil
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			err := ValidateDocumentResult(r)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, ValidateDocumentResult(nil))
}

func TestDocumentResult_HasContent(t *testing.T) {
	assert.False(t, (&DocumentResult{}).HasContent())
	assert.True(t, (&DocumentResult{Result: PreprocessingResult{Chunks: []ContentChunk{{Text: "x"}}}}).HasContent())
}

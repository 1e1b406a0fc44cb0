//go:build e2e

package e2e

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/storage"
)

const studyNotes = `Chapter 1: Cells

Photosynthesis is defined as the process by which plants convert light energy into chemical energy.
Page 1
The cell membrane controls what enters and leaves the cell. Mitochondria release energy through respiration.

Chapter 2: Genetics

A gene is a sequence of DNA that codes for a protein. Evolution acts on variation between organisms.
Copyright 2024 Example Press. All rights reserved.`

type submitted struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Job    *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"job"`
}

type storedResult struct {
	DocumentID string `json:"document_id"`
	domain.PreprocessingResult
	Batches []domain.Batch `json:"batches"`
}

func statusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func TestE2E_SynchronousPipeline(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	var result domain.PreprocessingResult

	t.Run("preprocess", func(t *testing.T) {
		resp, err := env.Post("/preprocess", map[string]string{"text": studyNotes, "subject": "science"})
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(resp.Data, &result))

		require.NotEmpty(t, result.Chunks)
		assert.NotContains(t, result.FilteredContent, "Page 1")
		assert.NotContains(t, result.FilteredContent, "Copyright")
		assert.Greater(t, result.TotalTokens, 0)
		for i := 1; i < len(result.Chunks); i++ {
			assert.GreaterOrEqual(t, result.Chunks[i-1].Priority, result.Chunks[i].Priority)
		}
	})

	t.Run("batches", func(t *testing.T) {
		resp, err := env.Post("/preprocess/batches", map[string]interface{}{"chunks": result.Chunks, "max_batch_size": 1})
		require.NoError(t, err)

		var out struct {
			Batches []domain.Batch `json:"batches"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		assert.Len(t, out.Batches, len(result.Chunks))
	})

	t.Run("estimate", func(t *testing.T) {
		resp, err := env.Post("/estimate", map[string]interface{}{"chunks": result.Chunks, "provider": "premium"})
		require.NoError(t, err)
		assert.Contains(t, string(resp.Data), `"provider":"premium"`)
	})

	t.Run("blank text yields empty result", func(t *testing.T) {
		resp, err := env.Post("/preprocess", map[string]string{"text": "Page 4\n\n12"})
		require.NoError(t, err)

		var empty domain.PreprocessingResult
		require.NoError(t, json.Unmarshal(resp.Data, &empty))
		assert.Empty(t, empty.Chunks)
		assert.Zero(t, empty.TotalTokens)
	})
}

func TestE2E_DocumentLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("inline text", func(t *testing.T) {
		resp, err := env.Post("/documents", map[string]string{"text": studyNotes, "subject": "science", "filename": "notes.txt"})
		require.NoError(t, err)

		var doc submitted
		require.NoError(t, json.Unmarshal(resp.Data, &doc))
		require.NotEmpty(t, doc.ID)
		assert.Equal(t, "pending", doc.Status)
		require.NotNil(t, doc.Job)

		final := env.WaitForDocument(doc.ID, 30*time.Second)
		assert.Equal(t, "completed", final.Status)
		require.NotNil(t, final.Job)
		assert.Equal(t, "completed", final.Job.Status)

		resp, err = env.Get("/documents/" + doc.ID + "/result")
		require.NoError(t, err)

		var result storedResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.Equal(t, doc.ID, result.DocumentID)
		assert.NotEmpty(t, result.Chunks)
		assert.NotEmpty(t, result.Batches)
	})

	t.Run("upload", func(t *testing.T) {
		resp, err := env.Upload("notes.md", []byte(studyNotes), "science")
		require.NoError(t, err)

		var doc submitted
		require.NoError(t, json.Unmarshal(resp.Data, &doc))

		meta, err := env.S3Client.HeadObject(env.Ctx, storage.SourceKey(doc.ID, "notes.md"))
		require.NoError(t, err)
		assert.Equal(t, int64(len(studyNotes)), meta.ContentLength)

		final := env.WaitForDocument(doc.ID, 30*time.Second)
		assert.Equal(t, "completed", final.Status)
		assert.NotEmpty(t, final.SourceURL)
	})

	t.Run("unsupported upload", func(t *testing.T) {
		_, err := env.Upload("notes.exe", []byte("MZ"), "")
		require.Error(t, err)
		assert.Equal(t, 400, statusOf(err))
	})

	t.Run("blank text rejected", func(t *testing.T) {
		_, err := env.Post("/documents", map[string]string{"text": "   "})
		require.Error(t, err)
		assert.Equal(t, 400, statusOf(err))
	})

	t.Run("unknown document", func(t *testing.T) {
		env.Reset()
		_, err := env.Get("/documents/00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		assert.Equal(t, 404, statusOf(err))
	})
}

func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildCLI()

	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "notes.txt"), []byte(studyNotes), 0o600))

	t.Run("local preprocess", func(t *testing.T) {
		out, err := env.RunCLI(workDir, "preprocess", "notes.txt", "--subject", "science", "--output")
		require.NoError(t, err, out)

		var result domain.PreprocessingResult
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.NotEmpty(t, result.Chunks)
	})

	t.Run("local estimate", func(t *testing.T) {
		out, err := env.RunCLI(workDir, "estimate", "notes.txt")
		require.NoError(t, err, out)
		assert.Contains(t, out, "standard")
		assert.Contains(t, out, "premium")
	})

	t.Run("submit status result", func(t *testing.T) {
		out, err := env.RunCLI(workDir, "submit", "notes.txt", "--subject", "science", "--output")
		require.NoError(t, err, out)

		var doc submitted
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		require.NotEmpty(t, doc.ID)

		env.WaitForDocument(doc.ID, 30*time.Second)

		out, err = env.RunCLI(workDir, "status", doc.ID)
		require.NoError(t, err, out)
		assert.Contains(t, out, "completed")

		out, err = env.RunCLI(workDir, "result", doc.ID, "--batches")
		require.NoError(t, err, out)
		assert.True(t, strings.Contains(out, "Chunks:"), out)
	})
}

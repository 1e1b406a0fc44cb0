package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/extract"
)

// Job mirrors the API's preprocess job.
type Job struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Retries     int    `json:"retries"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

// Document mirrors the API's document view.
type Document struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	Job         *Job   `json:"job,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// DocumentResult mirrors the API's stored preprocessing result.
type DocumentResult struct {
	DocumentID string `json:"document_id"`
	domain.PreprocessingResult
	Batches   []domain.Batch `json:"batches"`
	CreatedAt string         `json:"created_at"`
}

// SubmitCmd sends a document to the server for asynchronous preprocessing.
func SubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a document for background preprocessing",
		Long: `Uploads the file to the server, which stores it and preprocesses it in the
background. Use --inline to extract text locally and send only the text.`,
		Args: cobra.ExactArgs(1),
		RunE: runSubmit,
	}

	cmd.Flags().StringP("subject", "s", "general", "Subject hint")
	cmd.Flags().Bool("inline", false, "Extract text locally and submit it as inline text")

	return cmd
}

func runSubmit(cmd *cobra.Command, args []string) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	subject, _ := cmd.Flags().GetString("subject")
	inline, _ := cmd.Flags().GetBool("inline")

	path := args[0]
	filename := filepath.Base(path)
	if !extract.IsSupported(filename) {
		return fmt.Errorf("unsupported file type: %s (supported: .pdf, .docx, .txt, .md)", filename)
	}

	api := NewAPIClientWithCmd(cmd)

	var resp *APIResponse
	if inline {
		text, err := readDocument(path, false)
		if err != nil {
			return err
		}
		resp, err = api.Post(cmd.Context(), "/documents", map[string]string{
			"text":     text,
			"subject":  subject,
			"filename": filename,
		})
		if err != nil {
			return fmt.Errorf("failed to submit document: %w", err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		resp, err = api.PostFile(cmd.Context(), "/documents/upload", filename, data, map[string]string{"subject": subject})
		if err != nil {
			return fmt.Errorf("failed to upload document: %w", err)
		}
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	w := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(w, doc)
	}
	fmt.Fprintf(w, "Submitted %s as document %s (status: %s)\n", filename, doc.ID, doc.Status)
	fmt.Fprintf(w, "Check progress with: cardsmith status %s\n", doc.ID)
	return nil
}

// StatusCmd shows a submitted document and its preprocess job.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <document_id>",
		Short: "Show the preprocessing status of a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	api := NewAPIClientWithCmd(cmd)

	resp, err := api.Get(cmd.Context(), "/documents/"+url.PathEscape(args[0]))
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	w := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(w, doc)
	}
	printDocument(w, &doc)
	return nil
}

func printDocument(w io.Writer, doc *Document) {
	fmt.Fprintf(w, "Document: %s\n", doc.ID)
	if doc.Filename != "" {
		fmt.Fprintf(w, "File: %s\n", doc.Filename)
	}
	fmt.Fprintf(w, "Subject: %s\n", doc.Subject)
	fmt.Fprintf(w, "Status: %s\n", doc.Status)
	if doc.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", doc.Error)
	}
	if doc.Job != nil {
		fmt.Fprintf(w, "Job: %s (%s, %d retries)\n", doc.Job.ID, doc.Job.Status, doc.Job.Retries)
	}
	if doc.SourceURL != "" {
		fmt.Fprintf(w, "Source: %s\n", doc.SourceURL)
	}
	fmt.Fprintf(w, "Created: %s\n", doc.CreatedAt)
}

// ResultCmd fetches the stored result of a completed document.
func ResultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "result <document_id>",
		Short: "Show the preprocessing result of a completed document",
		Args:  cobra.ExactArgs(1),
		RunE:  runResult,
	}

	cmd.Flags().Bool("batches", false, "Also list provider batches")

	return cmd
}

func runResult(cmd *cobra.Command, args []string) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	withBatches, _ := cmd.Flags().GetBool("batches")
	api := NewAPIClientWithCmd(cmd)

	resp, err := api.Get(cmd.Context(), "/documents/"+url.PathEscape(args[0])+"/result")
	if err != nil {
		return fmt.Errorf("failed to get result: %w", err)
	}

	if outputJSON {
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(resp.Data)))
		return nil
	}

	var result DocumentResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}

	w := cmd.OutOrStdout()
	printResultSummary(w, &result.PreprocessingResult)
	if withBatches {
		printBatches(w, result.Batches)
	}
	return nil
}

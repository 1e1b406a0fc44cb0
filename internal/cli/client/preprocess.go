package client

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/cardsmith/internal/domain"
)

const previewLength = 72

// PreprocessOutput is the --output form of the preprocess command.
type PreprocessOutput struct {
	domain.PreprocessingResult
	Batches []domain.Batch `json:"batches,omitempty"`
}

// PreprocessCmd runs the pipeline on a local file without a server.
func PreprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preprocess <file>",
		Short: "Preprocess a local document into flashcard-ready chunks",
		Long: `Extracts text from a .pdf, .docx, .txt or .md file, filters it for study
content and splits it into prioritized chunks. Runs locally; no server needed.`,
		Args: cobra.ExactArgs(1),
		RunE: runPreprocess,
	}

	addPipelineFlags(cmd)
	cmd.Flags().Bool("batches", false, "Also pack the chunks into provider batches")
	cmd.Flags().Bool("filtered", false, "Print the filtered text instead of chunk summaries")

	return cmd
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	withBatches, _ := cmd.Flags().GetBool("batches")
	showFiltered, _ := cmd.Flags().GetBool("filtered")
	subject, _ := cmd.Flags().GetString("subject")

	pipeline, cfg, err := localPipeline(cmd)
	if err != nil {
		return err
	}

	text, err := readDocument(args[0], cfg.PreserveParagraphs)
	if err != nil {
		return err
	}

	result := pipeline.Preprocess(text, domain.ParseSubject(subject))
	out := PreprocessOutput{PreprocessingResult: *result}
	if withBatches {
		out.Batches = pipeline.Batches(result.Chunks)
	}

	w := cmd.OutOrStdout()
	if outputJSON {
		if out.Chunks == nil {
			out.Chunks = []domain.ContentChunk{}
		}
		return printJSON(w, out)
	}

	if showFiltered {
		fmt.Fprintln(w, result.FilteredContent)
		return nil
	}

	printResultSummary(w, result)
	if withBatches {
		printBatches(w, out.Batches)
	}
	return nil
}

func printResultSummary(w io.Writer, result *domain.PreprocessingResult) {
	if len(result.Chunks) == 0 {
		fmt.Fprintln(w, "No flashcard-worthy content found.")
		return
	}

	fmt.Fprintf(w, "Chunks: %d\n", len(result.Chunks))
	fmt.Fprintf(w, "Tokens: %d\n", result.TotalTokens)
	fmt.Fprintf(w, "Estimated cost (%s): $%.6f\n\n", result.Provider, result.EstimatedCost)

	for i, c := range result.Chunks {
		fmt.Fprintf(w, "[%d] %s  priority=%.2f relevance=%.2f words=%d\n", i+1, c.Section, c.Priority, c.RelevanceScore, c.WordCount)
		fmt.Fprintf(w, "    %s\n", preview(c.Text))
	}
}

func printBatches(w io.Writer, batches []domain.Batch) {
	fmt.Fprintf(w, "\nBatches: %d\n", len(batches))
	for _, b := range batches {
		fmt.Fprintf(w, "  batch %d: %d chunks, %d tokens\n", b.Index, len(b.Chunks), b.Tokens)
	}
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength-3]) + "..."
}

package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/cardsmith/internal/config"
	"github.com/cloo-solutions/cardsmith/internal/extract"
	"github.com/cloo-solutions/cardsmith/internal/preprocess"
)

// addPipelineFlags registers the flags that override pipeline settings from
// the environment.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("subject", "s", "general", "Subject hint (programming, mathematics, science, history, ...)")
	cmd.Flags().String("provider", "", "Cost estimation provider (economy, standard, premium)")
	cmd.Flags().Int("max-chunk-size", 0, "Maximum chunk length in characters")
	cmd.Flags().String("keywords", "", "YAML keyword library overriding the built-in one")
	cmd.Flags().Bool("preserve-paragraphs", false, "Keep paragraph breaks between relevant lines")
}

// localPipeline builds a pipeline from CARDSMITH_* settings with any flags
// given on the command line applied on top.
func localPipeline(cmd *cobra.Command) (*preprocess.Pipeline, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.CostProvider, _ = flags.GetString("provider")
	}
	if flags.Changed("max-chunk-size") {
		cfg.MaxChunkSize, _ = flags.GetInt("max-chunk-size")
	}
	if flags.Changed("keywords") {
		cfg.KeywordsFile, _ = flags.GetString("keywords")
	}
	if flags.Changed("preserve-paragraphs") {
		cfg.PreserveParagraphs, _ = flags.GetBool("preserve-paragraphs")
	}

	pipeline, err := cfg.NewPipeline()
	if err != nil {
		return nil, nil, err
	}
	return pipeline, cfg, nil
}

// readDocument extracts plain text from a supported file.
func readDocument(path string, keepParagraphs bool) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return extract.New(keepParagraphs).Extract(filepath.Base(path), data)
}

func printJSON(w io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(w, string(output))
	return nil
}

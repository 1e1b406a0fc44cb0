package admin

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/cardsmith/internal/config"
)

// KeywordsCmd prints the effective keyword library as YAML, in the format
// CARDSMITH_KEYWORDS_FILE accepts.
func KeywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Print the effective subject keyword library",
		Long: `Prints the subject keyword library the pipeline uses, after applying
CARDSMITH_KEYWORDS_FILE or --file. The output can be edited and passed back
as a keywords file.`,
		Args: cobra.NoArgs,
		RunE: runKeywords,
	}

	cmd.Flags().StringP("file", "f", "", "Keywords file to load instead of CARDSMITH_KEYWORDS_FILE")

	return cmd
}

func runKeywords(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		cfg.KeywordsFile = file
	}

	lib, err := cfg.KeywordLibrary()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(lib)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

package client

import (
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/cardsmith/internal/cli"
)

// RootCmd assembles the cardsmith command tree.
func RootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cardsmith",
		Short: "Cardsmith CLI - turn study documents into flashcard-ready chunks",
		Long: `Cardsmith filters study documents down to their learnable content and splits
it into prioritized, provider-ready chunks.

Environment variables:
  CARDSMITH_API_URL   API base URL for submit/status/result (default: http://localhost:8080)
  CARDSMITH_*         Pipeline settings for local commands (see cardsmithd)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(PreprocessCmd())
	rootCmd.AddCommand(EstimateCmd())
	rootCmd.AddCommand(SubmitCmd())
	rootCmd.AddCommand(StatusCmd())
	rootCmd.AddCommand(ResultCmd())

	return rootCmd
}

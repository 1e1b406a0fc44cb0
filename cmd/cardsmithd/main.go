package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/cardsmith/internal/cli"
	"github.com/cloo-solutions/cardsmith/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cardsmithd",
		Short: "Cardsmith daemon",
		Long:  "Cardsmith daemon for running the preprocessing API, its worker and database migrations",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.KeywordsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

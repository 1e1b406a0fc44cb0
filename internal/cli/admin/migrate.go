package admin

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/cardsmith/internal/config"
	"github.com/cloo-solutions/cardsmith/internal/database"
)

func addMigrationsFlag(cmd *cobra.Command) {
	cmd.Flags().String("migrations", database.DefaultMigrationsSource, "Migration source URL")
}

// MigrateCmd applies pending schema migrations and exits.
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			return runMigrations(cmd, cfg.DatabaseURL)
		},
	}

	addMigrationsFlag(cmd)

	return cmd
}

func runMigrations(cmd *cobra.Command, databaseURL string) error {
	source, _ := cmd.Flags().GetString("migrations")
	if source == "" {
		source = database.DefaultMigrationsSource
	}

	status, err := database.Migrate(databaseURL, source)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	switch {
	case status.Version == 0:
		log.Println("migrations: database is up to date (no migrations applied)")
	case status.Applied:
		log.Printf("migrations: applied successfully (version %d)", status.Version)
	default:
		log.Printf("migrations: database is up to date (version %d)", status.Version)
	}
	return nil
}

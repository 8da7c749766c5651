package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicdesk/municipal-service/internal/persistence"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("POSTGRES_DSN is required")
			}
			return persistence.RunMigrations(cfg.Postgres.DSN, logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("POSTGRES_DSN is required")
			}
			return persistence.RollbackMigrations(cfg.Postgres.DSN, steps, logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")

	cmd.AddCommand(up, down)
	return cmd
}

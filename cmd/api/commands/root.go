package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicdesk/municipal-service/internal/config"
	"github.com/civicdesk/municipal-service/internal/observability"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

// Execute runs the CLI. Without a subcommand it starts the HTTP server.
func Execute() error {
	root := &cobra.Command{
		Use:           "municipal-service",
		Short:         "Municipal citizen request service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded

			logger, err = observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(serveCmd(), migrateCmd(), createAdminCmd())
	return root.Execute()
}

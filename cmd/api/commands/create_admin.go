package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicdesk/municipal-service/internal/auth"
	"github.com/civicdesk/municipal-service/internal/persistence"
	"github.com/civicdesk/municipal-service/internal/repository"
	"github.com/civicdesk/municipal-service/internal/service"
)

func createAdminCmd() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			if pg.Pool == nil {
				return fmt.Errorf("POSTGRES_DSN is required")
			}

			accounts := service.NewAccountService(cfg.Auth,
				repository.NewAccountRepository(pg.Pool),
				auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
			)
			account, err := accounts.BootstrapAdmin(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			logger.Info("administrator created", zap.String("id", account.ID), zap.String("email", account.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "admin", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

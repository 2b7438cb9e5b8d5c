package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/sweet_shop/internal/config"
	"github.com/Skotchmaster/sweet_shop/internal/db"
	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/internal/logging"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/Skotchmaster/sweet_shop/internal/service"
)

func newCreateAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := setupLogger(cfg)
			ctx := logging.IntoContext(cmd.Context(), logger)

			gdb, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close(gdb)

			if err := db.Migrate(ctx, gdb); err != nil {
				return err
			}

			svc := &service.AuthService{Repo: &repo.GormRepo{DB: gdb}, Events: events.Noop{}}
			user, err := svc.CreateAdmin(ctx, name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 6 characters")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

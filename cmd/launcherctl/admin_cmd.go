package main

import (
	"context"
	"fmt"

	"LaunchGate-Backend/internal/auth"
	"LaunchGate-Backend/internal/domain"

	"github.com/spf13/cobra"
)

func newCreateAdminCommand() *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin user for the management API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("both --username and --password are required")
			}

			db, storage, log, err := openStorage()
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			hash, err := auth.NewPasswordService().HashPassword(password)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}

			admin := &domain.AdminUser{
				Username:     username,
				PasswordHash: hash,
				IsActive:     true,
			}
			if err := storage.CreateAdminUser(context.Background(), admin); err != nil {
				return fmt.Errorf("failed to create admin user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "admin user %q created\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin login name")
	cmd.Flags().StringVar(&password, "password", "", "admin password (min 8 characters)")
	return cmd
}

package main

import (
	"context"
	"fmt"

	"LaunchGate-Backend/internal/database"
	"LaunchGate-Backend/internal/domain"

	"github.com/spf13/cobra"
)

func newInitSettingsCommand() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "init-settings",
		Short: "Run migrations and seed default server settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, storage, log, err := openStorage()
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			if err := database.AutoMigrate(db, log); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			if err := database.SeedData(db, log); err != nil {
				return fmt.Errorf("failed to seed default settings: %w", err)
			}

			if secret != "" {
				if err := storage.SetSetting(context.Background(), domain.SettingLauncherSecret, secret); err != nil {
					return fmt.Errorf("failed to set launcher secret: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "launcher secret configured")
			}

			fmt.Fprintln(cmd.OutOrStdout(), "settings initialized")
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "set the launcher_secret server setting")
	return cmd
}

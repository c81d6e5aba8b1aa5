package main

import (
	"context"
	"fmt"
	"time"

	"LaunchGate-Backend/internal/auth"
	"LaunchGate-Backend/internal/domain"

	"github.com/spf13/cobra"
)

func newGenKeyCommand() *cobra.Command {
	var (
		secret  string
		dateStr string
		fromDB  bool
	)

	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Print the launcher API key for a given date",
		Long: "Computes the daily launcher API key, the hex HMAC-SHA256 of the UTC date.\n" +
			"The secret comes from --secret or, with --from-db, from the launcher_secret server setting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now().UTC()
			if dateStr != "" {
				parsed, err := time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD: %w", dateStr, err)
				}
				date = parsed
			}

			if fromDB {
				db, storage, log, err := openStorage()
				if err != nil {
					return err
				}
				defer closeDB(db, log)

				secret, err = storage.GetSetting(context.Background(), domain.SettingLauncherSecret)
				if err != nil {
					return fmt.Errorf("failed to read launcher_secret setting: %w", err)
				}
			}
			if secret == "" {
				return fmt.Errorf("no secret: pass --secret or --from-db")
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), auth.LauncherKey(secret, date))
			return err
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "shared secret to derive the key from")
	cmd.Flags().StringVar(&dateStr, "date", "", "UTC date in YYYY-MM-DD form (default today)")
	cmd.Flags().BoolVar(&fromDB, "from-db", false, "read the secret from the server_settings table")
	return cmd
}

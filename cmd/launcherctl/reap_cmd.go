package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"LaunchGate-Backend/internal/domain"

	"github.com/spf13/cobra"
)

func newReapCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Close sessions whose heartbeat went stale",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, storage, log, err := openStorage()
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			ctx := context.Background()
			if timeout == 0 {
				raw, err := storage.GetSetting(ctx, domain.SettingSessionTimeout)
				if err != nil {
					return fmt.Errorf("failed to read session_timeout_seconds setting: %w", err)
				}
				seconds, err := strconv.Atoi(raw)
				if err != nil {
					return fmt.Errorf("invalid session_timeout_seconds value %q: %w", raw, err)
				}
				timeout = time.Duration(seconds) * time.Second
			}

			reaped, err := storage.ReapExpiredSessions(ctx, timeout)
			if err != nil {
				return fmt.Errorf("failed to reap expired sessions: %w", err)
			}

			for _, s := range reaped {
				fmt.Fprintf(cmd.OutOrStdout(), "closed %s (ip %s, last heartbeat %s)\n",
					shortID(s.SessionID), s.IPAddress, s.LastHeartbeat.Format(time.RFC3339))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d session(s) reaped\n", len(reaped))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "override the idle timeout (default from server settings)")
	return cmd
}

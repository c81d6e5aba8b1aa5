package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List active launcher sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, storage, log, err := openStorage()
			if err != nil {
				return err
			}
			defer closeDB(db, log)

			sessions, err := storage.ListActiveSessions(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list active sessions: %w", err)
			}

			now := time.Now()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tIP\tHWID\tLAUNCHED\tIDLE")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					shortID(s.SessionID),
					s.IPAddress,
					s.HWIDValue(),
					s.LaunchedAt.Format(time.RFC3339),
					s.IdleFor(now).Round(time.Second))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d active session(s)\n", len(sessions))
			return nil
		},
	}
	return cmd
}

func shortID(id string) string {
	if len(id) > 16 {
		return id[:16] + "..."
	}
	return id
}

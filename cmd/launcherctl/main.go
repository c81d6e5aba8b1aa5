// Package main implements launcherctl, the operations CLI for the
// LaunchGate admission service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "launcherctl",
		Short:         "Operations CLI for the LaunchGate admission service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newGenKeyCommand(),
		newSessionsCommand(),
		newReapCommand(),
		newInitSettingsCommand(),
		newCreateAdminCommand(),
	)
	return cmd
}

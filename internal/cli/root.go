// Package cli holds the pomotick commands.
package cli

import (
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	dbPath     string
	debug      bool

	// newSyncClient builds the time-sync client; tests swap it for a fake.
	newSyncClient syncClientFactory
}

// NewRootCmd builds the command tree. Without a subcommand it runs the TUI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{newSyncClient: ntpSyncClient})
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "pomotick",
		Short:         "Pomodoro timer with daily statistics",
		Long:          `pomotick runs work and break sessions, keeps 90 days of statistics and syncs its clock over NTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.runTUI(cmd)
		},
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "config file (default is $HOME/.config/pomotick/config.yaml)")
	root.PersistentFlags().StringVar(&o.dbPath, "db", "", "database file (overrides db_path)")
	root.PersistentFlags().BoolVar(&o.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		runCmd(o),
		headlessCmd(o),
		statsCmd(o),
		exportCmd(o),
		syncCmd(o),
		cleanupCmd(o),
		configCmd(o),
	)
	return root
}

// Execute runs the root command. It is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

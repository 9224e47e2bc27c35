package app

import (
	"github.com/spf13/cobra"
)

var (
	cfgPath string

	rootCmd = &cobra.Command{
		Use:   "ankiph",
		Short: "Keep locally installed AnkiPH decks in sync with the catalog",
		Long: `ankiph tracks which decks you have installed, checks the catalog for
newer published versions and downloads pending updates in batches.

Examples:
  # Check the catalog for newer deck versions
  ankiph check

  # Download everything with a pending update
  ankiph sync

  # Download two specific decks
  ankiph sync 4f2c... 9a1b...

  # Show installed decks and pending updates
  ankiph status

  # Run the background sync daemon
  ankiph serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yml", "path to config file")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(changelogCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "statehouse",
	Short: "Legislative meeting calendar tracker",
	Long: `Statehouse ingests periodic scrapes of state legislative meeting
calendars and reconciles them into a durable event store.

Sources have no delete signal: a cancelled or rescheduled meeting simply
stops appearing. Each scrape cycle marks a source's events unseen, refreshes
whatever the source still lists, and archives events that have been missing
for multiple consecutive cycles.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

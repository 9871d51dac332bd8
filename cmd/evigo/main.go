// Evigo is an unofficial command-line client for Eviqo EV chargers.
//
// It speaks the binary-framed WebSocket protocol of the Eviqo dashboard
// cloud: it authenticates an account, enumerates chargers, opens the
// first charger's live status page, and streams telemetry updates until
// interrupted.
//
// Usage:
//
//	evigo [command] [flags]
//
// Running without arguments starts the watch loop.
// See 'evigo --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/evigo/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "evigo",
	Short: "Eviqo Charger Status Client",
	Long: `An unofficial client for Eviqo EV chargers.

Connects to the Eviqo dashboard cloud over its binary WebSocket
protocol, authenticates your account, and streams live charging
telemetry for your first charger.

If no command is specified, the watch loop starts automatically.`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the watch loop when no subcommand provided
		return runWatch(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("evigo %s (commit: %s)\n", version.Version, version.Commit)
	},
}

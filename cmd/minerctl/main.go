// Minerctl finds, inspects and provisions Monitor Miner controllers.
//
// It talks to controllers over their HTTP API. Controllers that have joined
// a network are found over mDNS; an unconfigured controller is reached on
// its own MonitorMiner_Setup network at 192.168.4.1.
//
// Usage:
//
//	minerctl [command] [flags]
//
// Running without arguments launches the interactive wizard.
// See 'minerctl --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/monitorminer/internal/client"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var devErr *client.DeviceError
		if errors.As(err, &devErr) {
			fmt.Fprintf(os.Stderr, "\n%s\n", client.GetTroubleshootingHint(err))
		}
		logging.Sync()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "minerctl",
	Short: "Monitor Miner controller utility",
	Long: `A utility for finding, monitoring and provisioning Monitor Miner controllers.

Provides controller discovery, status and sensor readouts, relay control
and Wi-Fi provisioning.

If no command is specified, the interactive wizard will launch automatically.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard(cmd, args)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "minerctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}

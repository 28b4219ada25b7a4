// Monitorminer is the Monitor Miner controller daemon.
//
// On every boot it decides whether to join the configured Wi-Fi network or
// to serve its own setup network, then runs the single-threaded HTTP engine
// that exposes sensors, relays, configuration and the web UI. The fault
// timer is fed from the engine loop for the life of the process.
//
// Usage:
//
//	monitorminer run [flags]
//
// See 'monitorminer --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/monitorminer/internal/config"
	"github.com/muurk/monitorminer/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "monitorminer",
	Short: "Monitor Miner controller daemon",
	Long: `The Monitor Miner controller daemon.

Joins the configured Wi-Fi network, or brings up the MonitorMiner_Setup
access point when no usable credentials are stored, and serves the
controller's HTTP API and web UI.

Use the separate 'minerctl' utility to find and provision controllers.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to monitorminer.yaml (default: platform config dir)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("monitorminer %s\n", version.Full())
	},
}

// resolveConfigPath returns --config or the platform default.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

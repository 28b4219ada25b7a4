package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/monitorminer/internal/client"
	"github.com/muurk/monitorminer/internal/discovery"
	"github.com/muurk/monitorminer/internal/ui"
	"github.com/muurk/monitorminer/internal/wizard/tui"
)

// Command flags
var (
	deviceIP     string
	devicePort   int
	scanTimeout  int
	outputFormat string
	logLimit     int
	assumeYes    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceIP, "device", "", "Controller IP address (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", client.DefaultPort, "Controller HTTP port")
	rootCmd.PersistentFlags().IntVar(&scanTimeout, "timeout", 5, "Discovery timeout in seconds")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format (text, json)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sensorsCmd)
	rootCmd.AddCommand(relaysCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(provisionCmd)

	logsCmd.Flags().IntVar(&logLimit, "limit", 50, "Number of entries to fetch")
	restartCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

// scanCmd discovers controllers on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for controllers on the network",
	Long: `Scan for Monitor Miner controllers using mDNS/DNS-SD discovery.

Only controllers that have joined a network advertise themselves. A
controller in provisioning mode is reached on the MonitorMiner_Setup
network at 192.168.4.1 instead.`,
	Example: `  # Scan for 5 seconds (default)
  minerctl scan

  # Longer scan for busy networks
  minerctl scan --timeout 15`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Controller Discovery", "minerctl scan",
		ui.Param{Key: "Timeout", Value: fmt.Sprintf("%ds", scanTimeout)},
	)

	devices, err := discover(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		p.Println("No controllers found.")
		p.Newline()
		p.Println("Troubleshooting:")
		p.Println("  - Ensure the controller is powered on and has joined this network")
		p.Println("  - An unconfigured controller serves the MonitorMiner_Setup network;")
		p.Println("    join it and run 'minerctl status --device " + client.SetupAddress + "'")
		p.Println("  - Try increasing --timeout for slower networks")
		return nil
	}

	rows := make([][]string, 0, len(devices))
	for i, d := range devices {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			d.ID,
			d.IP + ":" + strconv.Itoa(d.Port),
			d.Version,
		})
	}
	p.PrintTable([]string{"#", "ID", "ADDRESS", "FIRMWARE"}, rows)
	p.Newline()
	p.Println("Use 'minerctl status --device <ip>' to inspect a controller")
	return nil
}

// statusCmd shows the controller's system status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show controller status",
	Long: `Display the controller's system status: firmware, uptime, network
identity, memory and cache statistics. When the controller has joined a
network the relay states are shown as well.`,
	Example: `  # Status with auto-discovery
  minerctl status

  # Controller on its setup network
  minerctl status --device 192.168.4.1

  # JSON output for scripting
  minerctl status --device 192.168.1.50 --format json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := getClient(ctx)
	if err != nil {
		return err
	}

	status, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if outputFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), status)
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.Println(status.Summary())
	p.Newline()
	p.Println(status.FormatStatus())

	if status.Network.Mode == "provisioning" {
		p.Println("Controller is in provisioning mode. Run 'minerctl wifi set' to configure Wi-Fi.")
		return nil
	}

	relays, err := c.Relays(ctx)
	if err != nil {
		return fmt.Errorf("failed to get relays: %w", err)
	}
	p.Println("=== Relays ===")
	p.Println(strings.TrimRight(client.FormatRelays(relays), "\n"))
	return nil
}

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Read every sensor",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := getClient(ctx)
		if err != nil {
			return err
		}
		snap, err := c.Sensors(ctx)
		if err != nil {
			return fmt.Errorf("failed to read sensors: %w", err)
		}
		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), snap)
		}
		fmt.Fprint(cmd.OutOrStdout(), client.FormatSnapshot(snap))
		return nil
	},
}

var relaysCmd = &cobra.Command{
	Use:   "relays",
	Short: "List relay states",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := getClient(ctx)
		if err != nil {
			return err
		}
		relays, err := c.Relays(ctx)
		if err != nil {
			return fmt.Errorf("failed to get relays: %w", err)
		}
		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), relays)
		}
		fmt.Fprint(cmd.OutOrStdout(), client.FormatRelays(relays))
		return nil
	},
}

// relayCmd reads or switches a single relay
var relayCmd = &cobra.Command{
	Use:   "relay <id> [on|off|toggle]",
	Short: "Show or switch one relay",
	Long: `Show one relay, or switch it when an action is given.

Relay ids start at 0.`,
	Example: `  # Show relay 0
  minerctl relay 0

  # Switch relay 2 on
  minerctl relay 2 on

  # Flip relay 1
  minerctl relay 1 toggle`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	id, action, err := parseRelayArgs(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if action == "" {
		relay, err := c.Relay(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get relay %d: %w", id, err)
		}
		if outputFormat == "json" {
			return writeJSON(out, relay)
		}
		fmt.Fprint(out, client.FormatRelays([]client.RelayStatus{*relay}))
		return nil
	}

	result, err := c.SetRelay(ctx, id, action)
	if err != nil {
		return fmt.Errorf("failed to switch relay %d: %w", id, err)
	}
	if outputFormat == "json" {
		return writeJSON(out, result)
	}
	p := ui.NewPrinter(out)
	p.PrintSuccess(fmt.Sprintf("Relay %d %s", result.RelayID, ui.OnOff(result.State)),
		ui.Param{Key: "Action", Value: result.Action},
	)
	return nil
}

// parseRelayArgs validates "<id> [action]".
func parseRelayArgs(args []string) (int, string, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil || id < 0 {
		return 0, "", fmt.Errorf("invalid relay id %q", args[0])
	}
	if len(args) < 2 {
		return id, "", nil
	}
	action := strings.ToLower(args[1])
	switch action {
	case "on", "off", "toggle":
		return id, action, nil
	default:
		return 0, "", fmt.Errorf("invalid action %q (expected on, off or toggle)", args[1])
	}
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent controller log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := getClient(ctx)
		if err != nil {
			return err
		}
		entries, err := c.Logs(ctx, logLimit)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}
		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "%s  %-5s  %s\n", e.Time.Local().Format(time.DateTime), strings.ToUpper(e.Level), e.Message)
		}
		return nil
	},
}

// restartCmd reboots the controller
var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the controller",
	Long: `Ask the controller to restart. It re-reads its configuration and joins
the stored network, or falls back to the setup network.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := getClient(ctx)
		if err != nil {
			return err
		}

		if !assumeYes && !ui.Confirm(cmd.OutOrStdout(), cmd.InOrStdin(), "Restart controller?", []string{
			"The controller will be unreachable for a few seconds.",
			"Relays return to their power-on state.",
		}) {
			return nil
		}

		msg, err := c.Restart(ctx)
		if err != nil {
			return fmt.Errorf("failed to restart: %w", err)
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Restart requested", ui.Param{Key: "Controller", Value: msg})
		return nil
	},
}

// provisionCmd launches the interactive TUI wizard
var provisionCmd = &cobra.Command{
	Use:     "wizard",
	Aliases: []string{"provision"},
	Short:   "Launch the interactive wizard",
	Long: `Launch an interactive TUI for finding and managing controllers.

The wizard provides:
- Discovery of joined controllers and the setup network
- A live dashboard of sensors and relays
- Wi-Fi scanning and provisioning`,
	Example: `  # Launch with auto-discovery
  minerctl wizard
  # Or simply (wizard is default):
  minerctl

  # Open the dashboard for a specific controller
  minerctl --device 192.168.1.50`,
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	opts := tui.Options{
		Discover: discover,
		Connect: func(host string, port int) tui.Controller {
			return client.NewClient(host, port)
		},
	}
	if deviceIP != "" {
		opts.Target = &tui.Target{Label: deviceIP, Host: deviceIP, Port: devicePort}
	}
	return tui.Run(opts)
}

// discover scans for --timeout seconds.
func discover(ctx context.Context) ([]*discovery.Device, error) {
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second
	return scanner.ScanForDevices(ctx)
}

// getClient returns a client for --device, or for the only controller
// discovery finds. With nothing discovered, the setup address is tried.
func getClient(ctx context.Context) (*client.Client, error) {
	if deviceIP != "" {
		return client.NewClient(deviceIP, devicePort), nil
	}

	devices, err := discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	d, err := pickDevice(devices)
	if err != nil {
		return nil, err
	}
	if d != nil {
		return client.NewClient(d.IP, d.Port), nil
	}

	setup := client.NewClient(client.SetupAddress, client.DefaultPort)
	setup.SetRetry(0, 0)
	setup.SetTimeout(3 * time.Second)
	if _, err := setup.Ping(ctx); err != nil {
		return nil, fmt.Errorf("no controllers found on the network and none at %s; use --device to specify one", client.SetupAddress)
	}
	return setup, nil
}

// pickDevice returns the only device, nil for none, or an error listing the
// candidates when the choice is ambiguous.
func pickDevice(devices []*discovery.Device) (*discovery.Device, error) {
	switch len(devices) {
	case 0:
		return nil, nil
	case 1:
		return devices[0], nil
	}
	var b strings.Builder
	b.WriteString("multiple controllers found, choose one with --device:")
	for _, d := range devices {
		b.WriteString("\n  " + d.String())
	}
	return nil, fmt.Errorf("%s", b.String())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/monitorminer/internal/client"
	"github.com/muurk/monitorminer/internal/discovery"
	"github.com/muurk/monitorminer/internal/ui"
)

var (
	wifiPassword string
	wifiOpen     bool
	noWait       bool
	rejoinWait   int
)

func init() {
	rootCmd.AddCommand(wifiCmd)
	wifiCmd.AddCommand(wifiScanCmd)
	wifiCmd.AddCommand(wifiShowCmd)
	wifiCmd.AddCommand(wifiSetCmd)

	wifiSetCmd.Flags().StringVar(&wifiPassword, "password", "", "Network password (prompted when omitted)")
	wifiSetCmd.Flags().BoolVar(&wifiOpen, "open", false, "The network has no password")
	wifiSetCmd.Flags().BoolVar(&noWait, "no-wait", false, "Do not wait for the controller to rejoin")
	wifiSetCmd.Flags().IntVar(&rejoinWait, "rejoin-timeout", 60, "Seconds to wait for the controller to appear on the new network")
}

var wifiCmd = &cobra.Command{
	Use:   "wifi",
	Short: "Inspect and provision the controller's Wi-Fi",
}

var wifiScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List networks visible to the controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := getClient(ctx)
		if err != nil {
			return err
		}
		networks, err := c.Scan(ctx)
		if err != nil {
			return fmt.Errorf("wifi scan failed: %w", err)
		}
		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), networks)
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		if len(networks) == 0 {
			p.Println("No networks found.")
			return nil
		}
		p.PrintTable([]string{"SSID", "SIGNAL", "CH", "SECURITY"}, networkRows(networks))
		return nil
	},
}

func networkRows(networks []client.Network) [][]string {
	rows := make([][]string, 0, len(networks))
	for _, n := range networks {
		bars := client.SignalBars(n.RSSI)
		rows = append(rows, []string{
			n.SSID,
			strings.Repeat("▮", bars) + strings.Repeat("▯", 4-bars) + fmt.Sprintf(" %d dBm", n.RSSI),
			strconv.Itoa(n.Channel),
			n.Security,
		})
	}
	return rows
}

var wifiShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored Wi-Fi configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := getClient(ctx)
		if err != nil {
			return err
		}
		cfg, err := c.WiFiConfig(ctx)
		if err != nil {
			return fmt.Errorf("failed to get wifi config: %w", err)
		}
		if outputFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), cfg)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "SSID:       %s\n", cfg.SSID)
		fmt.Fprintf(out, "Configured: %t\n", cfg.Configured)
		fmt.Fprintf(out, "DHCP:       %t\n", cfg.UseDHCP)
		return nil
	},
}

// wifiSetCmd provisions station credentials
var wifiSetCmd = &cobra.Command{
	Use:   "set <ssid>",
	Short: "Provision Wi-Fi credentials",
	Long: `Send Wi-Fi credentials to the controller. The controller stores them,
restarts, and joins the network. If the join fails it falls back to the
MonitorMiner_Setup network.

Unless --no-wait is given, minerctl then waits for the controller to
advertise itself on the new network. Your computer must be on that network
too for this to succeed.`,
	Example: `  # From the setup network, prompting for the password
  minerctl wifi set Workshop --device 192.168.4.1

  # Open network
  minerctl wifi set Guest --open --device 192.168.4.1`,
	Args: cobra.ExactArgs(1),
	RunE: runWiFiSet,
}

func runWiFiSet(cmd *cobra.Command, args []string) error {
	ssid := args[0]
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	password := wifiPassword
	if !wifiOpen && password == "" {
		var err error
		password, err = readPassword(out, cmd.InOrStdin(), fmt.Sprintf("Password for %s: ", ssid))
		if err != nil {
			return err
		}
	}

	c, err := getClient(ctx)
	if err != nil {
		return err
	}

	p := ui.NewPrinter(out)
	p.PrintHeader("Wi-Fi Provisioning", "minerctl wifi set",
		ui.Param{Key: "Controller", Value: strings.TrimPrefix(c.BaseURL, "http://")},
		ui.Param{Key: "Network", Value: ssid},
	)

	steps := ui.NewSteps(out,
		"Read controller identity",
		"Send credentials",
		"Wait for controller on "+ssid,
	)
	var deviceID string
	var found *discovery.Device
	elapsed, err := steps.Run(func(onStep ui.StepCallback) error {
		onStep(1, ui.StepRunning, "")
		status, err := c.Status(ctx)
		if err != nil {
			onStep(1, ui.StepFailed, err.Error())
			return err
		}
		deviceID = status.DeviceID
		onStep(1, ui.StepComplete, status.DeviceID)

		onStep(2, ui.StepRunning, "")
		msg, err := c.ProvisionWiFi(ctx, ssid, password)
		if err != nil {
			onStep(2, ui.StepFailed, err.Error())
			return err
		}
		onStep(2, ui.StepComplete, msg)

		if noWait {
			onStep(3, ui.StepSkipped, "--no-wait")
			return nil
		}
		onStep(3, ui.StepRunning, "")
		found, err = waitForRejoin(ctx, deviceID, time.Duration(rejoinWait)*time.Second)
		if err != nil {
			onStep(3, ui.StepFailed, err.Error())
			return err
		}
		onStep(3, ui.StepComplete, found.IP)
		return nil
	})
	p.Println(steps.Bar())
	p.Newline()

	if err != nil {
		p.PrintError("Provisioning failed", err, "")
		return err
	}

	details := []ui.Param{
		{Key: "Network", Value: ssid},
		{Key: "Duration", Value: elapsed.Round(time.Millisecond).String()},
	}
	if found != nil {
		details = append(details, ui.Param{Key: "Address", Value: found.IP + ":" + strconv.Itoa(found.Port)})
	}
	p.PrintSuccess("Credentials stored", details...)
	return nil
}

// waitForRejoin watches mDNS for the controller after it restarts.
func waitForRejoin(ctx context.Context, deviceID string, timeout time.Duration) (*discovery.Device, error) {
	scanner := discovery.NewScanner()
	scanner.Timeout = timeout
	short := strings.TrimPrefix(discovery.InstanceName(deviceID), discovery.InstancePrefix)
	return scanner.WaitForDevice(ctx, short)
}

// readPassword prompts without echo on a terminal, or reads one line from
// in otherwise.
func readPassword(out io.Writer, in io.Reader, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

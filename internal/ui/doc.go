// Package ui renders minerctl's terminal output with Lipgloss.
//
// Commands print a Header describing what they are about to do, report
// multi-step operations through Steps, and finish with a Result box. On
// failure, the troubleshooting lines come from client.GetTroubleshootingHint.
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Wi-Fi provisioning", "minerctl wifi set",
//	    ui.Param{Key: "Controller", Value: "192.168.4.1:8080"})
//	steps := ui.NewSteps(os.Stdout, "Checking controller", "Saving credentials")
//	_, err := steps.Run(func(onStep ui.StepCallback) error { ... })
//
// Logging stays silent unless MONITORMINER_LOG_LEVEL is set, so zap output
// does not interleave with the rendered components.
package ui

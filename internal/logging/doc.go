// Package logging provides structured logging for the Monitor Miner controller.
//
// This package wraps a zap logger with convenience functions for the patterns
// used throughout the daemon, plus an in-memory ring of recent entries that
// the HTTP API serves at /api/system/logs and that the maintenance loop
// flushes to the "logs" document.
//
// # Log Levels
//
//   - Debug: raw request bytes, per-connection events, chunk progress
//   - Info: requests, responses, bootstrap transitions
//   - Warn: aborted sends, slow peers, degraded hardware
//   - Error: storage failures, handler panics, watchdog problems
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// An empty level reads MONITORMINER_LOG_LEVEL. When neither is set the
// console is silent but the ring still records info and above.
//
// # Thread Safety
//
// All logging functions and Ring methods are safe for concurrent use.
package logging

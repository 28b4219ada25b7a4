// Package server implements the controller's request loop.
//
// The loop is deliberately single-threaded: one listening socket, polled
// with a short accept deadline, and at most one connection in flight. Each
// iteration feeds the fault timer, so a stalled loop is caught by the
// watchdog rather than by anything in software.
//
// # Per-connection pipeline
//
//  1. Read in bounded chunks until the header block and Content-Length
//     bytes have arrived (413 beyond Config.MaxRequestBytes)
//  2. Parse into a protocol.Request (400 on a *protocol.ParseError)
//  3. Answer OPTIONS preflights, otherwise route (404, or 405 with Allow)
//  4. Run the handler; errors and panics become JSON 500s
//  5. Send in chunks with protocol.Sender and close
//
// Connections are never kept alive.
//
// # Maintenance
//
// When a poll finds no client the registered tasks run (see AddTask):
// memory reclamation, cache trimming, log flushing, sensor snapshots,
// telemetry. A restart scheduled by a handler is honoured at the top of the
// next iteration, after its response has gone out, by returning a
// *RestartError from Serve.
//
// # Usage Example
//
//	srv := server.New(server.Config{Addr: ":8080", CORS: true}, r, timer, m)
//	srv.AddTask("gc", 30*time.Second, server.ReclaimMemory(32<<20))
//	if err := srv.Run(ctx); server.IsRestart(err) {
//	    // boot again
//	}
package server

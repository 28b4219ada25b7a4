// Package protocol parses HTTP/1.x requests from raw bytes and renders
// responses back onto the wire.
//
// The engine owns its sockets directly instead of using net/http, so this
// package is the whole wire layer:
//
//   - ParseRequest turns one buffered request into a Request, or a
//     *ParseError whose Kind says what was wrong with it.
//   - Complete tells the reader when enough bytes have arrived.
//   - Response and its constructors (Build, JSON, Error) render status line,
//     Content-Length, Connection: close and optional CORS headers.
//   - Sender writes rendered bytes in small chunks with a pause between them,
//     checking how much the peer accepted and giving up when it stalls.
//
// Only one request is served per connection; there is no keep-alive,
// pipelining or chunked transfer encoding.
package protocol

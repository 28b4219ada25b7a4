package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/protocol"
)

// errNoRequest means the peer closed or timed out before sending anything.
var errNoRequest = errors.New("connection closed before request")

// preflightMaxAge is how long browsers may cache a CORS preflight answer.
const preflightMaxAge = "86400"

// serveConn handles one connection: read, parse, dispatch, send, close.
// Nothing that happens here propagates to the loop.
func (s *Server) serveConn(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	logging.LogConnection(remoteAddr, "connection_accepted")

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Recovered panic at connection boundary",
				zap.String("remote_addr", remoteAddr),
				zap.Any("panic", r),
			)
		}
		_ = conn.Close()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	raw, err := s.readRequest(conn)
	if errors.Is(err, errNoRequest) {
		return
	}

	var resp *protocol.Response
	if err != nil {
		resp = s.errorResponse(remoteAddr, err)
	} else {
		resp = s.dispatch(remoteAddr, raw)
	}
	s.send(conn, remoteAddr, resp)
}

// readRequest reads until a whole request has arrived, the peer stops
// sending, or the request exceeds MaxRequestBytes. ReadTimeout bounds the
// whole request, but each read waits at most one PollInterval so the fault
// timer is fed while a peer is silent.
func (s *Server) readRequest(conn net.Conn) ([]byte, error) {
	deadline := s.now().Add(s.config.ReadTimeout)

	buf := make([]byte, 0, s.config.ReadChunk)
	chunk := make([]byte, s.config.ReadChunk)
	for {
		slice := s.now().Add(s.config.PollInterval)
		if slice.After(deadline) {
			slice = deadline
		}
		if err := conn.SetReadDeadline(slice); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, err := conn.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if len(buf) > s.config.MaxRequestBytes {
			return nil, &protocol.ParseError{
				Kind:   protocol.ErrRequestTooLarge,
				Detail: fmt.Sprintf("more than %d bytes", s.config.MaxRequestBytes),
			}
		}
		if protocol.Complete(buf) {
			return buf, nil
		}
		s.feed()
		if err == nil {
			continue
		}
		if errors.Is(err, os.ErrDeadlineExceeded) && s.now().Before(deadline) {
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
			if len(buf) == 0 {
				return nil, errNoRequest
			}
			// Let the parser say what is missing.
			return buf, nil
		}
		return nil, fmt.Errorf("read failed: %w", err)
	}
}

// dispatch parses and routes one request. Handler panics become 500s.
func (s *Server) dispatch(remoteAddr string, raw []byte) (resp *protocol.Response) {
	req, err := protocol.ParseRequest(raw)
	if err != nil {
		return s.errorResponse(remoteAddr, err)
	}
	req.RemoteAddr = remoteAddr
	logging.LogHTTPRequest(remoteAddr, req.Method, req.Path, req.Headers)

	if req.Method == "OPTIONS" {
		return preflight()
	}

	handler, params, ok := s.router.Match(req.Method, req.Path)
	if !ok {
		if allowed := s.router.Allowed(req.Path); len(allowed) > 0 {
			return protocol.Error(405, "Method not allowed").
				SetHeader("Allow", strings.Join(append(allowed, "OPTIONS"), ", "))
		}
		return protocol.Error(404, "Not found")
	}
	req.Params = params

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Handler panic",
				zap.String("remote_addr", remoteAddr),
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			if s.metrics != nil {
				s.metrics.HandlerPanics.Inc()
			}
			resp = protocol.Error(500, "Internal server error")
		}
	}()

	resp, err = handler(req)
	if err != nil {
		return s.errorResponse(remoteAddr, err)
	}
	if resp == nil {
		return protocol.Build(204, "", nil)
	}
	return resp
}

func preflight() *protocol.Response {
	return protocol.Build(204, "", nil).SetHeader("Access-Control-Max-Age", preflightMaxAge)
}

// statusError is implemented by errors that carry their own status.
type statusError interface {
	error
	Status() int
}

// messageError is implemented by errors with a client-facing message.
type messageError interface {
	Message() string
}

// errorResponse turns a pipeline error into a JSON error body.
func (s *Server) errorResponse(remoteAddr string, err error) *protocol.Response {
	var pe *protocol.ParseError
	if errors.As(err, &pe) {
		logging.Warn("Rejected request",
			zap.String("remote_addr", remoteAddr),
			zap.String("kind", pe.Kind.String()),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.ParseErrorsTotal.Inc()
		}
		return protocol.Error(pe.Status(), "Bad request: "+pe.Kind.String())
	}

	status, message := 500, "Internal server error"
	var se statusError
	if errors.As(err, &se) {
		status = se.Status()
	}
	var me messageError
	if errors.As(err, &me) {
		message = me.Message()
	}
	logging.Error("Request failed",
		zap.String("remote_addr", remoteAddr),
		zap.Int("status", status),
		zap.Error(err),
	)
	return protocol.Error(status, message)
}

func (s *Server) send(conn net.Conn, remoteAddr string, resp *protocol.Response) {
	wire := resp.Render(s.config.CORS)
	logging.LogRawBytes("response", wire)

	sent, err := s.sender.Send(conn, wire)
	s.served.Add(1)
	if s.metrics != nil {
		s.metrics.ObserveResponse(resp.Status, sent)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.SendAbortsTotal.Inc()
		}
		logging.Warn("Response aborted",
			zap.String("remote_addr", remoteAddr),
			zap.Int("status", resp.Status),
			zap.Error(err),
		)
		return
	}
	logging.LogHTTPResponse(remoteAddr, resp.Status, sent)
}

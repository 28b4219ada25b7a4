package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/metrics"
	"github.com/muurk/monitorminer/internal/protocol"
	"github.com/muurk/monitorminer/internal/router"
	"github.com/muurk/monitorminer/internal/watchdog"
)

// Defaults for Config.
const (
	DefaultPollInterval    = 50 * time.Millisecond
	DefaultReadTimeout     = 5 * time.Second
	DefaultReadChunk       = 1024
	DefaultMaxRequestBytes = 4096
)

// Config holds the server configuration
type Config struct {
	Addr            string
	PollInterval    time.Duration // Listener readiness poll; bounds time between fault timer feeds
	ReadTimeout     time.Duration // Whole-request read deadline per connection
	ReadChunk       int           // Bytes per read call
	MaxRequestBytes int           // Larger requests are answered with 413
	CORS            bool
	ChunkSize       int
	ChunkDelay      time.Duration
}

func (c *Config) withDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.ReadChunk <= 0 {
		c.ReadChunk = DefaultReadChunk
	}
	if c.MaxRequestBytes <= 0 {
		c.MaxRequestBytes = DefaultMaxRequestBytes
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = protocol.DefaultChunkSize
	}
	if c.ChunkDelay < 0 {
		c.ChunkDelay = 0
	}
}

// RestartError is returned by Serve when a handler scheduled a restart and
// its delay has passed. The caller tears down and boots again.
type RestartError struct {
	Reason string
}

func (e *RestartError) Error() string {
	return "restart requested: " + e.Reason
}

// IsRestart reports whether err asks for a restart.
func IsRestart(err error) bool {
	var re *RestartError
	return errors.As(err, &re)
}

// deadlineListener is a listener whose Accept can be bounded in time.
type deadlineListener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// Server is the single-threaded request loop. Exactly one connection is
// handled at a time; maintenance runs whenever a poll finds no client.
type Server struct {
	config   Config
	router   *router.Router
	timer    watchdog.FaultTimer
	metrics  *metrics.Metrics
	sender   *protocol.Sender
	listener deadlineListener
	tasks    []*Task
	now      func() time.Time

	served atomic.Uint64

	restartAt     time.Time
	restartReason string
}

// New creates a server dispatching through r. timer and m may be nil.
func New(config Config, r *router.Router, timer watchdog.FaultTimer, m *metrics.Metrics) *Server {
	config.withDefaults()
	s := &Server{
		config:  config,
		router:  r,
		timer:   timer,
		metrics: m,
		now:     time.Now,
	}
	s.sender = &protocol.Sender{
		ChunkSize:    config.ChunkSize,
		ChunkDelay:   config.ChunkDelay,
		WriteTimeout: protocol.DefaultWriteTimeout,
		OnChunk:      s.feed,
	}
	return s
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	dl, ok := ln.(deadlineListener)
	if !ok {
		_ = ln.Close()
		return fmt.Errorf("listener %T does not support deadlines", ln)
	}
	s.listener = dl
	logging.Info("Server listening for connections", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Served returns how many connections received a response.
func (s *Server) Served() uint64 {
	return s.served.Load()
}

// ScheduleRestart asks Serve to return a *RestartError once delay has
// passed. The earliest pending restart wins.
func (s *Server) ScheduleRestart(delay time.Duration, reason string) {
	at := s.now().Add(delay)
	if s.restartAt.IsZero() || at.Before(s.restartAt) {
		s.restartAt = at
		s.restartReason = reason
	}
	logging.Info("Restart scheduled", zap.Duration("delay", delay), zap.String("reason", reason))
}

// Run listens and serves until ctx is cancelled or a restart is due.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the loop on the socket bound by Listen. It returns nil when ctx
// is cancelled, a *RestartError when a scheduled restart is due, and an
// error only if the listener itself fails.
//
// Each iteration feeds the fault timer, then waits at most PollInterval for
// a connection. Per-connection failures never leave serveConn.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}
	defer func() {
		_ = s.listener.Close()
		logging.Sync()
	}()

	for {
		if ctx.Err() != nil {
			logging.Info("Shutting down server...")
			return nil
		}
		s.feed()

		now := s.now()
		if !s.restartAt.IsZero() && !now.Before(s.restartAt) {
			logging.Warn("Restarting", zap.String("reason", s.restartReason))
			return &RestartError{Reason: s.restartReason}
		}

		if err := s.listener.SetDeadline(now.Add(s.config.PollInterval)); err != nil {
			return fmt.Errorf("failed to set accept deadline: %w", err)
		}
		conn, err := s.listener.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.maintain(ctx, now)
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}
		s.serveConn(conn)
	}
}

// Close stops the listener; a running Serve returns nil.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) feed() {
	if s.timer == nil {
		return
	}
	if err := s.timer.Feed(); err != nil {
		logging.Error("Failed to feed fault timer", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.WatchdogFeeds.Inc()
	}
}

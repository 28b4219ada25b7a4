// Package serialboard drives the radio/IO co-processor over a UART using a
// JSON-lines protocol. Each request is one line:
//
//	{"id":7,"cmd":"relay.set","args":{"id":1,"on":true}}
//
// and is answered by exactly one line carrying the same id:
//
//	{"id":7,"ok":true,"result":{"on":true}}
package serialboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/logging"
)

// DefaultTimeout bounds each command round trip.
const DefaultTimeout = 2 * time.Second

// Port is the subset of serial.Port the link needs.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

type request struct {
	ID   uint32 `json:"id"`
	Cmd  string `json:"cmd"`
	Args any    `json:"args,omitempty"`
}

type response struct {
	ID     uint32          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// CommandError is a failure reported by the co-processor.
type CommandError struct {
	Cmd     string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("co-processor rejected %s: %s", e.Cmd, e.Message)
}

// Link serialises commands over one port.
type Link struct {
	mu      sync.Mutex
	port    Port
	nextID  uint32
	Timeout time.Duration
}

// Open opens the named serial device.
func Open(name string, baud int) (*Link, error) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return NewLink(p), nil
}

// NewLink wraps an already open port.
func NewLink(p Port) *Link {
	return &Link{port: p, Timeout: DefaultTimeout}
}

// Close closes the port.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port.Close()
}

// Call sends cmd and decodes the result into out (which may be nil).
func (l *Link) Call(cmd string, args any, out any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	req := request{ID: l.nextID, Cmd: cmd, Args: args}
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", cmd, err)
	}
	line = append(line, '\n')

	logging.LogRawBytes("serial tx", line)
	if _, err := l.port.Write(line); err != nil {
		return fmt.Errorf("serial write %s: %w", cmd, err)
	}

	deadline := time.Now().Add(l.Timeout)
	for {
		raw, err := l.readLine(deadline)
		if err != nil {
			return fmt.Errorf("serial read %s: %w", cmd, err)
		}
		logging.LogRawBytes("serial rx", raw)

		var resp response
		if err := json.Unmarshal(raw, &resp); err != nil {
			// Boot chatter and debug prints share the line.
			logging.Debug("Ignoring non-protocol serial line", zap.ByteString("line", raw))
			continue
		}
		if resp.ID != req.ID {
			logging.Debug("Ignoring stale serial response", zap.Uint32("id", resp.ID), zap.Uint32("want", req.ID))
			continue
		}
		if !resp.OK {
			return &CommandError{Cmd: cmd, Message: resp.Error}
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", cmd, err)
			}
		}
		return nil
	}
}

// readLine reads byte by byte so nothing past the newline is consumed.
func (l *Link) readLine(deadline time.Time) ([]byte, error) {
	var line []byte
	buf := make([]byte, 1)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, errors.New("timeout waiting for response")
		}
		if err := l.port.SetReadTimeout(remaining); err != nil {
			return nil, err
		}
		n, err := l.port.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		if buf[0] == '\n' {
			if len(line) == 0 {
				continue
			}
			return line, nil
		}
		if buf[0] != '\r' {
			line = append(line, buf[0])
		}
	}
}

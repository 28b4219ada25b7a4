package protocol

import (
	"errors"
	"fmt"
	"time"
)

// Defaults for Sender.
const (
	DefaultChunkSize    = 512
	DefaultChunkDelay   = 10 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second
)

// ErrPeerStalled is returned when a write makes no progress.
var ErrPeerStalled = errors.New("peer stopped accepting data")

// Conn is the part of net.Conn the sender uses.
type Conn interface {
	Write(b []byte) (int, error)
	SetWriteDeadline(t time.Time) error
}

// SendError reports an aborted send and how far it got.
type SendError struct {
	Sent  int
	Total int
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send aborted after %d of %d bytes: %v", e.Sent, e.Total, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Sender writes responses in bounded chunks.
type Sender struct {
	ChunkSize    int
	ChunkDelay   time.Duration
	WriteTimeout time.Duration
	// OnChunk runs after every chunk written, e.g. to feed the fault timer.
	OnChunk func()

	sleep func(time.Duration)
}

// NewSender returns a sender with the default chunking.
func NewSender() *Sender {
	return &Sender{
		ChunkSize:    DefaultChunkSize,
		ChunkDelay:   DefaultChunkDelay,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Send writes data to conn and returns the number of bytes accepted.
func (s *Sender) Send(conn Conn, data []byte) (int, error) {
	chunk := s.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	sleep := s.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	sent := 0
	for sent < len(data) {
		end := min(sent+chunk, len(data))

		if s.WriteTimeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout)); err != nil {
				return sent, &SendError{Sent: sent, Total: len(data), Err: err}
			}
		}

		for sent < end {
			n, err := conn.Write(data[sent:end])
			sent += n
			if err != nil {
				return sent, &SendError{Sent: sent, Total: len(data), Err: err}
			}
			if n == 0 {
				return sent, &SendError{Sent: sent, Total: len(data), Err: ErrPeerStalled}
			}
		}

		if s.OnChunk != nil {
			s.OnChunk()
		}
		if sent < len(data) && s.ChunkDelay > 0 {
			sleep(s.ChunkDelay)
		}
	}
	return sent, nil
}

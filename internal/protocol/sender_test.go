package protocol

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

type fakeConn struct {
	buf       bytes.Buffer
	maxWrite  int // bytes accepted per Write; 0 = unlimited
	stallAt   int // total bytes after which writes accept nothing; 0 = never
	failAt    int // total bytes after which writes error; 0 = never
	writes    int
	deadlines int
}

func (c *fakeConn) Write(b []byte) (int, error) {
	c.writes++
	if c.failAt > 0 && c.buf.Len() >= c.failAt {
		return 0, errors.New("connection reset by peer")
	}
	if c.stallAt > 0 && c.buf.Len() >= c.stallAt {
		return 0, nil
	}
	n := len(b)
	if c.maxWrite > 0 && n > c.maxWrite {
		n = c.maxWrite
	}
	c.buf.Write(b[:n])
	return n, nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error {
	c.deadlines++
	return nil
}

func newTestSender() (*Sender, *[]time.Duration) {
	var sleeps []time.Duration
	s := NewSender()
	s.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return s, &sleeps
}

func TestSendChunksWithDelay(t *testing.T) {
	s, sleeps := newTestSender()
	chunks := 0
	s.OnChunk = func() { chunks++ }
	conn := &fakeConn{}
	data := bytes.Repeat([]byte("x"), 1300)

	n, err := s.Send(conn, data)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if n != 1300 || conn.buf.Len() != 1300 {
		t.Errorf("sent %d, conn got %d, want 1300", n, conn.buf.Len())
	}
	if chunks != 3 || conn.deadlines != 3 {
		t.Errorf("chunks = %d, deadlines = %d, want 3", chunks, conn.deadlines)
	}
	if len(*sleeps) != 2 {
		t.Errorf("sleeps = %v, want 2 (none after last chunk)", *sleeps)
	}
}

func TestSendRetriesPartialWrites(t *testing.T) {
	s, _ := newTestSender()
	conn := &fakeConn{maxWrite: 100}
	data := bytes.Repeat([]byte("y"), 600)

	n, err := s.Send(conn, data)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if n != 600 || !bytes.Equal(conn.buf.Bytes(), data) {
		t.Errorf("sent %d bytes, content match %v", n, bytes.Equal(conn.buf.Bytes(), data))
	}
	if conn.writes != 7 {
		t.Errorf("writes = %d, want 7", conn.writes)
	}
}

func TestSendAbortsWhenPeerStalls(t *testing.T) {
	s, _ := newTestSender()
	conn := &fakeConn{stallAt: 512}
	data := bytes.Repeat([]byte("z"), 2000)

	n, err := s.Send(conn, data)
	if !errors.Is(err, ErrPeerStalled) {
		t.Fatalf("Send() error = %v, want ErrPeerStalled", err)
	}
	if n != 512 {
		t.Errorf("sent = %d, want 512", n)
	}
	var se *SendError
	if !errors.As(err, &se) || se.Total != 2000 {
		t.Errorf("SendError = %+v", se)
	}
}

func TestSendAbortsOnWriteError(t *testing.T) {
	s, _ := newTestSender()
	conn := &fakeConn{failAt: 1024}

	n, err := s.Send(conn, bytes.Repeat([]byte("w"), 4096))
	if err == nil {
		t.Fatal("Send() error = nil, want failure")
	}
	if n != 1024 {
		t.Errorf("sent = %d, want 1024", n)
	}
}

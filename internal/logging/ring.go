package logging

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultRingSize is the number of entries kept in memory.
const DefaultRingSize = 100

// Entry is a single recorded log line.
type Entry struct {
	Time    time.Time      `json:"timestamp"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Ring is a fixed-size buffer of the most recent log entries.
type Ring struct {
	mu        sync.Mutex
	entries   []Entry
	next      int
	count     int
	unflushed int
}

// NewRing returns a ring holding at most capacity entries.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	return &Ring{entries: make([]Entry, capacity)}
}

// Add records an entry, overwriting the oldest when full.
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
	if r.unflushed < len(r.entries) {
		r.unflushed++
	}
}

// Recent returns up to limit entries, oldest first.
func (r *Ring) Recent(limit int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLocked(limit)
}

// Unflushed reports how many entries were added since the last TakeUnflushed.
func (r *Ring) Unflushed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unflushed
}

// TakeUnflushed returns the entries not yet handed out and marks them flushed.
func (r *Ring) TakeUnflushed() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unflushed == 0 {
		return nil
	}
	out := r.lastLocked(r.unflushed)
	r.unflushed = 0
	return out
}

func (r *Ring) lastLocked(limit int) []Entry {
	if limit <= 0 || limit > r.count {
		limit = r.count
	}
	out := make([]Entry, 0, limit)
	start := (r.next - limit + len(r.entries)) % len(r.entries)
	for i := 0; i < limit; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out
}

// ringCore is a zapcore.Core that records into a Ring.
type ringCore struct {
	zapcore.LevelEnabler
	ring   *Ring
	fields []zapcore.Field
}

func newRingCore(ring *Ring, level zapcore.LevelEnabler) zapcore.Core {
	return &ringCore{LevelEnabler: level, ring: ring}
}

func (c *ringCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &ringCore{LevelEnabler: c.LevelEnabler, ring: c.ring}
	clone.fields = append(append(clone.fields, c.fields...), fields...)
	return clone
}

func (c *ringCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *ringCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	var fieldMap map[string]any
	if len(c.fields)+len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range c.fields {
			f.AddTo(enc)
		}
		for _, f := range fields {
			f.AddTo(enc)
		}
		fieldMap = enc.Fields
	}
	c.ring.Add(Entry{
		Time:    ent.Time,
		Level:   ent.Level.CapitalString(),
		Message: ent.Message,
		Fields:  fieldMap,
	})
	return nil
}

func (c *ringCore) Sync() error { return nil }

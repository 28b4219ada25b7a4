package server

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/cache"
	"github.com/muurk/monitorminer/internal/logging"
	"github.com/muurk/monitorminer/internal/store"
)

// Log flush and rotation thresholds.
const (
	LogFlushThreshold = 50
	LogMaxBytes       = 10240
)

// Task is periodic work run between connections.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context, now time.Time) error

	last time.Time
}

// AddTask registers a maintenance task. Tasks run in registration order on
// idle polls once Every has elapsed since their previous run; the first run
// happens on the first idle poll.
func (s *Server) AddTask(name string, every time.Duration, run func(ctx context.Context, now time.Time) error) {
	s.tasks = append(s.tasks, &Task{Name: name, Every: every, Run: run})
}

// maintain runs the due tasks, feeding the fault timer between them.
func (s *Server) maintain(ctx context.Context, now time.Time) {
	for _, t := range s.tasks {
		if !t.last.IsZero() && now.Sub(t.last) < t.Every {
			continue
		}
		t.last = now
		if err := runTask(ctx, t, now); err != nil {
			logging.Warn("Maintenance task failed", zap.String("task", t.Name), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.MaintenanceRuns.WithLabelValues(t.Name).Inc()
		}
		s.feed()
	}
}

func runTask(ctx context.Context, t *Task, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Run(ctx, now)
}

// ReclaimMemory collects garbage when the heap exceeds softLimit bytes.
// A zero limit collects on every run.
func ReclaimMemory(softLimit uint64) func(context.Context, time.Time) error {
	return func(context.Context, time.Time) error {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if softLimit > 0 && ms.HeapAlloc <= softLimit {
			return nil
		}
		before := ms.HeapAlloc
		runtime.GC()
		runtime.ReadMemStats(&ms)
		logging.Debug("Memory reclaimed",
			zap.Uint64("heap_before", before),
			zap.Uint64("heap_after", ms.HeapAlloc),
		)
		return nil
	}
}

// TrimCache drops cache entries idle for longer than maxIdle.
func TrimCache(c *cache.Cache, maxIdle time.Duration) func(context.Context, time.Time) error {
	return func(context.Context, time.Time) error {
		if n := c.TrimIdle(maxIdle); n > 0 {
			logging.Debug("Trimmed idle cache entries", zap.Int("dropped", n))
		}
		return nil
	}
}

// FlushLogs appends buffered log entries to the logs document once at least
// threshold of them are waiting.
func FlushLogs(ring *logging.Ring, st *store.Store, threshold int) func(context.Context, time.Time) error {
	return func(context.Context, time.Time) error {
		if ring.Unflushed() < threshold {
			return nil
		}
		entries := ring.TakeUnflushed()
		lines := make([][]byte, 0, len(entries))
		for _, e := range entries {
			line, err := json.Marshal(e)
			if err != nil {
				continue
			}
			lines = append(lines, line)
		}
		return st.AppendLines(store.LogsDocument, lines, LogMaxBytes)
	}
}

// PersistSnapshot writes the value returned by read to the named document.
func PersistSnapshot(st *store.Store, name string, read func(now time.Time) any) func(context.Context, time.Time) error {
	return func(_ context.Context, now time.Time) error {
		data, err := json.Marshal(read(now))
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		return st.Write(name, data)
	}
}

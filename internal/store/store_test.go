package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) (*Store, *MemStorage) {
	t.Helper()
	mem := NewMemStorage()
	s, err := New(mem, 4)
	require.NoError(t, err)
	return s, mem
}

func TestReadMissingIsNotFound(t *testing.T) {
	s, _ := newMemStore(t)
	_, err := s.Read("absent.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadIsCached(t *testing.T) {
	s, mem := newMemStore(t)
	mem.Put("a.json", []byte(`{"x":1}`))

	first, err := s.Read("a.json")
	require.NoError(t, err)
	second, err := s.Read("a.json")
	require.NoError(t, err)

	assert.JSONEq(t, `{"x":1}`, string(first))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, mem.Reads, "second read should come from the cache")

	first[2] = 'y'
	third, _ := s.Read("a.json")
	assert.JSONEq(t, `{"x":1}`, string(third), "caller mutation leaked into cache")
}

func TestWriteReplacesWholeDocument(t *testing.T) {
	s, mem := newMemStore(t)
	require.NoError(t, s.Write("c.json", []byte(`{"a":1,"b":2}`)))
	require.NoError(t, s.Write("c.json", []byte(`{"a":3}`)))

	got, err := s.Read("c.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3}`, string(got))
	assert.Equal(t, 0, mem.Reads, "read after write should be served from cache")
}

func TestWriteRejectsInvalidJSON(t *testing.T) {
	s, mem := newMemStore(t)
	require.NoError(t, s.Write("c.json", []byte(`{"a":1}`)))

	err := s.Write("c.json", []byte(`{"a":`))
	require.Error(t, err)

	raw, _ := mem.Get("c.json")
	assert.JSONEq(t, `{"a":1}`, string(raw))
}

func TestWriteFailureKeepsPrevious(t *testing.T) {
	s, mem := newMemStore(t)
	require.NoError(t, s.Write("c.json", []byte(`{"a":1}`)))

	mem.FailWrites = true
	err := s.Write("c.json", []byte(`{"a":2}`))
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Op)

	mem.FailWrites = false
	got, err := s.Read("c.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))
}

func TestEnsureDeviceConfigFirstBoot(t *testing.T) {
	s, _ := newMemStore(t)

	cfg, created, err := s.EnsureDeviceConfig()
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, cfg.WiFi.Configured)
	assert.True(t, cfg.System.FirstBoot)
	assert.Len(t, cfg.System.DeviceID, 36)

	again, created, err := s.EnsureDeviceConfig()
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cfg.System.DeviceID, again.System.DeviceID)
}

func TestAppendLinesRotates(t *testing.T) {
	s, mem := newMemStore(t)
	line := []byte(`{"message":"0123456789"}`)

	require.NoError(t, s.AppendLines(LogsDocument, [][]byte{line, line}, 60))
	raw, _ := mem.Get(LogsDocument)
	assert.Equal(t, 2*(len(line)+1), len(raw))

	require.NoError(t, s.AppendLines(LogsDocument, [][]byte{line}, 60))
	old, ok := mem.Get(LogsDocument + ".old")
	require.True(t, ok, "expected rotation")
	assert.Equal(t, raw, old)
	current, _ := mem.Get(LogsDocument)
	assert.Equal(t, len(line)+1, len(current))
}

func TestDirStorageAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	ds, err := NewDirStorage(filepath.Join(dir, "data"))
	require.NoError(t, err)
	s, err := New(ds, 0)
	require.NoError(t, err)

	doc := map[string]any{"wifi": map[string]any{"ssid": "Net", "configured": true}}
	data, _ := json.Marshal(doc)
	require.NoError(t, s.Write(ConfigDocument, data))

	_, err = os.Stat(filepath.Join(dir, "data", ConfigDocument+".tmp"))
	assert.True(t, os.IsNotExist(err))

	fresh, err := New(ds, 0)
	require.NoError(t, err)
	cfg, err := fresh.LoadDeviceConfig()
	require.NoError(t, err)
	assert.Equal(t, "Net", cfg.WiFi.SSID)
	assert.True(t, cfg.WiFi.Configured)
}

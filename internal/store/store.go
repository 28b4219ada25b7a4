package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"

	"github.com/muurk/monitorminer/internal/deviceconfig"
	"github.com/muurk/monitorminer/internal/logging"
)

// Document names.
const (
	ConfigDocument  = "config.json"
	SensorsDocument = "sensors.json"
	LogsDocument    = "logs.jsonl"
)

// DefaultReadCacheSize is the number of documents kept decoded in memory.
const DefaultReadCacheSize = 8

// ErrNotFound is returned by Read when no document exists under the name.
var ErrNotFound = errors.New("document not found")

// IOError wraps a storage failure other than a missing document.
type IOError struct {
	Op   string
	Name string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Store is the persistent config store. Writes replace whole documents;
// reads are served from an in-memory cache after the first load.
type Store struct {
	storage Storage
	mu      sync.Mutex
	cache   *simplelru.LRU[string, []byte]
}

// New creates a store over storage with a read cache of cacheSize documents.
func New(storage Storage, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultReadCacheSize
	}
	cache, err := simplelru.NewLRU[string, []byte](cacheSize, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create read cache: %w", err)
	}
	return &Store{storage: storage, cache: cache}, nil
}

// Read returns the named document, or ErrNotFound.
// The returned slice is a copy the caller may modify.
func (s *Store) Read(name string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.cache.Get(name); ok {
		return bytes.Clone(doc), nil
	}

	data, err := s.storage.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &IOError{Op: "read", Name: name, Err: err}
	}

	s.cache.Add(name, data)
	return bytes.Clone(data), nil
}

// Write replaces the named document with doc. doc must be well-formed JSON.
// On failure the previous document stays in place.
func (s *Store) Write(name string, doc []byte) error {
	if !json.Valid(doc) {
		return fmt.Errorf("store write %s: document is not valid JSON", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.WriteFile(name, doc); err != nil {
		s.cache.Remove(name)
		return &IOError{Op: "write", Name: name, Err: err}
	}
	s.cache.Add(name, bytes.Clone(doc))
	logging.Debug("Document written", zap.String("name", name), zap.Int("bytes", len(doc)))
	return nil
}

// AppendLines appends newline-terminated records to a line-oriented document.
// When the document would exceed maxBytes it is rotated to "<name>.old" first.
func (s *Store) AppendLines(name string, lines [][]byte, maxBytes int64) error {
	if len(lines) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, line := range lines {
		buf.Write(bytes.TrimRight(line, "\n"))
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(name)

	if maxBytes > 0 {
		size, err := s.storage.Size(name)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &IOError{Op: "stat", Name: name, Err: err}
		}
		if err == nil && size+int64(buf.Len()) > maxBytes {
			if err := s.storage.Rename(name, name+".old"); err != nil {
				return &IOError{Op: "rotate", Name: name, Err: err}
			}
			logging.Info("Rotated document", zap.String("name", name), zap.Int64("size", size))
		}
	}

	if err := s.storage.AppendFile(name, buf.Bytes()); err != nil {
		return &IOError{Op: "append", Name: name, Err: err}
	}
	return nil
}

// LoadDeviceConfig reads and decodes the config document.
func (s *Store) LoadDeviceConfig() (*deviceconfig.DeviceConfig, error) {
	data, err := s.Read(ConfigDocument)
	if err != nil {
		return nil, err
	}
	return deviceconfig.ParseDeviceConfig(data)
}

// SaveDeviceConfig encodes cfg and replaces the config document.
func (s *Store) SaveDeviceConfig(cfg *deviceconfig.DeviceConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode device config: %w", err)
	}
	return s.Write(ConfigDocument, data)
}

// EnsureDeviceConfig loads the config document, writing defaults with a fresh
// device id when none exists. The bool reports whether defaults were written.
func (s *Store) EnsureDeviceConfig() (*deviceconfig.DeviceConfig, bool, error) {
	cfg, err := s.LoadDeviceConfig()
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	cfg = deviceconfig.Defaults(uuid.NewString())
	if err := s.SaveDeviceConfig(cfg); err != nil {
		return nil, false, err
	}
	logging.Info("First boot, wrote default configuration",
		zap.String("device_id", cfg.System.DeviceID),
	)
	return cfg, true, nil
}

package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Storage is the byte-level persistence the store sits on.
// ReadFile must return an error matching fs.ErrNotExist for missing files.
type Storage interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	AppendFile(name string, data []byte) error
	Size(name string) (int64, error)
	Rename(oldName, newName string) error
}

// DirStorage keeps each document as a file in Dir.
type DirStorage struct {
	Dir string
	mu  sync.Mutex
}

// NewDirStorage creates dir if needed.
func NewDirStorage(dir string) (*DirStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &DirStorage{Dir: dir}, nil
}

func (d *DirStorage) path(name string) string {
	return filepath.Join(d.Dir, filepath.Base(name))
}

func (d *DirStorage) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(d.path(name))
}

// WriteFile replaces name atomically: a crash leaves either the old or the
// new content, never a mix.
func (d *DirStorage) WriteFile(name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	target := d.path(name)
	tmpPath := target + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (d *DirStorage) AppendFile(name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(d.path(name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *DirStorage) Size(name string) (int64, error) {
	info, err := os.Stat(d.path(name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (d *DirStorage) Rename(oldName, newName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return os.Rename(d.path(oldName), d.path(newName))
}

// MemStorage is an in-memory Storage. Reads counts ReadFile calls.
type MemStorage struct {
	mu    sync.Mutex
	files map[string][]byte
	Reads int
	// FailWrites makes every write return an error.
	FailWrites bool
}

// NewMemStorage returns an empty in-memory storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{files: make(map[string][]byte)}
}

func (m *MemStorage) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return bytes.Clone(data), nil
}

func (m *MemStorage) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("storage write failed")
	}
	m.files[name] = bytes.Clone(data)
	return nil
}

func (m *MemStorage) AppendFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("storage write failed")
	}
	m.files[name] = append(m.files[name], data...)
	return nil
}

func (m *MemStorage) Size(name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return 0, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return int64(len(data)), nil
}

func (m *MemStorage) Rename(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[oldName]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldName, Err: fs.ErrNotExist}
	}
	m.files[newName] = data
	delete(m.files, oldName)
	return nil
}

// Put seeds a file without counting as a store write.
func (m *MemStorage) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = bytes.Clone(data)
}

// Get returns the raw file content without counting a read.
func (m *MemStorage) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return bytes.Clone(data), ok
}

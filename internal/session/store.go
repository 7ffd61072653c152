// Package session persists the current identity between runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Store holds at most one identity. Load fails open: anything unreadable
// is reported as absent.
type Store interface {
	Load() (core.Identity, bool)
	Save(core.Identity) error
	Clear() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*Memory)(nil)
)

var ErrInvalidIdentity = errors.New("identity is not fully populated")

// FileStore keeps the identity as a JSON document at path.
type FileStore struct {
	path   string
	logger *log.Logger
}

func NewFileStore(path string, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &FileStore{path: path, logger: logger.WithComponent(log.ComponentSession)}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() (core.Identity, bool) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Cannot read session, starting logged out", "path", s.path, log.FieldError, err)
		}
		return core.Identity{}, false
	}

	var id core.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		s.logger.Warn("Corrupt session, starting logged out", "path", s.path, log.FieldError, err)
		return core.Identity{}, false
	}
	if !id.Valid() {
		s.logger.Warn("Incomplete session, starting logged out", "path", s.path)
		return core.Identity{}, false
	}
	return id, true
}

// Save replaces the stored identity. The file is written next to its final
// location and renamed, so readers never see a partial document.
func (s *FileStore) Save(id core.Identity) error {
	if !id.Valid() {
		return ErrInvalidIdentity
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear removes the stored identity. A missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Memory is an in-process Store.
type Memory struct {
	mu  sync.Mutex
	id  core.Identity
	set bool
}

// NewMemory returns a store, optionally seeded with an identity.
func NewMemory(seed ...core.Identity) *Memory {
	m := &Memory{}
	if len(seed) > 0 && seed[0].Valid() {
		m.id, m.set = seed[0], true
	}
	return m
}

func (m *Memory) Load() (core.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.set
}

func (m *Memory) Save(id core.Identity) error {
	if !id.Valid() {
		return ErrInvalidIdentity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.set = id, true
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id, m.set = core.Identity{}, false
	return nil
}

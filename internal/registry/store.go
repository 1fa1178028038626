package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/platform/sentinel"
)

// Store abstracts registry persistence so the algorithmic core never touches
// file I/O directly and stays independently testable.
type Store interface {
	Load() (*Registry, error)
	Save(reg *Registry) error
	ModTime() (time.Time, error)
}

// FileStore keeps the registry as one JSON document on local disk. Saves are
// atomic (write-temp-then-rename) so readers never observe a half-written
// registry. The design assumes a single writer at a time.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*Registry, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("registry %s: %w", s.path, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}

	reg := NewRegistry()
	if err := json.Unmarshal(raw, reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	reg.Overrides.init()
	if reg.Parties == nil {
		reg.Parties = make(map[string]*Group)
	}
	return reg, nil
}

func (s *FileStore) Save(reg *Registry) error {
	raw, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp registry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

func (s *FileStore) ModTime() (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("registry %s: %w", s.path, sentinel.ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("stat registry: %w", err)
	}
	return info.ModTime(), nil
}

// InMemoryStore keeps the registry in memory for tests. Each Save bumps the
// mod time so mtime-keyed caches still invalidate.
type InMemoryStore struct {
	mu      sync.RWMutex
	reg     *Registry
	modTime time.Time
	saves   int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Load() (*Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reg == nil {
		return nil, sentinel.ErrNotFound
	}
	// Round-trip through JSON so callers get an isolated copy, the same
	// contract the file store provides.
	raw, err := json.Marshal(s.reg)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	if err := json.Unmarshal(raw, reg); err != nil {
		return nil, err
	}
	reg.Overrides.init()
	return reg, nil
}

func (s *InMemoryStore) Save(reg *Registry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg = reg
	s.saves++
	s.modTime = time.Unix(int64(s.saves), 0)
	return nil
}

func (s *InMemoryStore) ModTime() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reg == nil {
		return time.Time{}, sentinel.ErrNotFound
	}
	return s.modTime, nil
}

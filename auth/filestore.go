package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore keeps OrgInfo entries in a single YAML document keyed by
// credential ID. A missing file is an empty store.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, key string) (*OrgInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := m[key]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (s *FileStore) Put(_ context.Context, key string, info *OrgInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return err
	}
	m[key] = *info
	return s.write(m)
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.write(m)
}

func (s *FileStore) read() (map[string]OrgInfo, error) {
	m := make(map[string]OrgInfo)
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("org store: %w", err)
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("org store %s: %w", s.path, err)
	}
	if m == nil {
		m = make(map[string]OrgInfo)
	}
	return m, nil
}

// write replaces the file atomically.
func (s *FileStore) write(m map[string]OrgInfo) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("org store: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("org store: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".orgs-*.yaml")
	if err != nil {
		return fmt.Errorf("org store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("org store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("org store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("org store: %w", err)
	}
	return nil
}

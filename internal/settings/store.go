// Package settings persists per-script configuration values. Values are
// always strings, interpreted by each script per its manifest config
// schema.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// Store is a file-backed map of scriptId -> {key -> value} with an
// in-memory cache. Every mutation is written through to disk.
type Store struct {
	path string

	mu     sync.RWMutex
	values map[string]map[string]string
}

// Open loads the store at path, creating an empty one if the file does
// not exist.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		values: make(map[string]map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := sonic.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Configs returns a copy of all stored configuration values.
func (s *Store) Configs() map[string]map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]map[string]string, len(s.values))
	for id, kv := range s.values {
		inner := make(map[string]string, len(kv))
		for k, v := range kv {
			inner[k] = v
		}
		out[id] = inner
	}
	return out
}

// Get returns one script's configuration values.
func (s *Store) Get(scriptID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kv, ok := s.values[scriptID]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(kv))
	for k, v := range kv {
		out[k] = v
	}
	return out
}

// Set replaces one script's configuration values and persists the store.
func (s *Store) Set(scriptID string, config map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(config) == 0 {
		delete(s.values, scriptID)
	} else {
		kv := make(map[string]string, len(config))
		for k, v := range config {
			kv[k] = v
		}
		s.values[scriptID] = kv
	}
	return s.flush()
}

// Delete removes one script's configuration values and persists the
// store.
func (s *Store) Delete(scriptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[scriptID]; !ok {
		return nil
	}
	delete(s.values, scriptID)
	return s.flush()
}

// flush writes the store to disk. Callers hold the write lock.
func (s *Store) flush() error {
	data, err := sonic.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

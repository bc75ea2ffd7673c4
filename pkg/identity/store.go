// Package identity persists the device identifier in a namespaced
// key/value store.
package identity

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound indicates the key has no value.
var ErrNotFound = errors.New("not found")

// Store is a persistent string key/value store grouped by namespace.
type Store interface {
	GetString(namespace, key string) (string, error)
	PutString(namespace, key, value string) error
}

// MemStore keeps values in memory. GetErr and PutErr inject failures.
type MemStore struct {
	GetErr error
	PutErr error

	values map[string]map[string]string
	puts   int
	lock   sync.Mutex
}

// GetString implements Store.
func (s *MemStore) GetString(namespace, key string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.GetErr != nil {
		return "", s.GetErr
	}
	val, ok := s.values[namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

// PutString implements Store.
func (s *MemStore) PutString(namespace, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.puts++
	if s.PutErr != nil {
		return s.PutErr
	}
	if s.values == nil {
		s.values = make(map[string]map[string]string)
	}
	if s.values[namespace] == nil {
		s.values[namespace] = make(map[string]string)
	}
	s.values[namespace][key] = value
	return nil
}

// Puts counts PutString calls, failed ones included.
func (s *MemStore) Puts() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.puts
}

// FileStore keeps all namespaces in one YAML document:
//
//	neon-timing:
//	  device_id: "123456789"
type FileStore struct {
	Path string

	lock sync.Mutex
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// GetString implements Store.
func (s *FileStore) GetString(namespace, key string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	doc, err := s.load()
	if err != nil {
		return "", err
	}
	val, ok := doc[namespace][key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

// PutString implements Store.
func (s *FileStore) PutString(namespace, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	doc, err := s.load()
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		doc = make(map[string]map[string]string)
	}
	if doc[namespace] == nil {
		doc[namespace] = make(map[string]string)
	}
	doc[namespace][key] = value
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "" {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := s.Path + ".tmp"
	if err = os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

func (s *FileStore) load() (map[string]map[string]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	doc := make(map[string]map[string]string)
	if err = yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

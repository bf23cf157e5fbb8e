// Package sessionfile persists the credential slots as a single YAML
// document on disk.
package sessionfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/openkcm/session-client/pkg/session"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

type document struct {
	Slots map[string]string `yaml:"slots"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

var _ = session.SlotStore(&Store{})

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		slog.Warn("Could not read the credential file", "path", s.path, "error", err)
		return "", false
	}

	v, ok := doc.Slots[key]
	return v, ok
}

func (s *Store) Save(key, value string) {
	s.update(func(slots map[string]string) bool {
		if v, ok := slots[key]; ok && v == value {
			return false
		}
		slots[key] = value
		return true
	})
}

func (s *Store) Remove(key string) {
	s.update(func(slots map[string]string) bool {
		if _, ok := slots[key]; !ok {
			return false
		}
		delete(slots, key)
		return true
	})
}

func (s *Store) update(fn func(slots map[string]string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		// an unreadable file is replaced rather than left half-updated
		slog.Warn("Discarding unreadable credential file", "path", s.path, "error", err)
		doc = &document{Slots: make(map[string]string)}
	}

	if !fn(doc.Slots) {
		return
	}

	if err := s.write(doc); err != nil {
		slog.Warn("Could not write the credential file", "path", s.path, "error", err)
	}
}

func (s *Store) read() (*document, error) {
	doc := &document{}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		doc.Slots = make(map[string]string)
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if doc.Slots == nil {
		doc.Slots = make(map[string]string)
	}

	return doc, nil
}

func (s *Store) write(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing file: %w", err)
	}

	return nil
}

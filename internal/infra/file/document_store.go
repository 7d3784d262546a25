package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"quiz-engine/internal/domain"
)

// DocumentStore keeps each document as a JSON file under dir. Saves go to a
// temp file in the same directory that is renamed over the target, so a failed
// write leaves the previous document intact.
type DocumentStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

func NewDocumentStore(fsys afero.Fs, dir string) *DocumentStore {
	return &DocumentStore{fs: fsys, dir: dir}
}

// NewOSDocumentStore stores documents on the local disk.
func NewOSDocumentStore(dir string) *DocumentStore {
	return NewDocumentStore(afero.NewOsFs(), dir)
}

// Dir is the directory documents are written to.
func (s *DocumentStore) Dir() string { return s.dir }

func (s *DocumentStore) Load(_ context.Context, name string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(name))
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func (s *DocumentStore) Save(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}
	tmp, err := afero.TempFile(s.fs, s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := s.fs.Rename(tmpName, s.path(name)); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (s *DocumentStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the document root.
var ErrOutsideRoot = errors.New("path escapes document root")

// FileStore is the backing store for document content. The synchronization
// engine loads a file once when its session is created and saves after every
// applied edit.
type FileStore interface {
	// Load returns the current content of path. A missing file is an
	// empty document, not an error.
	Load(path string) (string, error)
	// Save atomically replaces the content of path, creating parent
	// directories as needed.
	Save(path, content string) error
}

// DiskStore is a FileStore over a directory tree on the local filesystem.
type DiskStore struct {
	root string
}

// NewDiskStore creates a store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{root: filepath.Clean(dir)}
}

// Root returns the document root directory.
func (s *DiskStore) Root() string {
	return s.root
}

// Resolve maps a relative document path to an absolute path under the root,
// rejecting anything that would escape it.
func (s *DiskStore) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrOutsideRoot)
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return full, nil
}

func (s *DiskStore) Load(path string) (string, error) {
	full, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	return string(data), nil
}

func (s *DiskStore) Save(path, content string) error {
	full, err := s.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	// Write-then-rename so a crash mid-write never leaves a truncated
	// document behind.
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".tmp*")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

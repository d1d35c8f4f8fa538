// Package blob stores raw uploaded documents on the local filesystem.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentBlobStore = (*FileStore)(nil)

// FileStore keeps one file per document name under a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: blob directory is required", domain.ErrConfiguration)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create blob directory: %w", domain.ErrPersistence, err)
	}
	return &FileStore{root: root}, nil
}

// Root returns the directory documents are stored in.
func (s *FileStore) Root() string {
	return s.root
}

// path rejects names that would escape the root directory.
func (s *FileStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: invalid document name %q", domain.ErrInvalidInput, name)
	}
	return filepath.Join(s.root, name), nil
}

// Put writes through a temp file and rename so readers never see a
// partially written document.
func (s *FileStore) Put(_ context.Context, name string, raw []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", domain.ErrPersistence, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrPersistence, name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: store %s: %w", domain.ErrPersistence, name, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrPersistence, name, err)
	}
	return raw, nil
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrPersistence, name, err)
	}
	return nil
}

func (s *FileStore) Exists(_ context.Context, name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat %s: %w", domain.ErrPersistence, name, err)
	}
}

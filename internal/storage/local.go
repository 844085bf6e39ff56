package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// LocalStorage keeps objects as files below a root directory
type LocalStorage struct {
	root string
}

var _ StorageInterface = (*LocalStorage)(nil)

// NewLocalStorage creates the root directory when missing
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", root, err)
	}
	logrus.Infof("Using local storage directory: %s", root)
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Store writes data to a temporary file and renames it into place
func (s *LocalStorage) Store(_ context.Context, key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file for %s: %w", key, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}

	return nil
}

// Retrieve reads the file stored under key
func (s *LocalStorage) Retrieve(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// List returns the slash-separated keys starting with prefix, sorted
func (s *LocalStorage) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Delete removes the file stored under key
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

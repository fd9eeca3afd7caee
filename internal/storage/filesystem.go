package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileSystem stores derivatives in a directory tree rooted at baseDir.
// A derivative key maps to {baseDir}/styles/{identifier}/{scheme}/{path}.
type FileSystem struct {
	baseDir string
}

// NewFileSystem creates a new FileSystem backend, ensuring the base directory exists.
func NewFileSystem(baseDir string) (*FileSystem, error) {
	// MkdirAll creates the directory and all parents (like mkdir -p).
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating derivatives directory: %w", err)
	}
	return &FileSystem{baseDir: baseDir}, nil
}

func (fs *FileSystem) Name() string {
	return "filesystem"
}

// BaseDir returns the root directory.
func (fs *FileSystem) BaseDir() string {
	return fs.baseDir
}

// KeyPath returns the filesystem path for key. Keys that would escape the
// base directory are rejected.
func (fs *FileSystem) KeyPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + key))
	if clean == string(filepath.Separator) {
		return fs.baseDir, nil
	}
	p := filepath.Join(fs.baseDir, clean)
	rel, err := filepath.Rel(fs.baseDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes the derivatives directory", key)
	}
	return p, nil
}

// Read reads a derivative from disk.
func (fs *FileSystem) Read(_ context.Context, key string) ([]byte, error) {
	p, err := fs.KeyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("reading derivative file: %w", err)
	}
	return data, nil
}

// Write saves a derivative, creating parent directories as needed. The file
// is written to a temporary name and renamed so readers never see a
// partial image.
func (fs *FileSystem) Write(_ context.Context, key string, data []byte, _ string) error {
	p, err := fs.KeyPath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating derivative directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing derivative file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing derivative file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting derivative permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("renaming derivative file: %w", err)
	}
	return nil
}

// Exists checks if a derivative file exists on disk.
func (fs *FileSystem) Exists(_ context.Context, key string) (bool, error) {
	p, err := fs.KeyPath(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat derivative file: %w", err)
	}
	return !info.IsDir(), nil
}

// List returns the directory names and file names directly under prefix.
func (fs *FileSystem) List(_ context.Context, prefix string) ([]string, error) {
	p, err := fs.KeyPath(prefix)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", prefix, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes prefix recursively. os.RemoveAll already treats a missing
// path as success.
func (fs *FileSystem) Delete(_ context.Context, prefix string) error {
	p, err := fs.KeyPath(prefix)
	if err != nil {
		return err
	}
	if p == fs.baseDir {
		return fmt.Errorf("refusing to delete the derivatives root")
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("deleting %s: %w", prefix, err)
	}
	return nil
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalSource reads originals from directories on disk, one root per
// scheme: public://a/b.jpg is {roots["public"]}/a/b.jpg.
type LocalSource struct {
	roots map[string]string
}

// NewLocalSource creates a source for the given scheme -> directory map.
func NewLocalSource(roots map[string]string) *LocalSource {
	cleaned := make(map[string]string, len(roots))
	for scheme, dir := range roots {
		cleaned[scheme] = filepath.Clean(dir)
	}
	return &LocalSource{roots: cleaned}
}

func (l *LocalSource) Name() string { return "local" }

func (l *LocalSource) Schemes() []string {
	schemes := make([]string, 0, len(l.roots))
	for scheme := range l.roots {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Path resolves scheme://path to a file path inside the scheme root.
// Paths that climb out of the root are rejected.
func (l *LocalSource) Path(scheme, path string) (string, error) {
	root, ok := l.roots[scheme]
	if !ok {
		return "", fmt.Errorf("%w: unknown scheme %q", ErrSourceNotFound, scheme)
	}
	full := filepath.Join(root, filepath.FromSlash(path))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s://%s is outside the %s root", ErrSourceNotFound, scheme, path, scheme)
	}
	return full, nil
}

func (l *LocalSource) Fetch(_ context.Context, scheme, path string) ([]byte, error) {
	p, err := l.Path(scheme, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s://%s", ErrSourceNotFound, scheme, path)
		}
		return nil, fmt.Errorf("reading source %s://%s: %w", scheme, path, err)
	}
	return data, nil
}

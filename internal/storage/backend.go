package storage

import (
	"context"
	"path"
	"strings"
)

// StylesRoot is the top-level key every derivative lives under. Keys mirror
// the public derivative URL: styles/<identifier>/<scheme>/<path>.
const StylesRoot = "styles"

// Backend stores derivative bytes under slash-separated keys. Both the local
// directory tree and the object store implement it, so the registry and the
// derivative service never care where bytes live.
type Backend interface {
	// Name identifies the backend in the catalog and in logs.
	Name() string
	// Read returns ErrNotFound when key does not exist.
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns the names of the immediate children of prefix, sorted.
	// A missing prefix yields an empty list.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes prefix and everything under it. Deleting a missing
	// prefix is not an error.
	Delete(ctx context.Context, prefix string) error
}

// DerivativeKey builds the key of one derivative.
func DerivativeKey(identifier, scheme, filePath string) string {
	return path.Join(StylesRoot, identifier, scheme, strings.TrimLeft(filePath, "/"))
}

// StyleKey is the prefix holding every derivative of one style.
func StyleKey(identifier string) string {
	return path.Join(StylesRoot, identifier)
}

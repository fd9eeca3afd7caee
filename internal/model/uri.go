package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURI is returned for URIs without a "scheme://path" shape.
var ErrInvalidURI = errors.New("invalid uri")

// ParseURI splits a stream URI such as "public://photos/cat.jpg" into its
// scheme and path. The path never starts with a slash.
func ParseURI(uri string) (scheme, path string, err error) {
	scheme, path, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return "", "", fmt.Errorf("%w: %q has no scheme", ErrInvalidURI, uri)
	}
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", "", fmt.Errorf("%w: %q has no path", ErrInvalidURI, uri)
	}
	return scheme, path, nil
}

// BuildURI is the inverse of ParseURI.
func BuildURI(scheme, path string) string {
	return scheme + "://" + strings.TrimLeft(path, "/")
}

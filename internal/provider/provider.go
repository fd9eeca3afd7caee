// Package provider supplies what the derivative pipeline needs from the
// outside world: the original image bytes (sources) and where to centre
// focal crops (focal point detection).
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jacerider/neo-image/internal/model"
)

// ErrSourceNotFound is returned when the original image does not exist.
var ErrSourceNotFound = errors.New("source image not found")

// SourceProvider fetches original images for one or more URI schemes.
type SourceProvider interface {
	// Fetch returns the bytes at scheme://path, or ErrSourceNotFound.
	Fetch(ctx context.Context, scheme, path string) ([]byte, error)
	// Schemes lists the URI schemes this provider serves.
	Schemes() []string
	// Name returns a human-readable name for the provider.
	Name() string
}

// Sources dispatches fetches to the provider registered for the URI scheme.
type Sources struct {
	byScheme map[string]SourceProvider
}

// NewSources registers every scheme of every provider. A later provider
// wins when two claim the same scheme.
func NewSources(providers ...SourceProvider) *Sources {
	s := &Sources{byScheme: make(map[string]SourceProvider)}
	for _, p := range providers {
		for _, scheme := range p.Schemes() {
			s.byScheme[scheme] = p
		}
	}
	return s
}

// Fetch loads the original image for a stream URI such as
// "public://photos/cat.jpg".
func (s *Sources) Fetch(ctx context.Context, uri string) ([]byte, error) {
	scheme, path, err := model.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return s.FetchPath(ctx, scheme, path)
}

// FetchPath is Fetch with the URI already split.
func (s *Sources) FetchPath(ctx context.Context, scheme, path string) ([]byte, error) {
	p, ok := s.byScheme[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: no source for scheme %q", ErrSourceNotFound, scheme)
	}
	return p.Fetch(ctx, scheme, path)
}

// Has reports whether scheme is served.
func (s *Sources) Has(scheme string) bool {
	_, ok := s.byScheme[scheme]
	return ok
}

// Schemes lists every served scheme, sorted.
func (s *Sources) Schemes() []string {
	schemes := make([]string, 0, len(s.byScheme))
	for scheme := range s.byScheme {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

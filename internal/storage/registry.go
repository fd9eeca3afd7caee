package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/style"
)

// StyleEntry is one style found in storage.
type StyleEntry struct {
	ID    string       `json:"id"`
	Label string       `json:"label"`
	Style *style.Style `json:"-"`
}

// SizeOption is a stored style offered as a preset size: a single focal
// crop or scale effect. DimensionKey ("w-640_h-480") matches the property
// block of the identifier and lets a form preselect the option from a
// width/height pair.
type SizeOption struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	DimensionKey string `json:"dimension_key"`
}

// Registry discovers styles from the derivatives that exist in storage and
// flushes them. Storage is the only source of truth: a style exists once at
// least one derivative has been generated for it.
type Registry struct {
	backends    []Backend
	derivatives DerivativeRepository
	logger      *zap.Logger
}

// NewRegistry creates a registry over backends. derivatives may be nil, in
// which case flushing only touches stored bytes.
func NewRegistry(backends []Backend, derivatives DerivativeRepository, logger *zap.Logger) *Registry {
	return &Registry{backends: backends, derivatives: derivatives, logger: logger}
}

// Styles lists the styles present on every backend, sorted by identifier.
// When kinds are given only styles holding at least one of them are
// returned. The result is a snapshot taken at call time.
func (r *Registry) Styles(ctx context.Context, kinds ...style.Kind) ([]StyleEntry, error) {
	ids := make(map[string]struct{})
	for _, b := range r.backends {
		names, err := b.List(ctx, StylesRoot)
		if err != nil {
			return nil, fmt.Errorf("listing styles on %s: %w", b.Name(), err)
		}
		for _, name := range names {
			if style.IsIdentifier(name) {
				ids[name] = struct{}{}
			}
		}
	}

	entries := make([]StyleEntry, 0, len(ids))
	for id := range ids {
		s := style.Decode(id)
		if len(kinds) > 0 && !s.HasEffectKinds(kinds...) {
			continue
		}
		entries = append(entries, StyleEntry{ID: id, Label: s.Label(), Style: s})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// SizeOptions lists stored single-effect focal crop and scale styles.
func (r *Registry) SizeOptions(ctx context.Context) ([]SizeOption, error) {
	entries, err := r.Styles(ctx, style.KindFocalScaleAndCrop, style.KindScale)
	if err != nil {
		return nil, err
	}

	var options []SizeOption
	for _, e := range entries {
		if e.Style.EffectCount() != 1 {
			continue
		}
		opt := SizeOption{ID: e.ID, Label: e.Label}
		opt.Width, _ = e.Style.Width()
		opt.Height, _ = e.Style.Height()
		if _, block, ok := strings.Cut(e.Style.Encode(), "--"); ok {
			opt.DimensionKey = block
		}
		options = append(options, opt)
	}
	return options, nil
}

// Flush deletes every derivative of id on every backend and drops its
// catalog rows. Flushing an identifier that has no derivatives is not an
// error.
func (r *Registry) Flush(ctx context.Context, id string) error {
	if !style.IsIdentifier(id) {
		return fmt.Errorf("%w: %q is not a style identifier", style.ErrInvalidArgument, id)
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return fmt.Errorf("%w: %q contains a path separator", style.ErrInvalidArgument, id)
	}

	for _, b := range r.backends {
		if err := b.Delete(ctx, StyleKey(id)); err != nil {
			return fmt.Errorf("flushing %s on %s: %w", id, b.Name(), err)
		}
	}

	var rows int64
	if r.derivatives != nil {
		n, err := r.derivatives.DeleteByIdentifier(ctx, id)
		if err != nil {
			// The bytes are gone; a stale catalog row only costs a cache miss.
			r.logger.Error("Failed to drop catalog rows", zap.String("style", id), zap.Error(err))
		}
		rows = n
	}
	r.logger.Info("Flushed style", zap.String("style", id), zap.Int64("catalog_rows", rows))
	return nil
}

// FlushAll flushes every stored style, or only those holding one of kinds.
// It returns the flushed identifiers.
func (r *Registry) FlushAll(ctx context.Context, kinds ...style.Kind) ([]string, error) {
	entries, err := r.Styles(ctx, kinds...)
	if err != nil {
		return nil, err
	}
	flushed := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := r.Flush(ctx, e.ID); err != nil {
			return flushed, err
		}
		flushed = append(flushed, e.ID)
	}
	return flushed, nil
}

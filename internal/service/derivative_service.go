// Package service contains the core business logic of the derivative
// pipeline. DerivativeService turns a (style identifier, source uri) pair
// into image bytes:
//
//	Layer 1: Cache: read the derivative from the storage backend
//	Layer 2: Generate: fetch the source, resolve a focal point if needed,
//	         render, then store bytes and catalog row
//
// Generated derivatives are kept until their style is flushed.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/provider"
	"github.com/jacerider/neo-image/internal/render"
	"github.com/jacerider/neo-image/internal/storage"
	"github.com/jacerider/neo-image/internal/style"
	"github.com/jacerider/neo-image/internal/telemetry"
)

var (
	// ErrUnknownStyle is returned for identifiers that are not neo styles or
	// that decode to no effects.
	ErrUnknownStyle = errors.New("unknown style")
	// ErrNonCanonical is matched by *NonCanonicalError.
	ErrNonCanonical = errors.New("non-canonical style identifier")
	// ErrStyleTooLarge is returned for styles asking for a width or height
	// above the configured maximum dimension.
	ErrStyleTooLarge = errors.New("style exceeds maximum dimension")
)

// NonCanonicalError carries the identifier the request should have used.
type NonCanonicalError struct {
	Canonical string
}

func (e *NonCanonicalError) Error() string {
	return fmt.Sprintf("%s: use %s", ErrNonCanonical, e.Canonical)
}

// Is lets errors.Is(err, ErrNonCanonical) match.
func (e *NonCanonicalError) Is(target error) bool {
	return target == ErrNonCanonical
}

// focalKinds are the effects that need a focal point to render.
var focalKinds = []style.Kind{style.KindFocalScaleAndCrop, style.KindFocalCropByWidth}

// Image is a derivative ready to be served.
type Image struct {
	Data        []byte
	ContentType string
	// Cached is false when this call (or a concurrent one it joined)
	// generated the derivative.
	Cached bool
}

// Dependencies groups everything DerivativeService needs. Focal, Metrics and
// the repositories may be nil.
type Dependencies struct {
	Backend     storage.Backend
	Registry    *storage.Registry
	Derivatives storage.DerivativeRepository
	FocalPoints storage.FocalPointRepository
	Calls       storage.DetectionCallRepository
	Sources     *provider.Sources
	Focal       *provider.FocalDetector
	Renderer    render.Renderer
	Metrics     *telemetry.Metrics
	// PublicURL prefixes derivative URLs, e.g. "https://img.example.com".
	// Empty yields root-relative URLs.
	PublicURL string
	// MaxDimension caps every width and height a style may ask for.
	// Zero or less means render.DefaultMaxDimension.
	MaxDimension int
}

// DerivativeService is the main entry point for derivative retrieval.
type DerivativeService struct {
	deps   Dependencies
	group  singleflight.Group
	logger *zap.Logger
}

// NewDerivativeService wires the pipeline together.
func NewDerivativeService(deps Dependencies, logger *zap.Logger) *DerivativeService {
	deps.PublicURL = strings.TrimRight(deps.PublicURL, "/")
	if deps.MaxDimension <= 0 {
		deps.MaxDimension = render.DefaultMaxDimension
	}
	return &DerivativeService{deps: deps, logger: logger}
}

// ParseStyle decodes id and checks it can name a derivative. It returns
// ErrUnknownStyle for non-neo or empty styles, ErrStyleTooLarge when an
// effect asks for a side above maxDimension (<= 0 disables the check) and a
// *NonCanonicalError when id decodes but does not re-encode to itself.
func ParseStyle(id string, maxDimension int) (*style.Style, error) {
	if !style.IsIdentifier(id) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, id)
	}
	s := style.Decode(id)
	if s.EffectCount() == 0 {
		return nil, fmt.Errorf("%w: %q has no effects", ErrUnknownStyle, id)
	}
	if largest := s.Largest(); maxDimension > 0 && largest > maxDimension {
		return nil, fmt.Errorf("%w: %d > %d", ErrStyleTooLarge, largest, maxDimension)
	}
	if canonical := s.Encode(); canonical != id {
		return nil, &NonCanonicalError{Canonical: canonical}
	}
	return s, nil
}

// Get returns the derivative of scheme://path for style id, generating it
// on first request. Concurrent misses for the same derivative share one
// generation.
func (s *DerivativeService) Get(ctx context.Context, id, scheme, path string) (*Image, error) {
	st, err := ParseStyle(id, s.deps.MaxDimension)
	if err != nil {
		return nil, err
	}
	path = strings.TrimLeft(path, "/")
	if err := checkPath(path); err != nil {
		return nil, err
	}

	key := storage.DerivativeKey(id, scheme, path)

	// Layer 1: Cache hit, fast path
	data, err := s.deps.Backend.Read(ctx, key)
	if err == nil {
		s.deps.Metrics.Derivative(telemetry.ResultHit)
		return &Image{Data: data, ContentType: render.ContentType(data), Cached: true}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.deps.Metrics.Derivative(telemetry.ResultError)
		return nil, fmt.Errorf("reading derivative %s: %w", key, err)
	}

	s.logger.Info("Cache miss, generating derivative",
		zap.String("style", id),
		zap.String("uri", model.BuildURI(scheme, path)),
	)

	// The generation outlives a cancelled caller: other requests may be
	// waiting on it, and the result is cached either way.
	genCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.generate(genCtx, st, id, scheme, path, key)
	})
	if err != nil {
		s.deps.Metrics.Derivative(telemetry.ResultError)
		return nil, err
	}
	s.deps.Metrics.Derivative(telemetry.ResultMiss)
	return v.(*Image), nil
}

// Generate renders and stores a derivative even when one is cached. Used by
// the CLI to warm caches.
func (s *DerivativeService) Generate(ctx context.Context, id, uri string) (*Image, error) {
	st, err := ParseStyle(id, s.deps.MaxDimension)
	if err != nil {
		return nil, err
	}
	scheme, path, err := model.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if err := checkPath(path); err != nil {
		return nil, err
	}
	key := storage.DerivativeKey(id, scheme, path)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.generate(ctx, st, id, scheme, path, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Image), nil
}

// generate is the slow path: fetch, focal point, render, store.
func (s *DerivativeService) generate(ctx context.Context, st *style.Style, id, scheme, path, key string) (*Image, error) {
	start := time.Now()
	uri := model.BuildURI(scheme, path)

	src, err := s.deps.Sources.FetchPath(ctx, scheme, path)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", uri, err)
	}

	focal := model.CenterFocalPoint(uri)
	if st.HasEffectKinds(focalKinds...) && s.deps.Focal != nil {
		focal = s.deps.Focal.Resolve(ctx, uri, src)
	}

	res, err := s.deps.Renderer.Render(ctx, src, st, focal)
	if err != nil {
		return nil, fmt.Errorf("rendering %s with %s: %w", uri, id, err)
	}

	if err := s.deps.Backend.Write(ctx, key, res.Data, res.ContentType); err != nil {
		return nil, fmt.Errorf("storing derivative %s: %w", key, err)
	}

	if s.deps.Derivatives != nil {
		d := &model.Derivative{
			Identifier:  id,
			URI:         uri,
			Backend:     s.deps.Backend.Name(),
			ContentType: res.ContentType,
			Bytes:       int64(len(res.Data)),
			Width:       res.Width,
			Height:      res.Height,
		}
		if err := s.deps.Derivatives.Upsert(ctx, d); err != nil {
			// The bytes are stored; a missing catalog row only affects stats.
			s.logger.Error("Failed to record derivative",
				zap.String("style", id),
				zap.String("uri", uri),
				zap.Error(err),
			)
		}
	}

	elapsed := time.Since(start)
	s.deps.Metrics.Rendered(s.deps.Renderer.Name(), len(res.Data), elapsed)
	s.logger.Info("Generated derivative",
		zap.String("style", id),
		zap.String("uri", uri),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Int("bytes", len(res.Data)),
		zap.Duration("elapsed", elapsed),
	)
	return &Image{Data: res.Data, ContentType: res.ContentType}, nil
}

// checkPath rejects paths that would climb out of their derivative key.
func checkPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", provider.ErrSourceNotFound)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: %q", provider.ErrSourceNotFound, path)
		}
	}
	return nil
}

// URL returns the public URL of the derivative of uri for style id.
func (s *DerivativeService) URL(id, uri string) (string, error) {
	scheme, path, err := model.ParseURI(uri)
	if err != nil {
		return "", err
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		s.deps.PublicURL, storage.StylesRoot, id, url.PathEscape(scheme), strings.Join(segments, "/")), nil
}

// PictureSource is one breakpoint of a rendered picture.
type PictureSource struct {
	Breakpoint string `json:"breakpoint"`
	Media      string `json:"media"`
	Style      string `json:"style"`
	URL        string `json:"url"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

// PictureView is everything a <picture> element needs.
type PictureView struct {
	URI   string `json:"uri"`
	Alt   string `json:"alt,omitempty"`
	Title string `json:"title,omitempty"`
	// Sources are ordered largest breakpoint first, the order browsers
	// evaluate min-width media queries in.
	Sources []PictureSource `json:"sources"`
	// Img is the <img> fallback: the default breakpoint when it has
	// effects, else the smallest styled breakpoint.
	Img PictureSource `json:"img"`
}

// PictureSources resolves the derivative URL of every styled breakpoint of
// p. Breakpoints whose style has no effects are skipped; a picture with no
// styled breakpoint at all yields ErrUnknownStyle.
func (s *DerivativeService) PictureSources(p *model.Picture) (*PictureView, error) {
	var sources []PictureSource
	for _, sized := range p.Styles() {
		if sized.Style.EffectCount() == 0 {
			continue
		}
		id := sized.Style.Encode()
		u, err := s.URL(id, p.URI)
		if err != nil {
			return nil, err
		}
		src := PictureSource{
			Breakpoint: sized.Breakpoint.Size,
			Media:      sized.Breakpoint.Media,
			Style:      id,
			URL:        u,
		}
		src.Width, _ = sized.Style.Width()
		src.Height, _ = sized.Style.Height()
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: picture %s has no styled breakpoint", ErrUnknownStyle, p.URI)
	}

	view := &PictureView{URI: p.URI, Alt: p.Alt, Title: p.Title, Img: sources[0]}
	for i := len(sources) - 1; i >= 0; i-- {
		view.Sources = append(view.Sources, sources[i])
	}
	return view, nil
}

// Stats summarises the catalog.
type Stats struct {
	Styles         int   `json:"styles"`
	Derivatives    int64 `json:"derivatives"`
	TotalBytes     int64 `json:"total_bytes"`
	FocalPoints    int64 `json:"focal_points"`
	DetectionCalls int64 `json:"detection_calls"`
}

// Stats counts styles on the backends and rows in the catalog.
func (s *DerivativeService) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	if s.deps.Registry != nil {
		entries, err := s.deps.Registry.Styles(ctx)
		if err != nil {
			return nil, err
		}
		st.Styles = len(entries)
	}

	var err error
	if s.deps.Derivatives != nil {
		if st.Derivatives, err = s.deps.Derivatives.Count(ctx); err != nil {
			return nil, err
		}
		if st.TotalBytes, err = s.deps.Derivatives.TotalBytes(ctx); err != nil {
			return nil, err
		}
	}
	if s.deps.FocalPoints != nil {
		if st.FocalPoints, err = s.deps.FocalPoints.Count(ctx); err != nil {
			return nil, err
		}
	}
	if s.deps.Calls != nil {
		if st.DetectionCalls, err = s.deps.Calls.Count(ctx); err != nil {
			return nil, err
		}
	}
	return &st, nil
}

// SetFocalPoint stores a manual focal point for uri and drops every
// focal-cropped derivative of it, so the next request renders with the new
// point. Non-focal derivatives are unaffected.
func (s *DerivativeService) SetFocalPoint(ctx context.Context, uri string, x, y float64) (*model.FocalPoint, error) {
	scheme, path, err := model.ParseURI(uri)
	if err != nil {
		return nil, err
	}
	// Stored under the same spelling generation looks up.
	uri = model.BuildURI(scheme, path)
	if x < 0 || x > 100 || y < 0 || y > 100 {
		return nil, fmt.Errorf("%w: focal point (%g, %g) outside 0..100", style.ErrInvalidArgument, x, y)
	}
	if s.deps.FocalPoints == nil {
		return nil, fmt.Errorf("focal point storage not configured")
	}

	fp := &model.FocalPoint{URI: uri, X: x, Y: y, Source: model.FocalSourceManual}
	if err := s.deps.FocalPoints.Upsert(ctx, fp); err != nil {
		return nil, err
	}

	dropped := 0
	if s.deps.Registry != nil {
		entries, err := s.deps.Registry.Styles(ctx, focalKinds...)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if err := s.deps.Backend.Delete(ctx, storage.DerivativeKey(e.ID, scheme, path)); err != nil {
				return nil, fmt.Errorf("dropping %s derivative of %s: %w", e.ID, uri, err)
			}
			dropped++
			if s.deps.Derivatives == nil {
				continue
			}
			if _, err := s.deps.Derivatives.Delete(ctx, e.ID, uri); err != nil {
				s.logger.Error("Failed to drop catalog row",
					zap.String("style", e.ID),
					zap.String("uri", uri),
					zap.Error(err),
				)
			}
		}
	}

	s.logger.Info("Set focal point",
		zap.String("uri", uri),
		zap.Float64("x", x),
		zap.Float64("y", y),
		zap.Int("styles_invalidated", dropped),
	)
	return fp, nil
}

// Flush deletes every derivative of style id.
func (s *DerivativeService) Flush(ctx context.Context, id string) error {
	if s.deps.Registry == nil {
		return fmt.Errorf("style registry not configured")
	}
	if err := s.deps.Registry.Flush(ctx, id); err != nil {
		return err
	}
	s.deps.Metrics.Flushed(1)
	return nil
}

// FlushAll flushes every stored style, or only those holding one of kinds.
func (s *DerivativeService) FlushAll(ctx context.Context, kinds ...style.Kind) ([]string, error) {
	if s.deps.Registry == nil {
		return nil, fmt.Errorf("style registry not configured")
	}
	flushed, err := s.deps.Registry.FlushAll(ctx, kinds...)
	s.deps.Metrics.Flushed(len(flushed))
	return flushed, err
}

// Registry exposes the style registry for listing endpoints.
func (s *DerivativeService) Registry() *storage.Registry {
	return s.deps.Registry
}

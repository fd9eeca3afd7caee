package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/h2non/filetype"

	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/style"
)

// ErrUnsupportedImage is returned when the source bytes are not an image
// the engine can decode.
var ErrUnsupportedImage = errors.New("unsupported image")

// ErrTooLarge is returned when a step of the plan would produce an image
// wider or taller than Options.MaxDimension.
var ErrTooLarge = errors.New("image too large")

// DefaultMaxDimension bounds every side of every intermediate image when
// no limit is configured. width x height x 4 bytes must fit in memory.
const DefaultMaxDimension = 5000

// Result is a rendered derivative.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Renderer applies a style to source image bytes. focal is only consulted
// by focal effects.
type Renderer interface {
	Name() string
	Render(ctx context.Context, src []byte, s *style.Style, focal model.FocalPoint) (*Result, error)
	// Dimensions reads the size of an image without rendering it.
	Dimensions(src []byte) (int, int, error)
}

// Options are shared by both engines.
type Options struct {
	// Quality is the JPEG/WebP encoder quality (1-100).
	Quality int
	// Upscale lets Scale effects enlarge images.
	Upscale bool
	// MaxDimension bounds both sides of every planned resize and crop.
	// Zero or less means DefaultMaxDimension.
	MaxDimension int
}

// withDefaults fills in unset or out of range options. Both engine
// constructors call it, so a zero Options is always safe to render with.
func (o Options) withDefaults() Options {
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 85
	}
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	return o
}

// Engine names accepted by New.
const (
	EngineVips    = "vips"
	EngineImaging = "imaging"
)

// New returns the renderer for engine.
func New(engine string, opts Options) (Renderer, error) {
	switch engine {
	case EngineVips, "":
		return NewVipsRenderer(opts), nil
	case EngineImaging:
		return NewImagingRenderer(opts), nil
	default:
		return nil, fmt.Errorf("unknown render engine %q", engine)
	}
}

// ContentType sniffs the MIME type of data from its magic bytes.
// Unknown data yields "application/octet-stream".
func ContentType(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}

// IsImage reports whether data starts with the magic bytes of an image.
func IsImage(data []byte) bool {
	return filetype.IsImage(data)
}

// CheckPlan rejects ops that would allocate an image with a side above
// maxDimension. Cover scaling can blow up an extreme aspect ratio far past
// the style's own width and height, so the style alone cannot be trusted.
func CheckPlan(ops []Op, maxDimension int) error {
	if maxDimension <= 0 {
		return nil
	}
	for _, op := range ops {
		if op.Width > maxDimension || op.Height > maxDimension {
			return fmt.Errorf("%w: %s to %dx%d exceeds %d", ErrTooLarge, op.Type, op.Width, op.Height, maxDimension)
		}
	}
	return nil
}

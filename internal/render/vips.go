package render

import (
	"context"
	"fmt"

	"github.com/h2non/bimg"

	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/style"
)

// VipsRenderer renders with bimg, the Go binding for libvips. It is the
// fast engine, at the cost of needing libvips on the host.
type VipsRenderer struct {
	opts Options
}

// NewVipsRenderer creates a libvips-backed renderer.
func NewVipsRenderer(opts Options) *VipsRenderer {
	return &VipsRenderer{opts: opts.withDefaults()}
}

func (r *VipsRenderer) Name() string {
	return EngineVips
}

func (r *VipsRenderer) Dimensions(src []byte) (int, int, error) {
	size, err := bimg.Size(src)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return size.Width, size.Height, nil
}

// Render runs the planned operations one bimg.Process call at a time.
// Every call decodes and re-encodes; chains are short, so simplicity wins
// over building a single libvips pipeline.
func (r *VipsRenderer) Render(ctx context.Context, src []byte, s *style.Style, focal model.FocalPoint) (*Result, error) {
	width, height, err := r.Dimensions(src)
	if err != nil {
		return nil, err
	}

	srcType := bimg.DetermineImageType(src)
	outType := srcType
	if !bimg.IsTypeSupportedSave(outType) {
		outType = bimg.PNG
	}

	ops := Plan(width, height, s, focal, r.opts.Upscale)
	if err := CheckPlan(ops, r.opts.MaxDimension); err != nil {
		return nil, err
	}
	buf := src
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// bimg.Options is a struct with many fields; only the ones set
		// matter. Force ignores the aspect ratio, the Area fields extract.
		o := bimg.Options{Type: outType, Quality: r.opts.Quality}
		switch op.Type {
		case OpResize:
			o.Width, o.Height = op.Width, op.Height
			o.Force, o.Enlarge = true, true
		case OpCrop:
			o.Left, o.Top = op.X, op.Y
			o.AreaWidth, o.AreaHeight = op.Width, op.Height
		}

		buf, err = bimg.NewImage(buf).Process(o)
		if err != nil {
			return nil, fmt.Errorf("vips %s to %dx%d: %w", op.Type, op.Width, op.Height, err)
		}
	}

	if len(ops) == 0 && outType != srcType {
		if buf, err = bimg.NewImage(buf).Convert(outType); err != nil {
			return nil, fmt.Errorf("converting to %s: %w", bimg.ImageTypeName(outType), err)
		}
	}

	outW, outH := Size(width, height, ops)
	return &Result{
		Data:        buf,
		ContentType: ContentType(buf),
		Width:       outW,
		Height:      outH,
	}, nil
}

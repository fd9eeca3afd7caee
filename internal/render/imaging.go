package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF for image.DecodeConfig
	_ "image/jpeg" // register JPEG for image.DecodeConfig
	_ "image/png"  // register PNG for image.DecodeConfig

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoding

	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/style"
)

// ImagingRenderer is the pure-Go engine built on disintegration/imaging.
// It needs no system libraries, which makes it the engine for tests and
// minimal containers. WebP sources are decoded but written back as PNG,
// since there is no pure-Go WebP encoder.
type ImagingRenderer struct {
	opts Options
}

// NewImagingRenderer creates a pure-Go renderer.
func NewImagingRenderer(opts Options) *ImagingRenderer {
	return &ImagingRenderer{opts: opts.withDefaults()}
}

func (r *ImagingRenderer) Name() string {
	return EngineImaging
}

func (r *ImagingRenderer) Dimensions(src []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return cfg.Width, cfg.Height, nil
}

func (r *ImagingRenderer) Render(ctx context.Context, src []byte, s *style.Style, focal model.FocalPoint) (*Result, error) {
	_, formatName, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	format, err := imaging.FormatFromExtension(formatName)
	if err != nil {
		format = imaging.PNG
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	bounds := img.Bounds()
	ops := Plan(bounds.Dx(), bounds.Dy(), s, focal, r.opts.Upscale)
	if err := CheckPlan(ops, r.opts.MaxDimension); err != nil {
		return nil, err
	}
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img = applyOp(img, op)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(r.opts.Quality)); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", format, err)
	}
	data := buf.Bytes()
	return &Result{
		Data:        data,
		ContentType: ContentType(data),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}, nil
}

func applyOp(img image.Image, op Op) image.Image {
	switch op.Type {
	case OpCrop:
		return imaging.Crop(img, image.Rect(op.X, op.Y, op.X+op.Width, op.Y+op.Height))
	default:
		return imaging.Resize(img, op.Width, op.Height, imaging.Lanczos)
	}
}

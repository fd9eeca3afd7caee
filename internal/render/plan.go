// Package render executes a style's effect chain on image bytes.
//
// The geometry lives in Plan, which turns effects into plain resize and
// crop operations. Engines only know how to resize and crop; they never
// look at effects themselves, so both engines produce identical sizes and
// the geometry is tested without any codec.
package render

import (
	"math"

	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/style"
)

// OpType is a primitive image operation.
type OpType int

const (
	OpResize OpType = iota
	OpCrop
)

func (t OpType) String() string {
	if t == OpCrop {
		return "crop"
	}
	return "resize"
}

// Op is one primitive operation. Resize uses Width and Height; crop also
// uses the top-left offset X, Y.
type Op struct {
	Type   OpType
	X, Y   int
	Width  int
	Height int
}

// Plan converts the effects of s into operations for a srcW x srcH image.
// Effects run in order, each on the output of the previous one. Incomplete
// effects, and effects with a zero target size, are skipped. upscale
// allows Scale to enlarge images; every other effect enlarges as needed.
func Plan(srcW, srcH int, s *style.Style, focal model.FocalPoint, upscale bool) []Op {
	p := planner{w: srcW, h: srcH, focal: focal.Clamp(), upscale: upscale}
	if s == nil || srcW <= 0 || srcH <= 0 {
		return nil
	}
	for _, e := range s.Effects() {
		if !e.Complete() {
			continue
		}
		p.apply(e)
	}
	return p.ops
}

// Size returns the dimensions after running ops on a srcW x srcH image.
func Size(srcW, srcH int, ops []Op) (int, int) {
	w, h := srcW, srcH
	for _, op := range ops {
		w, h = op.Width, op.Height
	}
	return w, h
}

type planner struct {
	w, h    int
	focal   model.FocalPoint
	upscale bool
	ops     []Op
}

func (p *planner) apply(e style.Effect) {
	width, _ := e.Width()
	height, _ := e.Height()
	anchor, _ := e.Anchor()

	switch e.Kind() {
	case style.KindResize:
		p.resizeExact(width, height)
	case style.KindScale:
		p.scale(width, height)
	case style.KindCrop:
		p.anchorCrop(width, height, anchor)
	case style.KindScaleAndCrop:
		if width > 0 && height > 0 {
			p.cover(width, height)
			p.anchorCrop(width, height, anchor)
		}
	case style.KindFocalScaleAndCrop:
		if width > 0 && height > 0 {
			p.cover(width, height)
			p.crop(focalOffset(p.focal.X, p.w, width), focalOffset(p.focal.Y, p.h, height), width, height)
		}
	case style.KindFocalCropByWidth:
		if width > 0 && p.w > width {
			p.crop(focalOffset(p.focal.X, p.w, width), 0, width, p.h)
		}
	}
}

// resizeExact resizes to width x height; a zero axis keeps the current size.
func (p *planner) resizeExact(width, height int) {
	if width == 0 {
		width = p.w
	}
	if height == 0 {
		height = p.h
	}
	p.resize(width, height)
}

// scale fits the image inside width x height keeping its aspect ratio. A
// zero axis is unconstrained.
func (p *planner) scale(width, height int) {
	var ratio float64
	switch {
	case width > 0 && height > 0:
		ratio = math.Min(float64(width)/float64(p.w), float64(height)/float64(p.h))
	case width > 0:
		ratio = float64(width) / float64(p.w)
	case height > 0:
		ratio = float64(height) / float64(p.h)
	default:
		return
	}
	if ratio > 1 && !p.upscale {
		return
	}
	p.resize(scaled(p.w, ratio), scaled(p.h, ratio))
}

// cover scales the image so it fully covers width x height.
func (p *planner) cover(width, height int) {
	ratio := math.Max(float64(width)/float64(p.w), float64(height)/float64(p.h))
	p.resize(scaled(p.w, ratio), scaled(p.h, ratio))
}

func (p *planner) anchorCrop(width, height int, anchor style.Anchor) {
	if width <= 0 || height <= 0 {
		return
	}
	width, height = min(width, p.w), min(height, p.h)
	x := alignOffset(anchor.Horizontal(), p.w, width)
	y := alignOffset(anchor.Vertical(), p.h, height)
	p.crop(x, y, width, height)
}

func (p *planner) resize(width, height int) {
	if width == p.w && height == p.h {
		return
	}
	p.ops = append(p.ops, Op{Type: OpResize, Width: width, Height: height})
	p.w, p.h = width, height
}

func (p *planner) crop(x, y, width, height int) {
	width, height = min(width, p.w), min(height, p.h)
	if x == 0 && y == 0 && width == p.w && height == p.h {
		return
	}
	p.ops = append(p.ops, Op{Type: OpCrop, X: x, Y: y, Width: width, Height: height})
	p.w, p.h = width, height
}

func scaled(v int, ratio float64) int {
	return max(1, int(math.Round(float64(v)*ratio)))
}

func alignOffset(align, size, target int) int {
	switch align {
	case style.AlignCenter:
		return int(math.Round(float64(size-target) / 2))
	case style.AlignEnd:
		return size - target
	default:
		return 0
	}
}

// focalOffset centres a target-long window on percent of size, keeping the
// window inside the image.
func focalOffset(percent float64, size, target int) int {
	if target >= size {
		return 0
	}
	center := percent / 100 * float64(size)
	offset := int(math.Round(center - float64(target)/2))
	return max(0, min(offset, size-target))
}

package style

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is returned by builders when required dimensions are
// missing or an anchor is not recognised. Always caller-fixable.
var ErrInvalidArgument = errors.New("invalid argument")

// Style is an ordered chain of effects, at most one per kind. Insertion
// order is application order. The zero value is an empty, usable style.
//
// A Style is built and read within a single request; it is not safe for
// concurrent mutation.
type Style struct {
	effects []Effect
}

// New returns an empty style.
func New() *Style {
	return &Style{}
}

// put replaces the effect of the same kind in place, or appends it.
func (s *Style) put(e Effect) {
	for i := range s.effects {
		if s.effects[i].kind == e.kind {
			s.effects[i] = e
			return
		}
	}
	s.effects = append(s.effects, e)
}

// Resize sets an exact-size resize. Negative values are stored as zero.
func (s *Style) Resize(width, height int) *Style {
	e := Effect{kind: KindResize}
	e = e.set(PropWidth, nonNegative(width))
	e = e.set(PropHeight, nonNegative(height))
	s.put(e)
	return s
}

// Scale sets an aspect-preserving scale. At least one axis must be
// non-zero; a zero axis is left out of the effect.
func (s *Style) Scale(width, height int) error {
	width, height = nonNegative(width), nonNegative(height)
	if width == 0 && height == 0 {
		return fmt.Errorf("%w: width or height must be set", ErrInvalidArgument)
	}
	e := Effect{kind: KindScale}
	if width > 0 {
		e = e.set(PropWidth, width)
	}
	if height > 0 {
		e = e.set(PropHeight, height)
	}
	s.put(e)
	return nil
}

// Crop sets a crop of width x height positioned by anchor, given as a full
// label such as "left-top". An empty anchor means "center-center".
func (s *Style) Crop(width, height int, anchor string) error {
	e, err := anchoredEffect(KindCrop, width, height, anchor)
	if err != nil {
		return err
	}
	s.put(e)
	return nil
}

// ScaleAndCrop scales to cover width x height, then crops at anchor.
// Same contract as Crop.
func (s *Style) ScaleAndCrop(width, height int, anchor string) error {
	e, err := anchoredEffect(KindScaleAndCrop, width, height, anchor)
	if err != nil {
		return err
	}
	s.put(e)
	return nil
}

// FocalScaleAndCrop scales to cover width x height and crops around the
// image focal point.
func (s *Style) FocalScaleAndCrop(width, height int) *Style {
	e := Effect{kind: KindFocalScaleAndCrop}
	e = e.set(PropWidth, nonNegative(width))
	e = e.set(PropHeight, nonNegative(height))
	s.put(e)
	return s
}

// FocalCropByWidth crops to width around the focal point.
func (s *Style) FocalCropByWidth(width int) *Style {
	e := Effect{kind: KindFocalCropByWidth}
	e = e.set(PropWidth, nonNegative(width))
	s.put(e)
	return s
}

// Auto picks the effect that best fits the given bounds: a focal
// scale-and-crop when both are set, otherwise a scale on the given axis.
func (s *Style) Auto(width, height int) error {
	width, height = nonNegative(width), nonNegative(height)
	switch {
	case width == 0 && height == 0:
		return fmt.Errorf("%w: width or height must be set", ErrInvalidArgument)
	case width > 0 && height > 0:
		s.FocalScaleAndCrop(width, height)
		return nil
	default:
		return s.Scale(width, height)
	}
}

func anchoredEffect(kind Kind, width, height int, anchor string) (Effect, error) {
	a, err := ParseAnchor(anchor)
	if err != nil {
		return Effect{}, err
	}
	width, height = nonNegative(width), nonNegative(height)
	if width == 0 || height == 0 {
		return Effect{}, fmt.Errorf("%w: %s requires width and height", ErrInvalidArgument, kind.Label())
	}
	e := Effect{kind: kind}
	e = e.set(PropWidth, width)
	e = e.set(PropHeight, height)
	e = e.set(PropAnchor, int(a))
	return e, nil
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// Effects returns the configured effects in application order.
func (s *Style) Effects() []Effect {
	out := make([]Effect, len(s.effects))
	copy(out, s.effects)
	return out
}

// Effect returns the effect of the given kind, if configured.
func (s *Style) Effect(k Kind) (Effect, bool) {
	for _, e := range s.effects {
		if e.kind == k {
			return e, true
		}
	}
	return Effect{}, false
}

// EffectCount returns the number of configured effect kinds.
func (s *Style) EffectCount() int {
	return len(s.effects)
}

// HasEffectKinds reports whether any configured kind is in kinds.
func (s *Style) HasEffectKinds(kinds ...Kind) bool {
	for _, e := range s.effects {
		for _, k := range kinds {
			if e.kind == k {
				return true
			}
		}
	}
	return false
}

// Width returns the smallest non-zero width across all effects. When
// several effects bound the same axis the rendered image never exceeds the
// tightest one.
func (s *Style) Width() (int, bool) {
	return s.tightest(Effect.Width)
}

// Height returns the smallest non-zero height across all effects.
func (s *Style) Height() (int, bool) {
	return s.tightest(Effect.Height)
}

// Largest returns the biggest width or height any effect asks for, or 0
// when no effect sets a size.
func (s *Style) Largest() int {
	largest := 0
	for _, e := range s.effects {
		if w, ok := e.Width(); ok {
			largest = max(largest, w)
		}
		if h, ok := e.Height(); ok {
			largest = max(largest, h)
		}
	}
	return largest
}

func (s *Style) tightest(get func(Effect) (int, bool)) (int, bool) {
	best, found := 0, false
	for _, e := range s.effects {
		v, ok := get(e)
		if !ok || v == 0 {
			continue
		}
		if !found || v < best {
			best, found = v, true
		}
	}
	return best, found
}

// Label returns a human readable summary, e.g.
// "Scale (width: 800) Crop (width: 400 | height: 300 | anchor: center-center)".
func (s *Style) Label() string {
	labels := make([]string, len(s.effects))
	for i, e := range s.effects {
		labels[i] = e.Label()
	}
	return strings.Join(labels, " ")
}

// Equal reports whether both styles hold the same effects, in the same
// order, with the same property values.
func (s *Style) Equal(o *Style) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.effects) != len(o.effects) {
		return false
	}
	for i := range s.effects {
		if !s.effects[i].equal(o.effects[i]) {
			return false
		}
	}
	return true
}

func (s *Style) String() string {
	return s.Encode()
}

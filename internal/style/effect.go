package style

import (
	"strconv"
	"strings"
)

// Effect is one transformation step. Only the properties recorded in props
// are present; their order is the order they were set, which is also the
// order they are encoded in.
type Effect struct {
	kind   Kind
	width  int
	height int
	anchor Anchor
	props  []Property
}

// Kind returns the effect type.
func (e Effect) Kind() Kind {
	return e.kind
}

// Has reports whether property p is present.
func (e Effect) Has(p Property) bool {
	for _, q := range e.props {
		if q == p {
			return true
		}
	}
	return false
}

// Properties returns the present properties in encoding order.
func (e Effect) Properties() []Property {
	out := make([]Property, len(e.props))
	copy(out, e.props)
	return out
}

// Width returns the width and whether it is present.
func (e Effect) Width() (int, bool) {
	return e.width, e.Has(PropWidth)
}

// Height returns the height and whether it is present.
func (e Effect) Height() (int, bool) {
	return e.height, e.Has(PropHeight)
}

// Anchor returns the anchor and whether it is present.
func (e Effect) Anchor() (Anchor, bool) {
	return e.anchor, e.Has(PropAnchor)
}

// Complete reports whether every property the kind requires is present.
// Renderers skip incomplete effects.
func (e Effect) Complete() bool {
	for _, p := range kindTable[e.kind].requires {
		if !e.Has(p) {
			return false
		}
	}
	return true
}

// Label renders "Crop (width: 100 | height: 50 | anchor: left-top)".
func (e Effect) Label() string {
	if len(e.props) == 0 {
		return e.kind.Label()
	}
	parts := make([]string, 0, len(e.props))
	for _, p := range e.props {
		parts = append(parts, p.Name()+": "+e.labelValue(p))
	}
	return e.kind.Label() + " (" + strings.Join(parts, " | ") + ")"
}

func (e Effect) set(p Property, v int) Effect {
	switch p {
	case PropWidth:
		e.width = v
	case PropHeight:
		e.height = v
	case PropAnchor:
		e.anchor = Anchor(v)
	}
	if !e.Has(p) {
		props := make([]Property, len(e.props), len(e.props)+1)
		copy(props, e.props)
		e.props = append(props, p)
	}
	return e
}

// value returns the identifier form of property p.
func (e Effect) value(p Property) string {
	switch p {
	case PropWidth:
		return strconv.Itoa(e.width)
	case PropHeight:
		return strconv.Itoa(e.height)
	case PropAnchor:
		return e.anchor.Key()
	}
	return ""
}

func (e Effect) labelValue(p Property) string {
	if p == PropAnchor {
		return e.anchor.Label()
	}
	return e.value(p)
}

func (e Effect) equal(o Effect) bool {
	if e.kind != o.kind || len(e.props) != len(o.props) {
		return false
	}
	for i, p := range e.props {
		if o.props[i] != p || e.value(p) != o.value(p) {
			return false
		}
	}
	return true
}

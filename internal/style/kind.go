// Package style implements neo image styles: an ordered chain of image
// effects and its compact, URL-safe identifier ("neo-f--w-640_h-480").
//
// The identifier is the only persistent form of a style. It names the
// derivative directory on disk and appears in derivative URLs, so the
// encoding is bit-exact and must not change.
package style

// Kind identifies an effect type. Go has no enums; the typed constants below
// are paired with a lookup table so every kind has a short key, a machine
// name and a display label.
type Kind int

const (
	KindResize Kind = iota
	KindScale
	KindCrop
	KindScaleAndCrop
	KindFocalScaleAndCrop
	KindFocalCropByWidth
)

type kindInfo struct {
	key      string
	name     string
	label    string
	allows   []Property
	requires []Property
}

var kindTable = [...]kindInfo{
	KindResize: {
		key: "r", name: "image_resize", label: "Resize",
		allows: []Property{PropWidth, PropHeight},
	},
	KindScale: {
		key: "s", name: "image_scale", label: "Scale",
		allows: []Property{PropWidth, PropHeight},
	},
	KindCrop: {
		key: "c", name: "image_crop", label: "Crop",
		allows:   []Property{PropWidth, PropHeight, PropAnchor},
		requires: []Property{PropWidth, PropHeight, PropAnchor},
	},
	KindScaleAndCrop: {
		key: "sc", name: "image_scale_and_crop", label: "Scale and Crop",
		allows:   []Property{PropWidth, PropHeight, PropAnchor},
		requires: []Property{PropWidth, PropHeight, PropAnchor},
	},
	KindFocalScaleAndCrop: {
		key: "f", name: "focal_point_scale_and_crop", label: "Focal Scale and Crop",
		allows:   []Property{PropWidth, PropHeight},
		requires: []Property{PropWidth, PropHeight},
	},
	KindFocalCropByWidth: {
		key: "fw", name: "focal_point_crop_by_width", label: "Focal Scale by Width",
		allows:   []Property{PropWidth},
		requires: []Property{PropWidth},
	},
}

// AllKinds lists every kind in declaration order.
var AllKinds = []Kind{
	KindResize,
	KindScale,
	KindCrop,
	KindScaleAndCrop,
	KindFocalScaleAndCrop,
	KindFocalCropByWidth,
}

var kindsByKey = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTable))
	for k, info := range kindTable {
		m[info.key] = Kind(k)
	}
	return m
}()

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(kindTable)
}

// Key returns the short identifier key ("r", "s", "c", "sc", "f", "fw").
func (k Kind) Key() string {
	if !k.Valid() {
		return ""
	}
	return kindTable[k].key
}

// Name returns the machine name of the effect, e.g. "image_scale".
func (k Kind) Name() string {
	if !k.Valid() {
		return ""
	}
	return kindTable[k].name
}

// Label returns the human readable effect name.
func (k Kind) Label() string {
	if !k.Valid() {
		return ""
	}
	return kindTable[k].label
}

func (k Kind) String() string {
	return k.Name()
}

// Allows reports whether an effect of this kind may carry property p.
func (k Kind) Allows(p Property) bool {
	if !k.Valid() {
		return false
	}
	for _, a := range kindTable[k].allows {
		if a == p {
			return true
		}
	}
	return false
}

// Requires reports whether property p must be present for the effect to
// be applied.
func (k Kind) Requires(p Property) bool {
	if !k.Valid() {
		return false
	}
	for _, r := range kindTable[k].requires {
		if r == p {
			return true
		}
	}
	return false
}

// KindFromKey looks up a kind by its short key.
func KindFromKey(key string) (Kind, bool) {
	k, ok := kindsByKey[key]
	return k, ok
}

// ParseKinds converts short keys into kinds, skipping unknown keys.
// Used for "?kinds=f,s" style filters.
func ParseKinds(keys []string) []Kind {
	kinds := make([]Kind, 0, len(keys))
	for _, key := range keys {
		if k, ok := KindFromKey(key); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Property is one of the fixed effect property names.
type Property int

const (
	PropWidth Property = iota
	PropHeight
	PropAnchor
)

var propertyTable = [...]struct {
	key  string
	name string
}{
	PropWidth:  {key: "w", name: "width"},
	PropHeight: {key: "h", name: "height"},
	PropAnchor: {key: "a", name: "anchor"},
}

var propertiesByKey = func() map[string]Property {
	m := make(map[string]Property, len(propertyTable))
	for p, info := range propertyTable {
		m[info.key] = Property(p)
	}
	return m
}()

// Valid reports whether p is one of the declared properties.
func (p Property) Valid() bool {
	return p >= 0 && int(p) < len(propertyTable)
}

// Key returns the short identifier key ("w", "h", "a").
func (p Property) Key() string {
	if !p.Valid() {
		return ""
	}
	return propertyTable[p].key
}

// Name returns the full property name ("width", "height", "anchor").
func (p Property) Name() string {
	if !p.Valid() {
		return ""
	}
	return propertyTable[p].name
}

func (p Property) String() string {
	return p.Name()
}

// PropertyFromKey looks up a property by its short key.
func PropertyFromKey(key string) (Property, bool) {
	p, ok := propertiesByKey[key]
	return p, ok
}

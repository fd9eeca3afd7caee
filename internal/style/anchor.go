package style

import "fmt"

// Anchor is one of the nine crop positions.
type Anchor int

const (
	AnchorLeftTop Anchor = iota
	AnchorCenterTop
	AnchorRightTop
	AnchorLeftCenter
	AnchorCenterCenter
	AnchorRightCenter
	AnchorLeftBottom
	AnchorCenterBottom
	AnchorRightBottom
)

// Horizontal and vertical components of an anchor.
const (
	AlignStart  = 0
	AlignCenter = 1
	AlignEnd    = 2
)

var anchorTable = [...]struct {
	key   string
	label string
}{
	AnchorLeftTop:      {key: "lt", label: "left-top"},
	AnchorCenterTop:    {key: "ct", label: "center-top"},
	AnchorRightTop:     {key: "rt", label: "right-top"},
	AnchorLeftCenter:   {key: "l", label: "left-center"},
	AnchorCenterCenter: {key: "c", label: "center-center"},
	AnchorRightCenter:  {key: "r", label: "right-center"},
	AnchorLeftBottom:   {key: "lb", label: "left-bottom"},
	AnchorCenterBottom: {key: "cb", label: "center-bottom"},
	AnchorRightBottom:  {key: "rb", label: "right-bottom"},
}

// DefaultAnchor is used by Crop and ScaleAndCrop when no anchor is given.
const DefaultAnchor = AnchorCenterCenter

var (
	anchorsByKey   = make(map[string]Anchor, len(anchorTable))
	anchorsByLabel = make(map[string]Anchor, len(anchorTable))
)

func init() {
	for a, info := range anchorTable {
		anchorsByKey[info.key] = Anchor(a)
		anchorsByLabel[info.label] = Anchor(a)
	}
}

// Valid reports whether a is one of the nine declared anchors.
func (a Anchor) Valid() bool {
	return a >= 0 && int(a) < len(anchorTable)
}

// Key returns the abbreviated identifier form ("lt", "c", ...).
func (a Anchor) Key() string {
	if !a.Valid() {
		return ""
	}
	return anchorTable[a].key
}

// Label returns the full form ("left-top", "center-center", ...).
func (a Anchor) Label() string {
	if !a.Valid() {
		return ""
	}
	return anchorTable[a].label
}

func (a Anchor) String() string {
	return a.Label()
}

// Horizontal returns AlignStart (left), AlignCenter or AlignEnd (right).
func (a Anchor) Horizontal() int {
	return int(a) % 3
}

// Vertical returns AlignStart (top), AlignCenter or AlignEnd (bottom).
func (a Anchor) Vertical() int {
	return int(a) / 3
}

// ParseAnchor converts a full anchor label such as "left-top" into an
// Anchor. An empty label yields DefaultAnchor.
func ParseAnchor(label string) (Anchor, error) {
	if label == "" {
		return DefaultAnchor, nil
	}
	a, ok := anchorsByLabel[label]
	if !ok {
		return 0, fmt.Errorf("%w: invalid anchor %q", ErrInvalidArgument, label)
	}
	return a, nil
}

// AnchorFromKey looks up an anchor by its abbreviated key.
func AnchorFromKey(key string) (Anchor, bool) {
	a, ok := anchorsByKey[key]
	return a, ok
}

// AnchorLabels returns every anchor label in table order.
func AnchorLabels() []string {
	labels := make([]string, len(anchorTable))
	for i, info := range anchorTable {
		labels[i] = info.label
	}
	return labels
}

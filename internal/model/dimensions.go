package model

import (
	"fmt"

	"github.com/jacerider/neo-image/internal/style"
)

// Dimensions are the requested bounds for one breakpoint. Zero means the
// axis is unconstrained. The mapstructure tags let viper decode
// picture.dimensions straight into a DimensionSet.
type Dimensions struct {
	Width  int `json:"width,omitempty" mapstructure:"width"`
	Height int `json:"height,omitempty" mapstructure:"height"`
}

// IsZero reports whether neither axis is set.
func (d Dimensions) IsZero() bool {
	return d.Width <= 0 && d.Height <= 0
}

// DimensionSet maps breakpoint sizes to dimensions. Keys that are not
// breakpoints are ignored wherever a set is consumed.
type DimensionSet map[string]Dimensions

// SummarizeDimensions describes a set one line per configured breakpoint,
// in breakpoint order: "Medium: 800x600", "Default: 640w", "Large: 300h".
func SummarizeDimensions(set DimensionSet) []string {
	var summary []string
	for _, bp := range breakpoints {
		d, ok := set[bp.Size]
		if !ok || d.IsZero() {
			continue
		}
		switch {
		case d.Width > 0 && d.Height > 0:
			summary = append(summary, fmt.Sprintf("%s: %dx%d", bp.Label, d.Width, d.Height))
		case d.Width > 0:
			summary = append(summary, fmt.Sprintf("%s: %dw", bp.Label, d.Width))
		default:
			summary = append(summary, fmt.Sprintf("%s: %dh", bp.Label, d.Height))
		}
	}
	return summary
}

// DimensionsFromStyle recovers the bounds a style identifier was built
// from. Used to turn a style picked from the size options back into
// dimensions.
func DimensionsFromStyle(id string) Dimensions {
	s := style.Decode(id)
	var d Dimensions
	if w, ok := s.Width(); ok {
		d.Width = w
	}
	if h, ok := s.Height(); ok {
		d.Height = h
	}
	return d
}

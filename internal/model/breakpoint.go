// Package model defines the data types shared across the image service:
// breakpoints and the dimensions configured for them, pictures (one style per
// breakpoint), and the records persisted in the SQLite catalog.
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidBreakpoint is returned when a size key is not one of the
// declared breakpoints.
var ErrInvalidBreakpoint = errors.New("invalid breakpoint")

// Breakpoint is one responsive size. Size is the short key used in config
// and URLs ("sm", "md", ...), Media is the CSS media query the <source>
// element gets.
type Breakpoint struct {
	Size  string `json:"size"`
	Label string `json:"label"`
	Media string `json:"media"`
}

// DefaultBreakpoint is the size every picture renders, whatever else is
// configured.
const DefaultBreakpoint = "sm"

// breakpoints is ordered from smallest to largest. Go has no ordered map, so
// the table is a slice and lookups go through breakpointIndex.
var breakpoints = []Breakpoint{
	{Size: "sm", Label: "Default", Media: "all"},
	{Size: "md", Label: "Medium", Media: "(min-width: 640px)"},
	{Size: "lg", Label: "Large", Media: "(min-width: 768px)"},
	{Size: "xl", Label: "Extra Large", Media: "(min-width: 1024px)"},
	{Size: "2xl", Label: "2x Large", Media: "(min-width: 1280px)"},
}

// Breakpoints returns a copy of the breakpoint table in order.
func Breakpoints() []Breakpoint {
	out := make([]Breakpoint, len(breakpoints))
	copy(out, breakpoints)
	return out
}

// LookupBreakpoint returns the breakpoint for size.
func LookupBreakpoint(size string) (Breakpoint, error) {
	i := breakpointIndex(size)
	if i < 0 {
		return Breakpoint{}, fmt.Errorf("%w: %q", ErrInvalidBreakpoint, size)
	}
	return breakpoints[i], nil
}

// ValidBreakpoint checks if a string is a declared breakpoint size.
func ValidBreakpoint(size string) bool {
	return breakpointIndex(size) >= 0
}

func breakpointIndex(size string) int {
	for i, bp := range breakpoints {
		if bp.Size == size {
			return i
		}
	}
	return -1
}

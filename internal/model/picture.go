package model

import (
	"github.com/jacerider/neo-image/internal/style"
)

// Picture is a source image plus one optional style per breakpoint. It
// renders as a <picture> element: one <source> per configured breakpoint
// and an <img> fallback using the default breakpoint.
//
// The default breakpoint always has a style, even if it carries no effects.
type Picture struct {
	URI   string
	Alt   string
	Title string

	styles map[string]*style.Style
}

// NewPicture creates a picture for uri with an empty default style.
func NewPicture(uri, alt, title string) *Picture {
	return &Picture{
		URI:    uri,
		Alt:    alt,
		Title:  title,
		styles: map[string]*style.Style{DefaultBreakpoint: style.New()},
	}
}

// Style returns the style for size, creating an empty one on first use.
// The returned pointer is live: builder calls on it configure the picture.
func (p *Picture) Style(size string) (*style.Style, error) {
	if _, err := LookupBreakpoint(size); err != nil {
		return nil, err
	}
	if p.styles == nil {
		p.styles = make(map[string]*style.Style)
	}
	s, ok := p.styles[size]
	if !ok {
		s = style.New()
		p.styles[size] = s
	}
	return s, nil
}

// SetStyle replaces the style for size.
func (p *Picture) SetStyle(size string, s *style.Style) error {
	if _, err := LookupBreakpoint(size); err != nil {
		return err
	}
	if p.styles == nil {
		p.styles = make(map[string]*style.Style)
	}
	p.styles[size] = s
	return nil
}

// ClearStyle removes the style for size. Unknown sizes are a no-op.
func (p *Picture) ClearStyle(size string) *Picture {
	delete(p.styles, size)
	return p
}

// SizedStyle pairs a breakpoint with its configured style.
type SizedStyle struct {
	Breakpoint Breakpoint
	Style      *style.Style
}

// Styles returns the configured styles in breakpoint order.
func (p *Picture) Styles() []SizedStyle {
	var out []SizedStyle
	for _, bp := range breakpoints {
		if s, ok := p.styles[bp.Size]; ok && s != nil {
			out = append(out, SizedStyle{Breakpoint: bp, Style: s})
		}
	}
	return out
}

// AutoFromDimensions runs style.Auto for every breakpoint in set that has
// at least one axis. Keys that are not breakpoints are skipped. The first
// builder error is returned; styles configured before it are kept.
func (p *Picture) AutoFromDimensions(set DimensionSet) error {
	for _, bp := range breakpoints {
		d, ok := set[bp.Size]
		if !ok || d.IsZero() {
			continue
		}
		s, err := p.Style(bp.Size)
		if err != nil {
			return err
		}
		if err := s.Auto(d.Width, d.Height); err != nil {
			return err
		}
	}
	return nil
}

// MediaQuery returns the CSS media query for size.
func (p *Picture) MediaQuery(size string) (string, error) {
	bp, err := LookupBreakpoint(size)
	if err != nil {
		return "", err
	}
	return bp.Media, nil
}

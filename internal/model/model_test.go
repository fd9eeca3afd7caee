package model

import (
	"errors"
	"reflect"
	"testing"
)

func TestBreakpoints_Order(t *testing.T) {
	want := []string{"sm", "md", "lg", "xl", "2xl"}
	bps := Breakpoints()
	if len(bps) != len(want) {
		t.Fatalf("expected %d breakpoints, got %d", len(want), len(bps))
	}
	for i, bp := range bps {
		if bp.Size != want[i] {
			t.Errorf("breakpoint %d = %q, want %q", i, bp.Size, want[i])
		}
	}
	if bps[0].Media != "all" || bps[1].Media != "(min-width: 640px)" {
		t.Errorf("unexpected media queries: %+v", bps[:2])
	}

	// The returned slice is a copy.
	bps[0].Label = "changed"
	if Breakpoints()[0].Label != "Default" {
		t.Error("Breakpoints() must not expose the internal table")
	}
}

func TestLookupBreakpoint(t *testing.T) {
	bp, err := LookupBreakpoint("xl")
	if err != nil {
		t.Fatalf("LookupBreakpoint: %v", err)
	}
	if bp.Label != "Extra Large" || bp.Media != "(min-width: 1024px)" {
		t.Errorf("unexpected breakpoint %+v", bp)
	}
	if _, err := LookupBreakpoint("3xl"); !errors.Is(err, ErrInvalidBreakpoint) {
		t.Errorf("expected ErrInvalidBreakpoint, got %v", err)
	}
}

func TestSummarizeDimensions(t *testing.T) {
	set := DimensionSet{
		"lg":    {Height: 300},
		"sm":    {Width: 640},
		"md":    {Width: 800, Height: 600},
		"xl":    {},
		"bogus": {Width: 10},
	}
	want := []string{"Default: 640w", "Medium: 800x600", "Large: 300h"}
	if got := SummarizeDimensions(set); !reflect.DeepEqual(got, want) {
		t.Errorf("SummarizeDimensions() = %v, want %v", got, want)
	}
	if got := SummarizeDimensions(nil); len(got) != 0 {
		t.Errorf("expected empty summary, got %v", got)
	}
}

func TestDimensionsFromStyle(t *testing.T) {
	tests := []struct {
		id   string
		want Dimensions
	}{
		{"neo-f--w-640_h-480", Dimensions{Width: 640, Height: 480}},
		{"neo-s--w-300", Dimensions{Width: 300}},
		{"neo-s--w-800~c--w-400_h-300_a-c", Dimensions{Width: 400, Height: 300}},
		{"not-a-style", Dimensions{}},
	}
	for _, tt := range tests {
		if got := DimensionsFromStyle(tt.id); got != tt.want {
			t.Errorf("DimensionsFromStyle(%q) = %+v, want %+v", tt.id, got, tt.want)
		}
	}
}

func TestPicture_DefaultStyleAlwaysPresent(t *testing.T) {
	p := NewPicture("public://cat.jpg", "A cat", "")
	styles := p.Styles()
	if len(styles) != 1 || styles[0].Breakpoint.Size != DefaultBreakpoint {
		t.Fatalf("expected only the default style, got %+v", styles)
	}
	if styles[0].Style.EffectCount() != 0 {
		t.Error("default style should start empty")
	}
}

func TestPicture_StyleLazilyCreated(t *testing.T) {
	p := NewPicture("public://cat.jpg", "", "")

	s, err := p.Style("lg")
	if err != nil {
		t.Fatalf("Style: %v", err)
	}
	if err := s.Scale(1024, 0); err != nil {
		t.Fatal(err)
	}
	again, _ := p.Style("lg")
	if again != s {
		t.Error("expected the same style on the second call")
	}
	if again.Encode() != "neo-s--w-1024" {
		t.Errorf("style not retained: %s", again)
	}

	if _, err := p.Style("huge"); !errors.Is(err, ErrInvalidBreakpoint) {
		t.Errorf("expected ErrInvalidBreakpoint, got %v", err)
	}
}

func TestPicture_ClearStyle(t *testing.T) {
	p := NewPicture("public://cat.jpg", "", "")
	if _, err := p.Style("md"); err != nil {
		t.Fatal(err)
	}
	p.ClearStyle("md").ClearStyle("unknown")
	if len(p.Styles()) != 1 {
		t.Errorf("expected md to be cleared, got %d styles", len(p.Styles()))
	}
}

func TestPicture_AutoFromDimensions(t *testing.T) {
	p := NewPicture("public://cat.jpg", "", "")
	err := p.AutoFromDimensions(DimensionSet{
		"sm":   {Width: 640},
		"lg":   {Width: 1024, Height: 768},
		"xl":   {},
		"nope": {Width: 1},
	})
	if err != nil {
		t.Fatalf("AutoFromDimensions: %v", err)
	}

	got := map[string]string{}
	for _, ss := range p.Styles() {
		got[ss.Breakpoint.Size] = ss.Style.Encode()
	}
	want := map[string]string{
		"sm": "neo-s--w-640",
		"lg": "neo-f--w-1024_h-768",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("styles = %v, want %v", got, want)
	}
}

func TestPicture_MediaQuery(t *testing.T) {
	p := NewPicture("public://cat.jpg", "", "")
	if mq, err := p.MediaQuery("2xl"); err != nil || mq != "(min-width: 1280px)" {
		t.Errorf("MediaQuery(2xl) = %q, %v", mq, err)
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		scheme  string
		path    string
		wantErr bool
	}{
		{"public://photos/cat.jpg", "public", "photos/cat.jpg", false},
		{"private:///a.png", "private", "a.png", false},
		{"https://example.com/a.png", "https", "example.com/a.png", false},
		{"cat.jpg", "", "", true},
		{"public://", "", "", true},
		{"://a.png", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			scheme, path, err := ParseURI(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURI) {
					t.Errorf("expected ErrInvalidURI, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURI: %v", err)
			}
			if scheme != tt.scheme || path != tt.path {
				t.Errorf("ParseURI = (%q, %q), want (%q, %q)", scheme, path, tt.scheme, tt.path)
			}
			if BuildURI(scheme, path) != tt.uri && tt.uri != "private:///a.png" {
				t.Errorf("BuildURI round trip = %q", BuildURI(scheme, path))
			}
		})
	}
}

func TestFocalPoint_Clamp(t *testing.T) {
	f := FocalPoint{X: -5, Y: 130}.Clamp()
	if f.X != 0 || f.Y != 100 {
		t.Errorf("Clamp() = (%v, %v)", f.X, f.Y)
	}
	c := CenterFocalPoint("public://a.jpg")
	if c.X != 50 || c.Y != 50 || c.Source != FocalSourceDefault {
		t.Errorf("unexpected centre %+v", c)
	}
}

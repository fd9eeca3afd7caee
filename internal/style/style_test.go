package style

import (
	"errors"
	"testing"
)

func TestScale(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		height  int
		want    string
		wantErr bool
	}{
		{"both zero", 0, 0, "", true},
		{"width only", 100, 0, "neo-s--w-100", false},
		{"height only", 0, 50, "neo-s--h-50", false},
		{"both", 100, 50, "neo-s--w-100_h-50", false},
		{"negative coerced", -10, 40, "neo-s--h-40", false},
		{"all negative", -1, -1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			err := s.Scale(tt.width, tt.height)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("Scale(%d, %d) error = %v, want ErrInvalidArgument", tt.width, tt.height, err)
				}
				if s.EffectCount() != 0 {
					t.Errorf("expected no effect after failed Scale, got %d", s.EffectCount())
				}
				return
			}
			if err != nil {
				t.Fatalf("Scale(%d, %d): %v", tt.width, tt.height, err)
			}
			if got := s.Encode(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScale_StoresOnlyGivenAxis(t *testing.T) {
	s := New()
	if err := s.Scale(100, 0); err != nil {
		t.Fatalf("Scale: %v", err)
	}
	e, ok := s.Effect(KindScale)
	if !ok {
		t.Fatal("expected scale effect")
	}
	if w, ok := e.Width(); !ok || w != 100 {
		t.Errorf("width = %d (present %v), want 100", w, ok)
	}
	if _, ok := e.Height(); ok {
		t.Error("expected height to be absent")
	}
}

func TestCrop(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		height  int
		anchor  string
		want    string
		wantErr bool
	}{
		{"bogus anchor", 100, 50, "bogus", "", true},
		{"left-top", 100, 50, "left-top", "neo-c--w-100_h-50_a-lt", false},
		{"default anchor", 100, 50, "", "neo-c--w-100_h-50_a-c", false},
		{"right-bottom", 10, 20, "right-bottom", "neo-c--w-10_h-20_a-rb", false},
		{"missing height", 100, 0, "left-top", "", true},
		{"abbreviated anchor rejected", 100, 50, "lt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			err := s.Crop(tt.width, tt.height, tt.anchor)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("Crop error = %v, want ErrInvalidArgument", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Crop: %v", err)
			}
			if got := s.Encode(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScaleAndCrop(t *testing.T) {
	s := New()
	if err := s.ScaleAndCrop(300, 200, "center-top"); err != nil {
		t.Fatalf("ScaleAndCrop: %v", err)
	}
	if got, want := s.Encode(), "neo-sc--w-300_h-200_a-ct"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
	if err := s.ScaleAndCrop(300, 200, "middle"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad anchor, got %v", err)
	}
}

func TestAuto(t *testing.T) {
	t.Run("both dimensions pick focal crop", func(t *testing.T) {
		got := New()
		if err := got.Auto(640, 480); err != nil {
			t.Fatalf("Auto: %v", err)
		}
		want := New().FocalScaleAndCrop(640, 480)
		if !got.Equal(want) {
			t.Errorf("Auto(640, 480) = %s, want %s", got, want)
		}
	})

	t.Run("single dimension picks scale", func(t *testing.T) {
		got := New()
		if err := got.Auto(640, 0); err != nil {
			t.Fatalf("Auto: %v", err)
		}
		want := New()
		if err := want.Scale(640, 0); err != nil {
			t.Fatalf("Scale: %v", err)
		}
		if !got.Equal(want) {
			t.Errorf("Auto(640, 0) = %s, want %s", got, want)
		}
	})

	t.Run("height only picks scale", func(t *testing.T) {
		got := New()
		if err := got.Auto(0, 300); err != nil {
			t.Fatalf("Auto: %v", err)
		}
		if got.Encode() != "neo-s--h-300" {
			t.Errorf("Auto(0, 300) = %s", got)
		}
	})

	t.Run("no dimensions fail", func(t *testing.T) {
		if err := New().Auto(0, 0); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestBuilder_ReplacesSameKind(t *testing.T) {
	s := New()
	if err := s.Scale(100, 0); err != nil {
		t.Fatal(err)
	}
	s.Resize(10, 10)
	if err := s.Scale(0, 50); err != nil {
		t.Fatal(err)
	}

	if s.EffectCount() != 2 {
		t.Fatalf("expected 2 effects, got %d", s.EffectCount())
	}
	// Scale keeps its original position and only the latest values.
	if got, want := s.Encode(), "neo-s--h-50~r--w-10_h-10"; got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestWidthHeight_Tightest(t *testing.T) {
	s := New()
	if err := s.Scale(800, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Crop(400, 300, "center-center"); err != nil {
		t.Fatal(err)
	}

	if w, ok := s.Width(); !ok || w != 400 {
		t.Errorf("Width() = %d, %v; want 400, true", w, ok)
	}
	if h, ok := s.Height(); !ok || h != 300 {
		t.Errorf("Height() = %d, %v; want 300, true", h, ok)
	}
}

func TestLargest(t *testing.T) {
	tests := []struct {
		id   string
		want int
	}{
		{"neo-s--w-800~c--w-400_h-300_a-c", 800},
		{"neo-r--w-50_h-50000", 50000},
		{"neo-s--h-120", 120},
		{"neo-s", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := Decode(tt.id).Largest(); got != tt.want {
			t.Errorf("Decode(%q).Largest() = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestWidthHeight_Absent(t *testing.T) {
	s := New()
	if _, ok := s.Width(); ok {
		t.Error("expected no width on empty style")
	}

	if err := s.Scale(0, 200); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Width(); ok {
		t.Error("expected no width when no effect constrains it")
	}

	// A zero resize axis does not count as a bound.
	s.Resize(0, 100)
	if _, ok := s.Width(); ok {
		t.Error("expected zero width to be ignored")
	}
	if h, _ := s.Height(); h != 100 {
		t.Errorf("Height() = %d, want 100", h)
	}
}

func TestHasEffectKinds(t *testing.T) {
	s := New().FocalScaleAndCrop(10, 10)
	if !s.HasEffectKinds(KindScale, KindFocalScaleAndCrop) {
		t.Error("expected intersection with focal kind")
	}
	if s.HasEffectKinds(KindScale, KindCrop) {
		t.Error("expected no intersection")
	}
	if s.HasEffectKinds() {
		t.Error("expected empty kind set to never match")
	}
}

func TestLabel(t *testing.T) {
	s := New().Resize(300, 200)
	if err := s.Crop(100, 50, "left-top"); err != nil {
		t.Fatal(err)
	}
	s.FocalCropByWidth(80)

	want := "Resize (width: 300 | height: 200) " +
		"Crop (width: 100 | height: 50 | anchor: left-top) " +
		"Focal Scale by Width (width: 80)"
	if got := s.Label(); got != want {
		t.Errorf("Label() =\n%q\nwant\n%q", got, want)
	}
	if got := New().Label(); got != "" {
		t.Errorf("empty Label() = %q", got)
	}
}

func TestKindTables(t *testing.T) {
	for _, k := range AllKinds {
		got, ok := KindFromKey(k.Key())
		if !ok || got != k {
			t.Errorf("KindFromKey(%q) = %v, %v; want %v", k.Key(), got, ok, k)
		}
		for _, p := range []Property{PropWidth, PropHeight, PropAnchor} {
			if k.Requires(p) && !k.Allows(p) {
				t.Errorf("%s requires %s but does not allow it", k, p)
			}
		}
	}
	if KindResize.Allows(PropAnchor) || KindScale.Allows(PropAnchor) {
		t.Error("resize and scale must not carry an anchor")
	}
	if KindFocalCropByWidth.Allows(PropHeight) {
		t.Error("focal crop by width only takes a width")
	}
}

func TestAnchorComponents(t *testing.T) {
	tests := []struct {
		anchor Anchor
		h, v   int
	}{
		{AnchorLeftTop, AlignStart, AlignStart},
		{AnchorCenterCenter, AlignCenter, AlignCenter},
		{AnchorRightCenter, AlignEnd, AlignCenter},
		{AnchorCenterBottom, AlignCenter, AlignEnd},
		{AnchorRightBottom, AlignEnd, AlignEnd},
	}
	for _, tt := range tests {
		if tt.anchor.Horizontal() != tt.h || tt.anchor.Vertical() != tt.v {
			t.Errorf("%s = (%d, %d), want (%d, %d)",
				tt.anchor, tt.anchor.Horizontal(), tt.anchor.Vertical(), tt.h, tt.v)
		}
	}
	if len(AnchorLabels()) != 9 {
		t.Errorf("expected 9 anchors, got %d", len(AnchorLabels()))
	}
}

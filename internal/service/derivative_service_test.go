package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/llm"
	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/provider"
	"github.com/jacerider/neo-image/internal/render"
	"github.com/jacerider/neo-image/internal/storage"
	"github.com/jacerider/neo-image/internal/style"
	"github.com/jacerider/neo-image/internal/telemetry"
)

// createTestPNG generates a small solid-color PNG image in memory.
func createTestPNG(width, height int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// countingRenderer wraps a real renderer and counts Render calls.
type countingRenderer struct {
	render.Renderer
	calls atomic.Int32
	delay time.Duration
}

func (c *countingRenderer) Render(ctx context.Context, src []byte, s *style.Style, focal model.FocalPoint) (*render.Result, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	return c.Renderer.Render(ctx, src, s, focal)
}

type fakeClient struct {
	calls atomic.Int32
}

func (f *fakeClient) FindFocalPoint(context.Context, []byte, string) (*llm.FocalPointResult, error) {
	f.calls.Add(1)
	return &llm.FocalPointResult{X: 0, Y: 0, Subject: "corner"}, nil
}
func (f *fakeClient) ProviderName() string { return "fake" }
func (f *fakeClient) ModelName() string    { return "fake-1" }

type testEnv struct {
	svc      *DerivativeService
	backend  *storage.FileSystem
	renderer *countingRenderer
	detector *fakeClient
	deps     Dependencies
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	sourceRoot := filepath.Join(dir, "files")
	if err := os.MkdirAll(filepath.Join(sourceRoot, "photos"), 0755); err != nil {
		t.Fatal(err)
	}
	src := createTestPNG(400, 200, color.RGBA{R: 255, A: 255})
	if err := os.WriteFile(filepath.Join(sourceRoot, "photos", "cat.png"), src, 0644); err != nil {
		t.Fatal(err)
	}

	backend, err := storage.NewFileSystem(filepath.Join(dir, "derivatives"))
	if err != nil {
		t.Fatalf("creating filesystem: %v", err)
	}
	db, err := storage.NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	renderer := &countingRenderer{Renderer: render.NewImagingRenderer(render.Options{Quality: 85})}
	derivatives := storage.NewDerivativeRepository(db)
	points := storage.NewFocalPointRepository(db)
	calls := storage.NewDetectionCallRepository(db)
	client := &fakeClient{}

	deps := Dependencies{
		Backend:     backend,
		Registry:    storage.NewRegistry([]storage.Backend{backend}, derivatives, logger),
		Derivatives: derivatives,
		FocalPoints: points,
		Calls:       calls,
		Sources:     provider.NewSources(provider.NewLocalSource(map[string]string{"public": sourceRoot})),
		Focal:       provider.NewFocalDetector([]llm.Client{client}, 0, points, calls, renderer.Renderer, logger),
		Renderer:    renderer,
		Metrics:     telemetry.New(),
		PublicURL:   "https://img.example.com/",
	}
	return &testEnv{
		svc:      NewDerivativeService(deps, logger),
		backend:  backend,
		renderer: renderer,
		detector: client,
		deps:     deps,
	}
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		wantErr   error
		canonical string
	}{
		{"valid", "neo-s--w-100", nil, ""},
		{"not a neo style", "thumbnail", ErrUnknownStyle, ""},
		{"no effects", "neo-", ErrUnknownStyle, ""},
		{"only unknown kinds", "neo-zz--w-1", ErrUnknownStyle, ""},
		{"leading zeros", "neo-s--w-0100", ErrNonCanonical, "neo-s--w-100"},
		{"unknown kind dropped", "neo-s--w-100~zz--w-1", ErrNonCanonical, "neo-s--w-100"},
		{"at the limit", "neo-r--w-5000_h-5000", nil, ""},
		{"above the limit", "neo-r--w-50000_h-50000", ErrStyleTooLarge, ""},
		{"huge value", "neo-r--w-9000000000_h-9000000000", ErrStyleTooLarge, ""},
		{"one effect above the limit", "neo-s--w-100~c--w-10_h-6000_a-c", ErrStyleTooLarge, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseStyle(tt.id, render.DefaultMaxDimension)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if s.Encode() != tt.id {
					t.Errorf("Encode() = %s", s.Encode())
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.canonical != "" {
				var nc *NonCanonicalError
				if !errors.As(err, &nc) || nc.Canonical != tt.canonical {
					t.Errorf("expected canonical %s, got %v", tt.canonical, err)
				}
			}
		})
	}
}

func TestGet_MissThenHit(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	img, err := env.svc.Get(ctx, "neo-s--w-100", "public", "photos/cat.png")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if img.Cached {
		t.Error("first request should generate")
	}
	if img.ContentType != "image/png" {
		t.Errorf("content type = %s", img.ContentType)
	}
	w, h, err := env.renderer.Dimensions(img.Data)
	if err != nil {
		t.Fatal(err)
	}
	if w != 100 || h != 50 {
		t.Errorf("expected 100x50, got %dx%d", w, h)
	}

	exists, err := env.backend.Exists(ctx, storage.DerivativeKey("neo-s--w-100", "public", "photos/cat.png"))
	if err != nil || !exists {
		t.Errorf("derivative should be stored (err=%v)", err)
	}

	img, err = env.svc.Get(ctx, "neo-s--w-100", "public", "/photos/cat.png")
	if err != nil {
		t.Fatalf("second Get failed: %v", err)
	}
	if !img.Cached {
		t.Error("second request should be served from cache")
	}
	if n := env.renderer.calls.Load(); n != 1 {
		t.Errorf("expected 1 render, got %d", n)
	}

	row, err := env.deps.Derivatives.Get(ctx, "neo-s--w-100", "public://photos/cat.png")
	if err != nil {
		t.Fatalf("expected catalog row: %v", err)
	}
	if row.Width != 100 || row.Height != 50 || row.Backend != "filesystem" {
		t.Errorf("unexpected catalog row %+v", row)
	}
}

func TestGet_Errors(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		scheme  string
		path    string
		wantErr error
	}{
		{"unknown style", "thumbnail", "public", "photos/cat.png", ErrUnknownStyle},
		{"non-canonical", "neo-s--w-0100", "public", "photos/cat.png", ErrNonCanonical},
		{"missing source", "neo-s--w-100", "public", "photos/dog.png", provider.ErrSourceNotFound},
		{"unserved scheme", "neo-s--w-100", "private", "photos/cat.png", provider.ErrSourceNotFound},
		{"traversal", "neo-s--w-100", "public", "photos/../../cat.png", provider.ErrSourceNotFound},
		{"empty path", "neo-s--w-100", "public", "", provider.ErrSourceNotFound},
		{"oversized style", "neo-r--w-50000_h-50000", "public", "photos/cat.png", ErrStyleTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Get(ctx, tt.id, tt.scheme, tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if n := env.renderer.calls.Load(); n != 0 {
		t.Errorf("nothing should have been rendered, got %d", n)
	}
}

func TestGet_ConfiguredMaxDimension(t *testing.T) {
	env := setupService(t)
	deps := env.deps
	deps.MaxDimension = 50
	svc := NewDerivativeService(deps, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Get(ctx, "neo-s--w-100", "public", "photos/cat.png"); !errors.Is(err, ErrStyleTooLarge) {
		t.Fatalf("expected ErrStyleTooLarge, got %v", err)
	}
	if _, err := svc.Generate(ctx, "neo-s--w-100", "public://photos/cat.png"); !errors.Is(err, ErrStyleTooLarge) {
		t.Fatalf("expected ErrStyleTooLarge from Generate, got %v", err)
	}
	if _, err := svc.Get(ctx, "neo-s--w-50", "public", "photos/cat.png"); err != nil {
		t.Fatalf("a style at the limit should render: %v", err)
	}
	if n := env.renderer.calls.Load(); n != 1 {
		t.Errorf("expected only the style at the limit to render, got %d renders", n)
	}
}

func TestGet_ConcurrentMissesShareGeneration(t *testing.T) {
	env := setupService(t)
	env.renderer.delay = 100 * time.Millisecond

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Get(context.Background(), "neo-s--w-100", "public", "photos/cat.png")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Get failed: %v", err)
		}
	}
	if n := env.renderer.calls.Load(); n != 1 {
		t.Errorf("expected a single shared render, got %d", n)
	}
}

func TestGet_FocalDetectionOnlyForFocalStyles(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	if _, err := env.svc.Get(ctx, "neo-s--w-100", "public", "photos/cat.png"); err != nil {
		t.Fatal(err)
	}
	if n := env.detector.calls.Load(); n != 0 {
		t.Errorf("scale style must not trigger detection, got %d calls", n)
	}

	img, err := env.svc.Get(ctx, "neo-f--w-100_h-100", "public", "photos/cat.png")
	if err != nil {
		t.Fatal(err)
	}
	if n := env.detector.calls.Load(); n != 1 {
		t.Errorf("expected one detection, got %d", n)
	}
	w, h, _ := env.renderer.Dimensions(img.Data)
	if w != 100 || h != 100 {
		t.Errorf("expected 100x100, got %dx%d", w, h)
	}

	// The detected point is stored, so other focal styles reuse it.
	if _, err := env.svc.Get(ctx, "neo-fw--w-50", "public", "photos/cat.png"); err != nil {
		t.Fatal(err)
	}
	if n := env.detector.calls.Load(); n != 1 {
		t.Errorf("stored point should be reused, got %d detections", n)
	}
}

func TestURL(t *testing.T) {
	env := setupService(t)

	got, err := env.svc.URL("neo-s--w-100", "public://photos/my cat.png")
	if err != nil {
		t.Fatal(err)
	}
	want := "https://img.example.com/styles/neo-s--w-100/public/photos/my%20cat.png"
	if got != want {
		t.Errorf("URL() = %s, want %s", got, want)
	}

	if _, err := env.svc.URL("neo-s--w-100", "photos/cat.png"); !errors.Is(err, model.ErrInvalidURI) {
		t.Errorf("expected ErrInvalidURI, got %v", err)
	}
}

func TestPictureSources(t *testing.T) {
	env := setupService(t)

	p := model.NewPicture("public://photos/cat.png", "A cat", "")
	sm, _ := p.Style("sm")
	if err := sm.Scale(640, 0); err != nil {
		t.Fatal(err)
	}
	lg, _ := p.Style("lg")
	lg.FocalScaleAndCrop(1024, 768)
	_, _ = p.Style("md") // created but left empty

	view, err := env.svc.PictureSources(p)
	if err != nil {
		t.Fatalf("PictureSources: %v", err)
	}
	if len(view.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %+v", view.Sources)
	}
	if view.Sources[0].Breakpoint != "lg" || view.Sources[1].Breakpoint != "sm" {
		t.Errorf("expected largest breakpoint first, got %s, %s", view.Sources[0].Breakpoint, view.Sources[1].Breakpoint)
	}
	if view.Sources[0].Media != "(min-width: 768px)" || view.Sources[0].Width != 1024 || view.Sources[0].Height != 768 {
		t.Errorf("unexpected lg source %+v", view.Sources[0])
	}
	if view.Img.Style != "neo-s--w-640" {
		t.Errorf("fallback style = %s", view.Img.Style)
	}
	if view.Img.URL != "https://img.example.com/styles/neo-s--w-640/public/photos/cat.png" {
		t.Errorf("fallback url = %s", view.Img.URL)
	}

	empty := model.NewPicture("public://photos/cat.png", "", "")
	if _, err := env.svc.PictureSources(empty); !errors.Is(err, ErrUnknownStyle) {
		t.Errorf("expected ErrUnknownStyle, got %v", err)
	}
}

func TestSetFocalPoint_InvalidatesFocalDerivatives(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	for _, id := range []string{"neo-s--w-100", "neo-f--w-100_h-100"} {
		if _, err := env.svc.Get(ctx, id, "public", "photos/cat.png"); err != nil {
			t.Fatal(err)
		}
	}

	fp, err := env.svc.SetFocalPoint(ctx, "public://photos/cat.png", 75, 25)
	if err != nil {
		t.Fatalf("SetFocalPoint: %v", err)
	}
	if fp.Source != model.FocalSourceManual {
		t.Errorf("source = %s", fp.Source)
	}

	focalKey := storage.DerivativeKey("neo-f--w-100_h-100", "public", "photos/cat.png")
	if ok, _ := env.backend.Exists(ctx, focalKey); ok {
		t.Error("focal derivative should be dropped")
	}
	scaleKey := storage.DerivativeKey("neo-s--w-100", "public", "photos/cat.png")
	if ok, _ := env.backend.Exists(ctx, scaleKey); !ok {
		t.Error("scale derivative should be kept")
	}

	stored, err := env.deps.FocalPoints.GetByURI(ctx, "public://photos/cat.png")
	if err != nil || stored.X != 75 || stored.Y != 25 {
		t.Errorf("unexpected stored point %+v (err=%v)", stored, err)
	}

	if _, err := env.svc.SetFocalPoint(ctx, "public://photos/cat.png", 101, 0); !errors.Is(err, style.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := env.svc.SetFocalPoint(ctx, "cat.png", 1, 1); !errors.Is(err, model.ErrInvalidURI) {
		t.Errorf("expected ErrInvalidURI, got %v", err)
	}
}

func TestSetFocalPoint_NormalizesURI(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	const focalID = "neo-f--w-100_h-100"

	if _, err := env.svc.Get(ctx, focalID, "public", "photos/cat.png"); err != nil {
		t.Fatal(err)
	}

	fp, err := env.svc.SetFocalPoint(ctx, "public:///photos/cat.png", 10, 90)
	if err != nil {
		t.Fatalf("SetFocalPoint: %v", err)
	}
	if fp.URI != "public://photos/cat.png" {
		t.Errorf("stored uri = %q, want public://photos/cat.png", fp.URI)
	}

	if _, err := env.deps.Derivatives.Get(ctx, focalID, "public://photos/cat.png"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected the catalog row to be dropped, got %v", err)
	}

	// The next render finds the manual point instead of detecting again.
	detections := env.detector.calls.Load()
	if _, err := env.svc.Get(ctx, focalID, "public", "photos/cat.png"); err != nil {
		t.Fatal(err)
	}
	if n := env.detector.calls.Load(); n != detections {
		t.Errorf("manual point should be used, got %d new detections", n-detections)
	}
	stored, err := env.deps.FocalPoints.GetByURI(ctx, "public://photos/cat.png")
	if err != nil || stored.X != 10 || stored.Y != 90 || stored.Source != model.FocalSourceManual {
		t.Errorf("unexpected stored point %+v (err=%v)", stored, err)
	}
}

func TestStatsAndFlush(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	for _, id := range []string{"neo-s--w-100", "neo-f--w-100_h-100"} {
		if _, err := env.svc.Get(ctx, id, "public", "photos/cat.png"); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := env.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Styles != 2 || stats.Derivatives != 2 || stats.FocalPoints != 1 || stats.DetectionCalls != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.TotalBytes <= 0 {
		t.Errorf("expected total bytes, got %d", stats.TotalBytes)
	}

	if err := env.svc.Flush(ctx, "neo-s--w-100"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	flushed, err := env.svc.FlushAll(ctx, style.KindFocalScaleAndCrop)
	if err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if len(flushed) != 1 || flushed[0] != "neo-f--w-100_h-100" {
		t.Errorf("flushed = %v", flushed)
	}

	stats, _ = env.svc.Stats(ctx)
	if stats.Styles != 0 || stats.Derivatives != 0 {
		t.Errorf("expected empty catalog after flush, got %+v", stats)
	}
}

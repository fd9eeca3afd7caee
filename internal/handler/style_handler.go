package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/storage"
	"github.com/jacerider/neo-image/internal/style"
)

// StyleHandler exposes the style codec and the style registry.
type StyleHandler struct {
	registry *storage.Registry
	logger   *zap.Logger
}

// NewStyleHandler creates a new StyleHandler.
func NewStyleHandler(registry *storage.Registry, logger *zap.Logger) *StyleHandler {
	return &StyleHandler{registry: registry, logger: logger}
}

type effectView struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Label  string `json:"label"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
	Anchor string `json:"anchor,omitempty"`
}

type styleView struct {
	ID      string       `json:"id"`
	Label   string       `json:"label"`
	Width   int          `json:"width,omitempty"`
	Height  int          `json:"height,omitempty"`
	Effects []effectView `json:"effects"`
}

func newStyleView(s *style.Style) styleView {
	v := styleView{ID: s.Encode(), Label: s.Label(), Effects: []effectView{}}
	v.Width, _ = s.Width()
	v.Height, _ = s.Height()
	for _, e := range s.Effects() {
		ev := effectView{Kind: e.Kind().Key(), Name: e.Kind().Name(), Label: e.Label()}
		if w, ok := e.Width(); ok {
			ev.Width = &w
		}
		if h, ok := e.Height(); ok {
			ev.Height = &h
		}
		if a, ok := e.Anchor(); ok {
			ev.Anchor = a.Label()
		}
		v.Effects = append(v.Effects, ev)
	}
	return v
}

// kindsQuery reads "?kinds=f,s" into kinds. Unknown keys are ignored.
func kindsQuery(c *gin.Context) []style.Kind {
	raw := c.Query("kinds")
	if raw == "" {
		return nil
	}
	return style.ParseKinds(strings.Split(raw, ","))
}

// List returns the styles that have derivatives on disk.
// Route: GET /api/v1/styles?kinds=f,s
func (h *StyleHandler) List(c *gin.Context) {
	entries, err := h.registry.Styles(c.Request.Context(), kindsQuery(c)...)
	if err != nil {
		respondError(c, h.logger, err, "Failed to list styles")
		return
	}
	views := make([]styleView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newStyleView(e.Style))
	}
	c.JSON(http.StatusOK, gin.H{"styles": views})
}

// Options returns the single-effect scale and focal crop styles, the list
// a settings form offers as size presets.
// Route: GET /api/v1/styles/options
func (h *StyleHandler) Options(c *gin.Context) {
	options, err := h.registry.SizeOptions(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list style options")
		return
	}
	if options == nil {
		options = []storage.SizeOption{}
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

// Show decodes an identifier strictly and describes it.
// Route: GET /api/v1/styles/:style
func (h *StyleHandler) Show(c *gin.Context) {
	s, err := style.DecodeStrict(c.Param("style"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to decode style")
		return
	}
	c.JSON(http.StatusOK, newStyleView(s))
}

type effectRequest struct {
	// Kind is a short key ("sc") or machine name ("image_scale_and_crop").
	Kind   string `json:"kind" binding:"required"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Anchor string `json:"anchor"`
}

type buildRequest struct {
	Effects []effectRequest `json:"effects" binding:"required,min=1,dive"`
}

// Build assembles a style from an effect list and returns its identifier.
// Route: POST /api/v1/styles
func (h *StyleHandler) Build(c *gin.Context) {
	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := style.New()
	for _, e := range req.Effects {
		if err := applyEffect(s, e); err != nil {
			respondError(c, h.logger, err, "Failed to build style")
			return
		}
	}
	c.JSON(http.StatusOK, newStyleView(s))
}

func applyEffect(s *style.Style, e effectRequest) error {
	kind, ok := lookupKind(e.Kind)
	if !ok {
		return fmt.Errorf("%w: unknown effect kind %q", style.ErrInvalidArgument, e.Kind)
	}
	switch kind {
	case style.KindResize:
		s.Resize(e.Width, e.Height)
	case style.KindScale:
		return s.Scale(e.Width, e.Height)
	case style.KindCrop:
		return s.Crop(e.Width, e.Height, e.Anchor)
	case style.KindScaleAndCrop:
		return s.ScaleAndCrop(e.Width, e.Height, e.Anchor)
	case style.KindFocalScaleAndCrop:
		s.FocalScaleAndCrop(e.Width, e.Height)
	case style.KindFocalCropByWidth:
		s.FocalCropByWidth(e.Width)
	}
	return nil
}

func lookupKind(v string) (style.Kind, bool) {
	if k, ok := style.KindFromKey(v); ok {
		return k, true
	}
	for _, k := range style.AllKinds {
		if k.Name() == v {
			return k, true
		}
	}
	return 0, false
}

type autoRequest struct {
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Dimensions model.DimensionSet `json:"dimensions"`
}

// Auto picks scale or focal crop from the given dimensions. With a
// "dimensions" map it configures one style per breakpoint instead.
// Route: POST /api/v1/styles/auto
func (h *StyleHandler) Auto(c *gin.Context) {
	var req autoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Dimensions) == 0 {
		s := style.New()
		if err := s.Auto(req.Width, req.Height); err != nil {
			respondError(c, h.logger, err, "Failed to select style")
			return
		}
		c.JSON(http.StatusOK, newStyleView(s))
		return
	}

	for size := range req.Dimensions {
		if !model.ValidBreakpoint(size) {
			respondError(c, h.logger, fmt.Errorf("%w: %q", model.ErrInvalidBreakpoint, size), "Failed to select styles")
			return
		}
	}
	p := model.NewPicture("", "", "")
	if err := p.AutoFromDimensions(req.Dimensions); err != nil {
		respondError(c, h.logger, err, "Failed to select styles")
		return
	}
	styles := make(map[string]styleView)
	for _, sized := range p.Styles() {
		if sized.Style.EffectCount() > 0 {
			styles[sized.Breakpoint.Size] = newStyleView(sized.Style)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"styles":  styles,
		"summary": model.SummarizeDimensions(req.Dimensions),
	})
}

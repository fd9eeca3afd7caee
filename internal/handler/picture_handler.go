package handler

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/service"
	"github.com/jacerider/neo-image/internal/style"
)

// PictureTemplate is the name of the <picture> markup template.
const PictureTemplate = "picture.html"

// pictureMarkup lists sources largest breakpoint first; the browser picks
// the first matching media query and falls back to <img>.
const pictureMarkup = `{{define "picture.html"}}<picture>
{{- range .Sources}}
  <source media="{{.Media}}" srcset="{{.URL}}"{{if .Width}} width="{{.Width}}"{{end}}{{if .Height}} height="{{.Height}}"{{end}}>
{{- end}}
  <img src="{{.Img.URL}}" alt="{{.Alt}}"{{if .Title}} title="{{.Title}}"{{end}}{{if .Img.Width}} width="{{.Img.Width}}"{{end}}{{if .Img.Height}} height="{{.Img.Height}}"{{end}} loading="lazy">
</picture>
{{end}}`

// Templates returns the HTML templates the handlers render. The server
// installs them with gin's SetHTMLTemplate.
func Templates() *template.Template {
	return template.Must(template.New("neo-image").Parse(pictureMarkup))
}

// PictureHandler builds <picture> descriptions for a source image.
type PictureHandler struct {
	svc      *service.DerivativeService
	defaults model.DimensionSet
	logger   *zap.Logger
}

// NewPictureHandler creates a new PictureHandler. defaults are used when a
// request names neither dimensions nor styles.
func NewPictureHandler(svc *service.DerivativeService, defaults model.DimensionSet, logger *zap.Logger) *PictureHandler {
	return &PictureHandler{svc: svc, defaults: defaults, logger: logger}
}

type pictureRequest struct {
	URI        string             `json:"uri" binding:"required"`
	Alt        string             `json:"alt"`
	Title      string             `json:"title"`
	Dimensions model.DimensionSet `json:"dimensions"`
	// Styles maps a breakpoint to an explicit identifier. It wins over
	// Dimensions for the same breakpoint.
	Styles map[string]string `json:"styles"`
}

// Create resolves the derivative URL of every breakpoint.
// Route: POST /api/v1/pictures[?format=html]
func (h *PictureHandler) Create(c *gin.Context) {
	var req pictureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, _, err := model.ParseURI(req.URI); err != nil {
		respondError(c, h.logger, err, "Invalid picture uri")
		return
	}

	p := model.NewPicture(req.URI, req.Alt, req.Title)
	dims := req.Dimensions
	if len(dims) == 0 && len(req.Styles) == 0 {
		dims = h.defaults
	}
	if err := p.AutoFromDimensions(dims); err != nil {
		respondError(c, h.logger, err, "Failed to configure picture")
		return
	}
	for size, id := range req.Styles {
		s, err := style.DecodeStrict(id)
		if err != nil {
			respondError(c, h.logger, err, "Failed to decode picture style")
			return
		}
		if err := p.SetStyle(size, s); err != nil {
			respondError(c, h.logger, err, "Failed to configure picture")
			return
		}
	}

	view, err := h.svc.PictureSources(p)
	if err != nil {
		respondError(c, h.logger, err, "Failed to build picture")
		return
	}

	if c.Query("format") == "html" {
		c.HTML(http.StatusOK, PictureTemplate, view)
		return
	}
	c.JSON(http.StatusOK, view)
}

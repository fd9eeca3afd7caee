package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/service"
	"github.com/jacerider/neo-image/internal/storage"
)

// DerivativeHandler serves style derivatives. It delegates to
// DerivativeService, which generates missing derivatives transparently.
type DerivativeHandler struct {
	svc    *service.DerivativeService
	logger *zap.Logger
}

// NewDerivativeHandler creates a new DerivativeHandler.
func NewDerivativeHandler(svc *service.DerivativeService, logger *zap.Logger) *DerivativeHandler {
	return &DerivativeHandler{svc: svc, logger: logger}
}

// Serve returns the derivative image.
// Route: GET /styles/:style/:scheme/*path
//
// A style that decodes but is not written canonically is redirected
// permanently to its canonical URL, so every derivative is stored once.
func (h *DerivativeHandler) Serve(c *gin.Context) {
	id := c.Param("style")
	scheme := c.Param("scheme")
	path := strings.TrimPrefix(c.Param("path"), "/")

	img, err := h.svc.Get(c.Request.Context(), id, scheme, path)
	if err != nil {
		var nc *service.NonCanonicalError
		if errors.As(err, &nc) {
			target := url.URL{
				Path:     "/" + strings.Join([]string{storage.StylesRoot, nc.Canonical, scheme, path}, "/"),
				RawQuery: c.Request.URL.RawQuery,
			}
			c.Redirect(http.StatusMovedPermanently, target.String())
			return
		}
		if statusFor(err) == http.StatusNotFound {
			h.logger.Debug("Derivative not found",
				zap.String("style", id),
				zap.String("scheme", scheme),
				zap.String("path", path),
				zap.Error(err),
			)
		}
		respondError(c, h.logger, err, "Failed to serve derivative")
		return
	}

	cacheStatus := "MISS"
	if img.Cached {
		cacheStatus = "HIT"
	}
	c.Header("X-Cache", cacheStatus)
	// Derivatives are replaced in place when a focal point changes, so they
	// are not immutable.
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

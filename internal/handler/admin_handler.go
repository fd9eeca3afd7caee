package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/service"
)

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	svc    *service.DerivativeService
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *service.DerivativeService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

// Stats returns style, derivative and focal point counts.
// Route: GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to collect stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// FlushStyle deletes every derivative of one style.
// Route: DELETE /api/v1/admin/styles/:style
func (h *AdminHandler) FlushStyle(c *gin.Context) {
	id := c.Param("style")
	if err := h.svc.Flush(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err, "Failed to flush style")
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": []string{id}})
}

// FlushStyles deletes every stored style, or only those holding one of
// the kinds in "?kinds=f,fw".
// Route: DELETE /api/v1/admin/styles
func (h *AdminHandler) FlushStyles(c *gin.Context) {
	flushed, err := h.svc.FlushAll(c.Request.Context(), kindsQuery(c)...)
	if err != nil {
		respondError(c, h.logger, err, "Failed to flush styles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": flushed})
}

type focalPointRequest struct {
	URI string   `json:"uri" binding:"required"`
	X   *float64 `json:"x" binding:"required"`
	Y   *float64 `json:"y" binding:"required"`
}

// SetFocalPoint stores a manual focal point and drops the focal crops
// rendered with the old one.
// Route: PUT /api/v1/admin/focal-points
func (h *AdminHandler) SetFocalPoint(c *gin.Context) {
	var req focalPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fp, err := h.svc.SetFocalPoint(c.Request.Context(), req.URI, *req.X, *req.Y)
	if err != nil {
		respondError(c, h.logger, err, "Failed to set focal point")
		return
	}
	c.JSON(http.StatusOK, fp)
}

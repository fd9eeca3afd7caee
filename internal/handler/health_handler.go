// Package handler contains HTTP request handlers.
// In Gin, a handler is any function with signature func(*gin.Context).
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	engine string
}

// NewHealthHandler creates a new HealthHandler. engine is the render engine
// name, reported so deployments can confirm libvips is in use.
func NewHealthHandler(engine string) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// Healthz responds with service status.
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "neo-image",
		"engine":  h.engine,
	})
}

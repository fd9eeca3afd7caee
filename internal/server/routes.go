// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/config"
	"github.com/jacerider/neo-image/internal/handler"
	"github.com/jacerider/neo-image/internal/middleware"
	"github.com/jacerider/neo-image/internal/service"
	"github.com/jacerider/neo-image/internal/storage"
	"github.com/jacerider/neo-image/internal/telemetry"
)

// Deps are the built components the routes serve. We pass dependencies
// explicitly; each handler gets exactly what it needs.
type Deps struct {
	Derivatives *service.DerivativeService
	Registry    *storage.Registry
	Metrics     *telemetry.Metrics // nil disables /metrics
	Engine      string
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler(deps.Engine)
	derivativeHandler := handler.NewDerivativeHandler(deps.Derivatives, logger)
	styleHandler := handler.NewStyleHandler(deps.Registry, logger)
	pictureHandler := handler.NewPictureHandler(deps.Derivatives, cfg.Picture.Dimensions, logger)
	adminHandler := handler.NewAdminHandler(deps.Derivatives, logger)

	r.SetHTMLTemplate(handler.Templates())

	// Public endpoints (no auth)
	r.GET("/healthz", healthHandler.Healthz)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Derivative delivery is public: URLs end up in <img> tags. Rate
	// limiting falls back to one bucket per client IP.
	styles := r.Group("/styles")
	styles.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	styles.Use(middleware.RateLimit(cfg.RateLimit.DerivativesPerSecond, cfg.RateLimit.Burst, deps.Metrics))
	{
		styles.GET("/:style/:scheme/*path", derivativeHandler.Serve)
	}

	// CORS middleware applies to the entire API group.
	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Authenticated API endpoints
	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, deps.Metrics))
	{
		authed.GET("/styles", styleHandler.List)
		authed.GET("/styles/options", styleHandler.Options)
		authed.GET("/styles/:style", styleHandler.Show)
		authed.POST("/styles", styleHandler.Build)
		authed.POST("/styles/auto", styleHandler.Auto)
		authed.POST("/pictures", pictureHandler.Create)
	}

	// Admin endpoints (separate auth with admin keys)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.DELETE("/styles/:style", adminHandler.FlushStyle)
		admin.DELETE("/styles", adminHandler.FlushStyles)
		admin.PUT("/focal-points", adminHandler.SetFocalPoint)
	}
}

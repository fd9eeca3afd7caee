package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jacerider/neo-image/internal/model"
	"github.com/jacerider/neo-image/internal/provider"
	"github.com/jacerider/neo-image/internal/render"
	"github.com/jacerider/neo-image/internal/service"
	"github.com/jacerider/neo-image/internal/storage"
	"github.com/jacerider/neo-image/internal/style"
)

// statusFor maps domain errors to HTTP status codes. Anything unknown is a
// server error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, style.ErrInvalidArgument),
		errors.Is(err, style.ErrMalformedIdentifier),
		errors.Is(err, model.ErrInvalidBreakpoint),
		errors.Is(err, model.ErrInvalidURI),
		errors.Is(err, service.ErrStyleTooLarge),
		errors.Is(err, render.ErrTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownStyle),
		errors.Is(err, provider.ErrSourceNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, render.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes a JSON error. Client errors echo the message; server
// errors are logged and hidden behind "internal error".
func respondError(c *gin.Context, logger *zap.Logger, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(msg,
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

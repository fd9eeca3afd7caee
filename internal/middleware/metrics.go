package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jacerider/neo-image/internal/telemetry"
)

// Metrics records the count and latency of every request, labelled by the
// matched route pattern so derivative paths don't explode label cardinality.
func Metrics(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// Package middleware contains Gin middleware functions.
// Middleware in Gin is a handler that runs before (or after) your route handler.
// It calls c.Next() to proceed or c.Abort() to stop the chain.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextAPIKey is the gin context key holding the authenticated key.
// RateLimit reads it to give each key its own bucket.
const ContextAPIKey = "api_key"

// APIKeyAuth returns middleware that validates API keys.
// The key can be provided via the X-API-Key header, an
// "Authorization: Bearer" header, or the api_key query param.
func APIKeyAuth(validKeys []string) gin.HandlerFunc {
	return keyAuth(validKeys, http.StatusUnauthorized, "API key")
}

// AdminKeyAuth returns middleware that validates admin API keys. A wrong
// key is 403 rather than 401: the caller authenticated, just not as admin.
func AdminKeyAuth(adminKeys []string) gin.HandlerFunc {
	return keyAuth(adminKeys, http.StatusForbidden, "admin API key")
}

func keyAuth(keys []string, invalidStatus int, what string) gin.HandlerFunc {
	// Go doesn't have a built-in Set type, so we use map[string]struct{}.
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			keySet[k] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		key := requestKey(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing " + what,
			})
			return
		}

		if _, ok := keySet[key]; !ok {
			c.AbortWithStatusJSON(invalidStatus, gin.H{
				"error": "invalid " + what,
			})
			return
		}

		c.Set(ContextAPIKey, key)
		c.Next()
	}
}

func requestKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return c.Query("api_key")
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authRouter echoes the key the middleware stored in the context.
func authRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw)
	router.GET("/styles", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextAPIKey))
	})
	return router
}

func TestAPIKeyAuth(t *testing.T) {
	router := authRouter(APIKeyAuth([]string{"site-a", "site-b", ""}))

	tests := []struct {
		name    string
		target  string
		headers map[string]string
		want    int
		wantKey string
	}{
		{"header", "/styles", map[string]string{"X-API-Key": "site-a"}, http.StatusOK, "site-a"},
		{"second key", "/styles", map[string]string{"X-API-Key": "site-b"}, http.StatusOK, "site-b"},
		{"bearer", "/styles", map[string]string{"Authorization": "Bearer site-a"}, http.StatusOK, "site-a"},
		{"query param", "/styles?api_key=site-b", nil, http.StatusOK, "site-b"},
		{"header wins over query", "/styles?api_key=nope", map[string]string{"X-API-Key": "site-a"}, http.StatusOK, "site-a"},
		{"basic auth ignored", "/styles", map[string]string{"Authorization": "Basic c2l0ZS1h"}, http.StatusUnauthorized, ""},
		{"missing", "/styles", nil, http.StatusUnauthorized, ""},
		{"empty query never matches", "/styles?api_key=", nil, http.StatusUnauthorized, ""},
		{"unknown", "/styles", map[string]string{"X-API-Key": "site-c"}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
			if tt.want == http.StatusOK && w.Body.String() != tt.wantKey {
				t.Errorf("context key = %q, want %q", w.Body.String(), tt.wantKey)
			}
		})
	}
}

func TestAdminKeyAuth(t *testing.T) {
	router := authRouter(AdminKeyAuth([]string{"ops"}))

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"valid", "ops", http.StatusOK},
		{"wrong key is forbidden", "site-a", http.StatusForbidden},
		{"missing is unauthorized", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/styles", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
